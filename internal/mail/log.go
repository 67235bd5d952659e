package mail

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogSender writes messages to the log instead of sending them. Used in
// development and when no provider is configured.
type LogSender struct {
	log *logrus.Entry
}

func NewLogSender() *LogSender {
	return &LogSender{log: logrus.WithField("component", "mail")}
}

func (s *LogSender) Name() string { return "log" }

func (s *LogSender) Send(_ context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return errNoRecipients
	}
	s.log.WithFields(logrus.Fields{
		"to":       msg.To,
		"subject":  msg.Subject,
		"template": msg.Template,
	}).Info("email not sent (log provider)\n" + msg.Text)
	return nil
}
