package tasks

import (
	"context"
	"fmt"

	"github.com/mikestefanello/backlite"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/shelfshare/internal/logging"
	"github.com/mrlokans/shelfshare/internal/mail"
	"github.com/mrlokans/shelfshare/internal/metrics"
)

// SendEmailTask carries a fully rendered message. Rendering happens at enqueue
// time so retries deliver exactly the same content.
type SendEmailTask struct {
	Message mail.Message `json:"message"`
}

// Config returns the queue configuration for email delivery.
func (t SendEmailTask) Config() backlite.QueueConfig {
	return queueDefaults.retryable("send_email")
}

// SendEmailProcessor delivers messages through sender. Failed attempts are
// retried by the queue up to its MaxAttempts.
func SendEmailProcessor(sender mail.Sender) backlite.QueueProcessor[SendEmailTask] {
	log := logging.Component("tasks")
	return func(ctx context.Context, task SendEmailTask) error {
		if sender == nil {
			return fmt.Errorf("mail sender not configured")
		}
		err := sender.Send(ctx, task.Message)
		metrics.EmailSent(task.Message.Template, err)
		if err != nil {
			return fmt.Errorf("send %s email via %s: %w", task.Message.Template, sender.Name(), err)
		}
		log.WithFields(logrus.Fields{
			"template":   task.Message.Template,
			"recipients": len(task.Message.To),
			"provider":   sender.Name(),
		}).Info("email sent")
		return nil
	}
}

func NewSendEmailQueue(sender mail.Sender) backlite.Queue {
	return backlite.NewQueue(SendEmailProcessor(sender))
}
