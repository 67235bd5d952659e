// Package mail sends transactional email through Resend, Postmark or the log.
package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrlokans/shelfshare/internal/config"
)

// Message is a rendered email ready to send.
type Message struct {
	To       []string `json:"to"`
	Subject  string   `json:"subject"`
	HTML     string   `json:"html"`
	Text     string   `json:"text"`
	Template string   `json:"template"`
}

// Sender delivers a message. Implementations must be safe for concurrent use.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

var errNoRecipients = errors.New("mail: message has no recipients")

// NewSender returns the sender selected by MAIL_PROVIDER. A provider missing
// its credentials is a configuration error.
func NewSender(cfg config.Mail) (Sender, error) {
	switch cfg.Provider {
	case config.MailProviderResend:
		if cfg.ResendAPIKey == "" {
			return nil, fmt.Errorf("mail: RESEND_API_KEY is required for the resend provider")
		}
		return NewResendSender(cfg.ResendAPIKey, cfg.From), nil
	case config.MailProviderPostmark:
		if cfg.PostmarkToken == "" {
			return nil, fmt.Errorf("mail: POSTMARK_TOKEN is required for the postmark provider")
		}
		return NewPostmarkSender(cfg.PostmarkToken, cfg.From), nil
	default:
		return NewLogSender(), nil
	}
}
