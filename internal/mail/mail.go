// Package mail delivers rendered messages through SMTP, SendGrid or the log.
package mail

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/campus-seminarios/backend/config"
)

// Drivers accepted in MAIL_DRIVER.
const (
	DriverSMTP     = "smtp"
	DriverSendGrid = "sendgrid"
	DriverLog      = "log"
)

var ErrNoRecipients = errors.New("message has no recipients")

// Address is a named mailbox.
type Address struct {
	Name  string
	Email string
}

// Attachment is an in-memory file attached to a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a fully rendered email.
type Message struct {
	Type        string
	To          []Address
	ReplyTo     *Address
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
}

// Recipient returns the first recipient address, or "".
func (m *Message) Recipient() string {
	if len(m.To) == 0 {
		return ""
	}
	return m.To[0].Email
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// New builds the sender selected by cfg.Driver.
func New(cfg config.EmailConfig, logger *zap.Logger) (Sender, error) {
	from := Address{Name: cfg.FromName, Email: cfg.FromAddress}
	switch cfg.Driver {
	case DriverSMTP:
		if cfg.SMTPHost == "" {
			return nil, errors.New("SMTP_HOST is required for the smtp mail driver")
		}
		return NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, from), nil
	case DriverSendGrid:
		if cfg.APIKey == "" {
			return nil, errors.New("SENDGRID_API_KEY is required for the sendgrid mail driver")
		}
		return NewSendGrid(cfg.APIKey, from), nil
	case DriverLog, "":
		return NewLog(logger), nil
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.Driver)
	}
}
