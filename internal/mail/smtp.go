package mail

import (
	"context"
	"io"

	"gopkg.in/gomail.v2"
)

// SMTP sends through an SMTP relay.
type SMTP struct {
	dialer *gomail.Dialer
	from   Address
}

// NewSMTP creates an SMTP sender. Port 465 uses implicit TLS; other ports use STARTTLS
// when the server offers it.
func NewSMTP(host string, port int, user, pass string, from Address) *SMTP {
	return &SMTP{dialer: gomail.NewDialer(host, port, user, pass), from: from}
}

// Send implements Sender. gomail has no context support; ctx is only checked up front.
func (s *SMTP) Send(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := s.build(msg)
	if err != nil {
		return err
	}
	return s.dialer.DialAndSend(m)
}

func (s *SMTP) build(msg *Message) (*gomail.Message, error) {
	if len(msg.To) == 0 {
		return nil, ErrNoRecipients
	}
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from.Email, s.from.Name)
	to := make([]string, len(msg.To))
	for i, a := range msg.To {
		to[i] = m.FormatAddress(a.Email, a.Name)
	}
	m.SetHeader("To", to...)
	if msg.ReplyTo != nil {
		m.SetAddressHeader("Reply-To", msg.ReplyTo.Email, msg.ReplyTo.Name)
	}
	m.SetHeader("Subject", msg.Subject)

	switch {
	case msg.Text != "" && msg.HTML != "":
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	case msg.HTML != "":
		m.SetBody("text/html", msg.HTML)
	default:
		m.SetBody("text/plain", msg.Text)
	}

	for _, a := range msg.Attachments {
		data := a.Data
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
		}
		if a.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}))
		}
		m.Attach(a.Filename, settings...)
	}
	return m, nil
}
