package mailer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

const defaultTimeout = 30 * time.Second

// Config holds SMTP connection details.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTPMailer sends HTML mail through an SMTP relay.
type SMTPMailer struct {
	cfg  Config
	send func(ctx context.Context, msg *mail.Msg) error
}

// NewSMTPMailer creates a new SMTPMailer. STARTTLS is used when the relay
// offers it; PLAIN auth only when a username is set.
func NewSMTPMailer(cfg Config) (*SMTPMailer, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(cfg.Timeout),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}

	return &SMTPMailer{
		cfg: cfg,
		send: func(ctx context.Context, msg *mail.Msg) error {
			return client.DialAndSendWithContext(ctx, msg)
		},
	}, nil
}

// Send delivers one HTML message to a single recipient.
func (m *SMTPMailer) Send(to, subject, html string) error {
	msg, err := m.message(to, subject, html)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Timeout)
	defer cancel()
	if err := m.send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}

// message builds the MIME message. The subject is RFC 2047 encoded and
// the body quoted-printable, both by go-mail.
func (m *SMTPMailer) message(to, subject, html string) (*mail.Msg, error) {
	if strings.ContainsAny(subject, "\r\n") {
		return nil, errors.New("invalid mail subject")
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetDate()
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextHTML, html)
	return msg, nil
}

// LogMailer only logs what it would send. Used when SMTP is not configured.
type LogMailer struct{}

// Send logs the message and reports success.
func (LogMailer) Send(to, subject, html string) error {
	log.Printf("Mail to %s: %s (%d bytes)", to, subject, len(html))
	return nil
}
