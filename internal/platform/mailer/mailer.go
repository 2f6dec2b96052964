// Package mailer delivers notification messages. SMTPTransport sends them
// through an SMTP relay with go-mail; LogTransport only logs them and is used
// when outbound mail is disabled.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/jiralike-api/internal/config"
	"github.com/phrazzld/jiralike-api/internal/platform/logger"
	"github.com/wneessen/go-mail"
)

// ErrNoRecipient is returned for a message without a To address.
var ErrNoRecipient = errors.New("message has no recipient")

// Attachment is a file enclosed in a message.
type Attachment struct {
	Name     string
	MimeType string
	Content  []byte
}

// Message is a single plain-text email.
type Message struct {
	From       string
	To         string
	Subject    string
	Body       string
	Attachment *Attachment
}

// Transport hands a batch of messages to a delivery mechanism.
type Transport interface {
	Send(ctx context.Context, msgs []*Message) error
}

// SMTPTransport sends messages over one SMTP connection per batch.
type SMTPTransport struct {
	cfg    config.MailConfig
	logger *slog.Logger
}

// NewSMTPTransport creates an SMTP transport for cfg.
func NewSMTPTransport(cfg config.MailConfig, logger *slog.Logger) *SMTPTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPTransport{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "smtp_transport")),
	}
}

func (t *SMTPTransport) client() (*mail.Client, error) {
	opts := []mail.Option{mail.WithPort(t.cfg.Port)}
	if t.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(t.cfg.Username),
			mail.WithPassword(t.cfg.Password),
		)
	}
	if t.cfg.UseSSL {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	}
	return mail.NewClient(t.cfg.Host, opts...)
}

// Send implements Transport.
func (t *SMTPTransport) Send(ctx context.Context, msgs []*Message) error {
	if len(msgs) == 0 {
		return nil
	}
	log := logger.FromContextOrDefault(ctx, t.logger)

	built := make([]*mail.Msg, 0, len(msgs))
	for _, m := range msgs {
		if m.From == "" {
			m.From = t.cfg.From
		}
		msg, err := BuildMsg(m)
		if err != nil {
			return err
		}
		built = append(built, msg)
	}

	c, err := t.client()
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}

	if err := c.DialAndSendWithContext(ctx, built...); err != nil {
		log.Error("failed to send mail",
			slog.Int("messages", len(built)),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to send mail: %w", err)
	}

	log.Info("mail sent", slog.Int("messages", len(built)))
	return nil
}

// BuildMsg converts m into a go-mail message.
func BuildMsg(m *Message) (*mail.Msg, error) {
	if m.To == "" {
		return nil, ErrNoRecipient
	}

	msg := mail.NewMsg()
	if err := msg.From(m.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.From, err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextPlain, m.Body)

	if a := m.Attachment; a != nil {
		var opts []mail.FileOption
		if a.MimeType != "" {
			opts = append(opts, mail.WithFileContentType(mail.ContentType(a.MimeType)))
		}
		if err := msg.AttachReader(a.Name, bytes.NewReader(a.Content), opts...); err != nil {
			return nil, fmt.Errorf("failed to attach %q: %w", a.Name, err)
		}
	}

	return msg, nil
}

// LogTransport records messages in the log instead of delivering them.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport creates a transport that only logs.
func NewLogTransport(logger *slog.Logger) *LogTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTransport{logger: logger.With(slog.String("component", "log_transport"))}
}

// Send implements Transport.
func (t *LogTransport) Send(ctx context.Context, msgs []*Message) error {
	log := logger.FromContextOrDefault(ctx, t.logger)
	for _, m := range msgs {
		attrs := []any{
			slog.String("subject", m.Subject),
			slog.Int("body_bytes", len(m.Body)),
		}
		if m.Attachment != nil {
			attrs = append(attrs, slog.String("attachment", m.Attachment.Name))
		}
		log.Info("mail delivery disabled, message not sent", attrs...)
	}
	return nil
}

// New returns the transport selected by cfg.Enabled.
func New(cfg config.MailConfig, logger *slog.Logger) Transport {
	if !cfg.Enabled {
		return NewLogTransport(logger)
	}
	return NewSMTPTransport(cfg, logger)
}
