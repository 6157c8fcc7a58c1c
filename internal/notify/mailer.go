// Package notify delivers converted workbooks by e-mail.
package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rohit/sheetconv/internal/config"
	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

// ErrNotConfigured is returned by Send when no SMTP host is set
var ErrNotConfigured = errors.New("smtp is not configured")

// Message is one e-mail with optional file attachments
type Message struct {
	To          []string
	Subject     string
	Body        string
	Attachments []string
}

// Mailer sends messages through the configured SMTP server
type Mailer struct {
	cfg    config.SMTPConfig
	logger zerolog.Logger
}

// NewMailer creates a mailer. It never fails; configuration problems surface
// on Send.
func NewMailer(cfg config.SMTPConfig, logger zerolog.Logger) *Mailer {
	return &Mailer{cfg: cfg, logger: logger}
}

// Send delivers msg in a single attempt
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if !m.cfg.Enabled() {
		return ErrNotConfigured
	}

	mm, err := buildMessage(m.cfg.From, msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(m.cfg.Host, m.clientOptions()...)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, mm); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	m.logger.Info().
		Strs("to", msg.To).
		Int("attachments", len(msg.Attachments)).
		Msg("Mail sent")
	return nil
}

func (m *Mailer) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(tlsPolicy(m.cfg.TLSPolicy)),
	}
	if m.cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(m.cfg.Timeout))
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	return opts
}

func tlsPolicy(name string) mail.TLSPolicy {
	switch name {
	case "opportunistic":
		return mail.TLSOpportunistic
	case "none":
		return mail.NoTLS
	default:
		return mail.TLSMandatory
	}
}

func buildMessage(from string, msg Message) (*mail.Msg, error) {
	if len(msg.To) == 0 {
		return nil, errors.New("no recipients")
	}
	if from == "" {
		return nil, errors.New("no sender address configured")
	}

	mm := mail.NewMsg()
	if err := mm.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}
	if err := mm.To(msg.To...); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}

	subject := msg.Subject
	if subject == "" {
		subject = DefaultSubject(msg.Attachments)
	}
	mm.Subject(subject)
	mm.SetBodyString(mail.TypeTextPlain, msg.Body)

	for _, path := range msg.Attachments {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("attachment %s: %w", path, err)
		}
		mm.AttachFile(path)
	}
	return mm, nil
}

// DefaultSubject names the attached files
func DefaultSubject(attachments []string) string {
	switch len(attachments) {
	case 0:
		return "Converted spreadsheets"
	case 1:
		return "Converted spreadsheet: " + filepath.Base(attachments[0])
	}
	names := make([]string, len(attachments))
	for i, a := range attachments {
		names[i] = filepath.Base(a)
	}
	return fmt.Sprintf("Converted spreadsheets (%d): %s", len(names), strings.Join(names, ", "))
}

// SplitRecipients parses a comma or semicolon separated address list
func SplitRecipients(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';'
	})
	out := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
