package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/hazyhaar/solarwatch/listing"
)

// Settings holds SMTP delivery settings.
type Settings struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
	UseTLS   bool   `yaml:"use_tls"`
}

// Defaults used for unset fields.
const (
	DefaultHost = "smtp.gmail.com"
	DefaultPort = 587
)

// WithDefaults fills host, port and sender.
func (s Settings) WithDefaults() Settings {
	if s.Host == "" {
		s.Host = DefaultHost
	}
	if s.Port == 0 {
		s.Port = DefaultPort
	}
	if s.From == "" {
		s.From = s.User
	}
	return s
}

// Ready reports whether credentials and a recipient are present.
func (s Settings) Ready() bool {
	return s.User != "" && s.Password != "" && s.To != ""
}

const sendTimeout = 30 * time.Second

type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Email sends one plain-text message per batch over SMTP.
type Email struct {
	settings Settings
	logger   *slog.Logger
	dial     func(Settings) (sender, error)
}

// EmailOption configures an Email notifier.
type EmailOption func(*Email)

// WithEmailLogger sets the logger.
func WithEmailLogger(l *slog.Logger) EmailOption {
	return func(e *Email) { e.logger = l }
}

// NewEmail creates an Email notifier. Incomplete settings are accepted:
// Notify then logs and returns nil without sending.
func NewEmail(s Settings, opts ...EmailOption) *Email {
	e := &Email{settings: s.WithDefaults(), logger: slog.Default(), dial: dialSMTP}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Email) Notify(ctx context.Context, entries []listing.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if !e.settings.Ready() {
		e.logger.Info("notify: email settings incomplete, skipping",
			"has_user", e.settings.User != "",
			"has_password", e.settings.Password != "",
			"has_recipient", e.settings.To != "")
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.From(e.settings.From); err != nil {
		return fmt.Errorf("notify: email from: %w", err)
	}
	if err := msg.To(e.settings.To); err != nil {
		return fmt.Errorf("notify: email to: %w", err)
	}
	msg.Subject(Subject(len(entries)))
	msg.SetBodyString(mail.TypeTextPlain, Body(entries))

	c, err := e.dial(e.settings)
	if err != nil {
		return fmt.Errorf("notify: email client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := c.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("notify: email send: %w", err)
	}
	e.logger.Info("notify: email sent", "to", e.settings.To, "count", len(entries))
	return nil
}

func dialSMTP(s Settings) (sender, error) {
	opts := []mail.Option{
		mail.WithPort(s.Port),
		mail.WithUsername(s.User),
		mail.WithPassword(s.Password),
		mail.WithTimeout(sendTimeout),
	}
	if s.UseTLS {
		opts = append(opts,
			mail.WithTLSPolicy(mail.TLSMandatory),
			mail.WithSMTPAuth(mail.SMTPAuthPlain))
	} else {
		opts = append(opts,
			mail.WithTLSPolicy(mail.NoTLS),
			mail.WithSMTPAuth(mail.SMTPAuthPlainNoEnc))
	}
	c, err := mail.NewClient(s.Host, opts...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Subject is the message subject for n new listings.
func Subject(n int) string {
	return fmt.Sprintf("[Solar crawler] %d new zero-price listing(s) found", n)
}

// Body lists one entry per line after a count header.
func Body(entries []listing.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d new zero-price listing(s):\n\n", len(entries))
	for _, e := range entries {
		title := e.Title
		if title == "" {
			title = "Unknown"
		}
		price := e.Price
		if price == "" {
			price = listing.DefaultPriceText
		}
		fmt.Fprintf(&b, "- %s (%s): %s\n", title, price, e.Link)
	}
	return b.String()
}
