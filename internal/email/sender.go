// Package email delivers transactional mail for login flows.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/wneessen/go-mail"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Sender sends login emails over SMTP. With a nil config it runs in no-op
// mode and only logs what it would have sent, which is what local dev and
// tests use.
type Sender struct {
	client *mail.Client
	from   string
}

func NewSender(cfg *Config) (*Sender, error) {
	if cfg == nil {
		slog.Info("email sending disabled, messages will be logged only")
		return &Sender{}, nil
	}

	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return &Sender{client: client, from: cfg.From}, nil
}

var magicLinkTmpl = template.Must(template.New("magic_link").Parse(`<p>Hello,</p>
<p>Click the link below to sign in. It expires in 15 minutes.</p>
<p><a href="{{.Link}}">Sign in</a></p>
<p>If you did not request this, you can ignore this email.</p>`))

var passwordResetTmpl = template.Must(template.New("password_reset").Parse(`<p>Hello,</p>
<p>Click the link below to reset your password.</p>
<p><a href="{{.Link}}">Reset password</a></p>
<p>If you did not request this, you can ignore this email.</p>`))

func (s *Sender) SendMagicLink(ctx context.Context, to, link string) error {
	return s.send(ctx, to, "Your sign-in link", magicLinkTmpl, link)
}

func (s *Sender) SendPasswordReset(ctx context.Context, to, link string) error {
	return s.send(ctx, to, "Reset your password", passwordResetTmpl, link)
}

func (s *Sender) send(ctx context.Context, to, subject string, tmpl *template.Template, link string) error {
	if s.client == nil {
		slog.Info("email suppressed", "to", to, "subject", subject, "link", link)
		return nil
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, map[string]string{"Link": link}); err != nil {
		return fmt.Errorf("failed to render email body: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("invalid sender address %s: %w", s.from, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address %s: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body.String())

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	slog.Info("email sent", "to", to, "subject", subject)
	return nil
}
