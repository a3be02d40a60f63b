package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/Masterminds/sprig/v3"
	"github.com/staybook/auth-service/internal/constants"
	ctxutil "github.com/staybook/auth-service/pkg/context"
	"github.com/staybook/auth-service/pkg/circuit"
	"github.com/staybook/auth-service/pkg/logger"
)

// MailerConfig holds SMTP settings. An empty Host disables sending; the
// mailer then logs the link instead, which keeps local development workable
// without a relay.
type MailerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	BaseURL  string // public URL the email links point at
}

const verificationEmailTmpl = `<html>
<body>
  <h2>Welcome to {{ .AppName }}, {{ .FirstName | title }}!</h2>
  <p>Confirm your email address to activate your account:</p>
  <p><a href="{{ .Link }}">Verify Email</a></p>
  <p>This link expires in {{ .ExpiresIn }}. If you didn't create an account, ignore this email.</p>
</body>
</html>`

const passwordResetEmailTmpl = `<html>
<body>
  <h2>Password Reset</h2>
  <p>Hi {{ .FirstName | title }},</p>
  <p>We received a request to reset your {{ .AppName }} password. Click the link below to choose a new one:</p>
  <p><a href="{{ .Link }}">Reset Password</a></p>
  <p>This link expires in {{ .ExpiresIn }} and can be used once. If you didn't request this, ignore this email.</p>
</body>
</html>`

type emailData struct {
	AppName   string
	FirstName string
	Link      string
	ExpiresIn string
}

// Mailer sends transactional emails over SMTP. Sends run through a circuit
// breaker so a dead relay fails fast instead of holding request goroutines
// on connection timeouts.
type Mailer struct {
	cfg        MailerConfig
	breaker    *circuit.Breaker
	verifyTmpl *template.Template
	resetTmpl  *template.Template
}

func NewMailer(cfg MailerConfig, breaker *circuit.Breaker) (*Mailer, error) {
	verifyTmpl, err := template.New("verification").Funcs(sprig.FuncMap()).Parse(verificationEmailTmpl)
	if err != nil {
		return nil, fmt.Errorf("failed to parse verification template: %w", err)
	}

	resetTmpl, err := template.New("password_reset").Funcs(sprig.FuncMap()).Parse(passwordResetEmailTmpl)
	if err != nil {
		return nil, fmt.Errorf("failed to parse reset template: %w", err)
	}

	return &Mailer{
		cfg:        cfg,
		breaker:    breaker,
		verifyTmpl: verifyTmpl,
		resetTmpl:  resetTmpl,
	}, nil
}

// IsEnabled reports whether a relay is configured.
func (m *Mailer) IsEnabled() bool {
	return m.cfg.Host != ""
}

// SendVerificationEmail mails the account activation link.
func (m *Mailer) SendVerificationEmail(ctx context.Context, to, firstName, token, expiresIn string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", m.cfg.BaseURL, token)
	return m.send(ctx, to, "Verify your email address", m.verifyTmpl, emailData{
		AppName:   constants.AppName,
		FirstName: firstName,
		Link:      link,
		ExpiresIn: expiresIn,
	})
}

// SendPasswordResetEmail mails the password reset link.
func (m *Mailer) SendPasswordResetEmail(ctx context.Context, to, firstName, token, expiresIn string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", m.cfg.BaseURL, token)
	return m.send(ctx, to, "Password reset request", m.resetTmpl, emailData{
		AppName:   constants.AppName,
		FirstName: firstName,
		Link:      link,
		ExpiresIn: expiresIn,
	})
}

func (m *Mailer) send(ctx context.Context, to, subject string, tmpl *template.Template, data emailData) error {
	ctx = ctxutil.WithOperation(ctx, "service", "SendEmail")

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		logger.ErrorWithContext(ctx, "Failed to render email template").
			String("template", tmpl.Name()).
			Err(err).
			Log()
		return err
	}

	if !m.IsEnabled() {
		logger.InfoWithContext(ctx, "SMTP not configured, skipping email").
			String("to", to).
			String("subject", subject).
			String("link", data.Link).
			Log()
		return nil
	}

	msg := []byte("From: " + m.cfg.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\"\r\n" +
		"\r\n" +
		body.String())

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	err := m.breaker.Execute(func() error {
		return smtp.SendMail(addr, auth, m.cfg.From, []string{to}, msg)
	})

	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to send email").
			String("to", to).
			String("subject", subject).
			Err(err).
			Log()
		return fmt.Errorf("failed to send email: %w", err)
	}

	logger.InfoWithContext(ctx, "Email sent").
		String("to", to).
		String("subject", subject).
		Log()

	return nil
}

// RenderVerificationEmail renders the verification body without sending.
func (m *Mailer) RenderVerificationEmail(firstName, token, expiresIn string) (string, error) {
	var body bytes.Buffer
	err := m.verifyTmpl.Execute(&body, emailData{
		AppName:   constants.AppName,
		FirstName: firstName,
		Link:      fmt.Sprintf("%s/verify-email?token=%s", m.cfg.BaseURL, token),
		ExpiresIn: expiresIn,
	})
	return body.String(), err
}
