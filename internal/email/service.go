package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/fotoshare/auth-service/internal/logging"
)

// Service delivers transactional mail over SMTP. Methods are designed to be
// called from a goroutine; callers log failures instead of propagating them.
type Service struct {
	smtpHost     string
	smtpPort     string
	smtpUser     string
	smtpPassword string
	fromEmail    string
	frontendURL  string
}

func NewService(smtpHost, smtpPort, smtpUser, smtpPassword, frontendURL string) *Service {
	return &Service{
		smtpHost:     smtpHost,
		smtpPort:     smtpPort,
		smtpUser:     smtpUser,
		smtpPassword: smtpPassword,
		fromEmail:    smtpUser,
		frontendURL:  frontendURL,
	}
}

// SendConfirmation sends the email confirmation link
func (s *Service) SendConfirmation(ctx context.Context, toEmail, username, token string) error {
	logger := logging.GetLoggerFromContext(ctx)

	link := fmt.Sprintf("%s/auth/confirm?token=%s", s.frontendURL, token)

	body, err := renderConfirmationMail(username, link)
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendMail(toEmail, "Confirm your email address", body); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("confirmation email sent", "email", toEmail)
	return nil
}

// SendReset sends the password reset link
func (s *Service) SendReset(ctx context.Context, toEmail, username, token string) error {
	logger := logging.GetLoggerFromContext(ctx)

	link := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, token)

	body, err := renderResetMail(username, link)
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendMail(toEmail, "Reset your password", body); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("password reset email sent", "email", toEmail)
	return nil
}

func (s *Service) sendMail(to, subject, body string) error {
	auth := smtp.PlainAuth("", s.smtpUser, s.smtpPassword, s.smtpHost)

	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		s.fromEmail, to, subject, body,
	))

	addr := fmt.Sprintf("%s:%s", s.smtpHost, s.smtpPort)
	return smtp.SendMail(addr, auth, s.fromEmail, []string{to}, msg)
}

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2>Hi {{.Username}},</h2>
    <p>Thanks for signing up for Fotoshare. Please confirm your email address to activate your account.</p>
    <p><a href="{{.Link}}" style="display: inline-block; background-color: #2563EB; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px;">Confirm email</a></p>
    <p>Or copy and paste this link into your browser:</p>
    <p style="word-break: break-all;">{{.Link}}</p>
    <p>If you didn't create an account, you can safely ignore this email.</p>
    <p style="font-size: 12px; color: #666;">The link expires in 24 hours.</p>
</body>
</html>
`))

var resetTmpl = template.Must(template.New("reset").Parse(`
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2>Hi {{.Username}},</h2>
    <p>You requested a password reset for your Fotoshare account. Click the button below to choose a new password.</p>
    <p><a href="{{.Link}}" style="display: inline-block; background-color: #2563EB; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px;">Reset password</a></p>
    <p>Or copy and paste this link into your browser:</p>
    <p style="word-break: break-all;">{{.Link}}</p>
    <p>If you didn't request a reset, ignore this email and your password stays unchanged.</p>
    <p style="font-size: 12px; color: #666;">The link expires in 1 hour and can be used once.</p>
</body>
</html>
`))

type mailData struct {
	Username string
	Link     string
}

func renderConfirmationMail(username, link string) (string, error) {
	return renderMail(confirmationTmpl, mailData{Username: username, Link: link})
}

func renderResetMail(username, link string) (string, error) {
	return renderMail(resetTmpl, mailData{Username: username, Link: link})
}

func renderMail(tmpl *template.Template, data mailData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}
