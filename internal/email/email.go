package email

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net"
	"net/smtp"
	"net/url"
	"sort"
	"time"

	"thesis-eval/internal/config"
)

// Service sends transactional email over SMTP
type Service struct {
	config  config.EmailConfig
	appName string
}

// NewService creates a new email service
func NewService(cfg config.EmailConfig, appName string) *Service {
	return &Service{config: cfg, appName: appName}
}

var passwordResetTemplate = template.Must(template.New("password_reset").Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Password Reset</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #4a90e2;">Password Reset Request</h2>
        <p>Hello {{.Name}},</p>
        <p>We received a request to reset your {{.AppName}} password. Click the button below to choose a new one:</p>
        <div style="text-align: center; margin: 30px 0;">
            <a href="{{.ResetURL}}" style="background-color: #4a90e2; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">Reset Password</a>
        </div>
        <p>If the button doesn't work, copy and paste this link into your browser:</p>
        <p style="word-break: break-all; color: #4a90e2;">{{.ResetURL}}</p>
        <p>This link expires in {{.ValidFor}}.</p>
        <p>If you didn't request a password reset, ignore this email. Your password will not be changed.</p>
        <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
        <p style="color: #999; font-size: 12px;">This is an automated email. Please do not reply.</p>
    </div>
</body>
</html>
`))

// SendPasswordResetEmail sends a password reset link
func (s *Service) SendPasswordResetEmail(to, name, token string) error {
	subject := fmt.Sprintf("Password Reset Request - %s", s.appName)

	body, err := s.passwordResetBody(name, token)
	if err != nil {
		return err
	}
	return s.sendEmail(to, subject, body)
}

func (s *Service) passwordResetBody(name, token string) (string, error) {
	if name == "" {
		name = "there"
	}

	var buf bytes.Buffer
	err := passwordResetTemplate.Execute(&buf, map[string]any{
		"Name":     name,
		"AppName":  s.appName,
		"ResetURL": s.resetURL(token),
		"ValidFor": formatValidity(s.config.ResetTokenTTL),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render password reset email: %w", err)
	}
	return buf.String(), nil
}

func (s *Service) resetURL(token string) string {
	u, err := url.Parse(s.config.PasswordResetURL)
	if err != nil {
		return fmt.Sprintf("%s?token=%s", s.config.PasswordResetURL, url.QueryEscape(token))
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

func formatValidity(d time.Duration) string {
	if d <= 0 {
		d = time.Hour
	}
	if d%time.Hour == 0 {
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return fmt.Sprintf("%d minutes", int(d/time.Minute))
}

func (s *Service) buildMessage(to, subject, body string) []byte {
	headers := map[string]string{
		"From":         s.config.SMTPFrom,
		"To":           to,
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=UTF-8",
	}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var message bytes.Buffer
	for _, k := range keys {
		fmt.Fprintf(&message, "%s: %s\r\n", k, headers[k])
	}
	message.WriteString("\r\n")
	message.WriteString(body)
	return message.Bytes()
}

// sendEmail sends an email using SMTP
func (s *Service) sendEmail(to, subject, body string) error {
	if s.config.SMTPHost == "" {
		slog.Warn("SMTP host not configured, dropping email", "to", to, "subject", subject)
		return nil
	}

	addr := net.JoinHostPort(s.config.SMTPHost, s.config.SMTPPort)
	slog.Debug("Attempting to connect to SMTP server", "address", addr)

	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		slog.Error("Failed to connect to SMTP server", "address", addr, "error", err)
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func(conn net.Conn) {
		if err := conn.Close(); err != nil {
			slog.Debug("Failed to close SMTP connection", "error", err)
		}
	}(conn)

	client, err := smtp.NewClient(conn, s.config.SMTPHost)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer func(client *smtp.Client) {
		if err := client.Close(); err != nil {
			slog.Debug("Failed to close SMTP client", "error", err)
		}
	}(client)

	// Mailpit and similar dev servers accept mail without auth
	if s.config.SMTPUsername != "" && s.config.SMTPPassword != "" {
		auth := smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("failed to authenticate with SMTP server: %w", err)
		}
	}

	if err := client.Mail(s.config.SMTPFrom); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to initiate data transfer: %w", err)
	}
	defer func(wc io.WriteCloser) {
		if err := wc.Close(); err != nil {
			slog.Error("Failed to close write closer", "error", err)
		}
	}(wc)

	if _, err := wc.Write(s.buildMessage(to, subject, body)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	slog.Info("Email sent successfully", "to", to, "subject", subject)
	return nil
}
