// internal/pkg/email/smtp.go
package email

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
)

// sendSMTPEmail delivers the message through the configured SMTP relay.
func (s *EmailService) sendSMTPEmail(email *Email) error {
	cfg := s.config.External.Email
	if cfg.SMTPHost == "" || cfg.SMTPUsername == "" {
		return fmt.Errorf("SMTP configuration incomplete: missing host or username")
	}

	auth := smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort)
	msg := buildMessage(cfg.FromEmail, cfg.FromName, cfg.ReplyTo, email)

	if cfg.SMTPUseTLS {
		return s.sendOverTLS(addr, auth, cfg.FromEmail, email.To, msg)
	}
	return smtp.SendMail(addr, auth, cfg.FromEmail, email.To, msg)
}

// buildMessage assembles headers and HTML body in wire format.
func buildMessage(fromEmail, fromName, replyTo string, email *Email) []byte {
	from := fromEmail
	if fromName != "" {
		from = fmt.Sprintf("%s <%s>", fromName, fromEmail)
	}

	var msg bytes.Buffer
	write := func(key, value string) {
		msg.WriteString(key)
		msg.WriteString(": ")
		msg.WriteString(value)
		msg.WriteString("\r\n")
	}

	write("From", from)
	write("To", strings.Join(email.To, ", "))
	write("Subject", email.Subject)
	if replyTo != "" {
		write("Reply-To", replyTo)
	}
	write("MIME-Version", "1.0")
	write("Content-Type", `text/html; charset="utf-8"`)
	msg.WriteString("\r\n")
	msg.WriteString(email.HTMLContent)

	return msg.Bytes()
}

// sendOverTLS is the implicit-TLS path for relays on port 465.
func (s *EmailService) sendOverTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	host := s.config.External.Email.SMTPHost

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
	if err != nil {
		return fmt.Errorf("failed to open TLS connection: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("failed to start SMTP session: %w", err)
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open message body: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return fmt.Errorf("failed to write message body: %w", err)
	}
	return w.Close()
}
