// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/your-org/commerce-api/internal/config"
)

// templateNames lists the templates loaded at startup. A missing file falls
// back to a plain built-in layout instead of failing the boot.
var templateNames = []string{"welcome", "password_reset", "order_confirmation"}

// EmailService renders templates and hands messages to the configured
// provider. All sends are synchronous; callers decide whether a failure is
// fatal.
type EmailService struct {
	config    *config.Config
	templates map[string]*template.Template
	client    *http.Client
	log       *logrus.Logger
}

// NewEmailService creates the email service and loads its templates.
func NewEmailService(cfg *config.Config, log *logrus.Logger) *EmailService {
	if log == nil {
		log = logrus.New()
	}
	s := &EmailService{
		config:    cfg,
		templates: make(map[string]*template.Template, len(templateNames)),
		client:    &http.Client{Timeout: 30 * time.Second},
		log:       log,
	}
	s.loadTemplates()
	return s
}

// SendEmail dispatches to the configured provider. The "log" provider only
// records the message, for development.
func (s *EmailService) SendEmail(ctx context.Context, email *Email) error {
	switch s.config.External.Email.Provider {
	case "smtp":
		return s.sendSMTPEmail(email)
	case "sendgrid":
		return s.sendSendGridEmail(ctx, email)
	case "resend":
		return s.sendResendEmail(ctx, email)
	case "log":
		s.log.WithFields(logrus.Fields{
			"to":      email.To,
			"subject": email.Subject,
			"type":    email.Type,
		}).Info("email suppressed by log provider")
		return nil
	default:
		return fmt.Errorf("unsupported email provider: %s", s.config.External.Email.Provider)
	}
}

// SendWelcomeEmail greets a newly registered user.
func (s *EmailService) SendWelcomeEmail(ctx context.Context, userEmail, userName string) error {
	data := WelcomeEmailData{
		EmailTemplateData: s.baseData(userName, userEmail),
		ShopURL:           s.config.External.Email.BaseURL,
	}

	htmlContent, err := s.renderTemplate("welcome", data)
	if err != nil {
		return err
	}

	return s.SendEmail(ctx, &Email{
		To:          []string{userEmail},
		Subject:     fmt.Sprintf("Welcome to %s!", s.siteName()),
		HTMLContent: htmlContent,
		Type:        EmailTypeWelcome,
	})
}

// SendPasswordResetEmail mails a reset link built from the token.
func (s *EmailService) SendPasswordResetEmail(ctx context.Context, userEmail, userName, resetToken string) error {
	data := PasswordResetData{
		EmailTemplateData: s.baseData(userName, userEmail),
		ResetURL:          fmt.Sprintf("%s/reset-password?token=%s", s.config.External.Email.BaseURL, resetToken),
		ExpiryTime:        "24 hours",
	}

	htmlContent, err := s.renderTemplate("password_reset", data)
	if err != nil {
		return err
	}

	return s.SendEmail(ctx, &Email{
		To:          []string{userEmail},
		Subject:     "Reset Your Password",
		HTMLContent: htmlContent,
		Type:        EmailTypePasswordReset,
	})
}

// SendOrderConfirmationEmail mails the order receipt.
func (s *EmailService) SendOrderConfirmationEmail(ctx context.Context, data OrderConfirmationData) error {
	data.EmailTemplateData = s.baseData(data.UserName, data.UserEmail)

	htmlContent, err := s.renderTemplate("order_confirmation", data)
	if err != nil {
		return err
	}

	return s.SendEmail(ctx, &Email{
		To:          []string{data.UserEmail},
		Subject:     fmt.Sprintf("Order Confirmation - %s", data.OrderNumber),
		HTMLContent: htmlContent,
		Type:        EmailTypeOrderConfirmation,
	})
}

func (s *EmailService) baseData(userName, userEmail string) EmailTemplateData {
	return GetBaseTemplateData(s.siteName(), s.config.External.Email.BaseURL, userName, userEmail)
}

func (s *EmailService) siteName() string {
	if s.config.External.Email.FromName != "" {
		return s.config.External.Email.FromName
	}
	return s.config.App.Name
}

func (s *EmailService) loadTemplates() {
	dir := s.config.External.Email.TemplateDir
	if dir == "" {
		dir = "./templates/emails"
	}

	for _, name := range templateNames {
		tmpl, err := template.ParseFiles(filepath.Join(dir, name+".html"))
		if err != nil {
			s.log.WithError(err).WithField("template", name).Warn("email template missing, using fallback")
			tmpl = fallbackTemplate(name)
		}
		s.templates[name] = tmpl
	}
}

func (s *EmailService) renderTemplate(name string, data interface{}) (string, error) {
	tmpl, ok := s.templates[name]
	if !ok {
		return "", fmt.Errorf("email template %s not loaded", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render email template %s: %w", name, err)
	}
	return buf.String(), nil
}

const fallbackHTML = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.SiteName}}</title></head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f4f4f4;">
  <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
    <h1 style="color: #333;">{{.SiteName}}</h1>
    <p>Hello {{.UserName}},</p>
    <p>This is a notification from {{.SiteName}}.</p>
    <p>Best regards,<br>{{.SiteName}} Team</p>
    <hr>
    <p style="font-size: 12px; color: #666;">&copy; {{.Year}} {{.SiteName}}. All rights reserved.</p>
  </div>
</body>
</html>`

func fallbackTemplate(name string) *template.Template {
	return template.Must(template.New(name).Parse(fallbackHTML))
}
