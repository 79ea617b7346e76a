// internal/pkg/email/providers.go
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// API provider clients. Both speak JSON over a bearer-authenticated POST;
// only the payload shape differs.

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

type sendGridRequest struct {
	Personalizations []sendGridRecipients `json:"personalizations"`
	From             sendGridEmail        `json:"from"`
	Subject          string               `json:"subject"`
	Content          []sendGridContent    `json:"content"`
	ReplyTo          *sendGridEmail       `json:"reply_to,omitempty"`
}

type sendGridRecipients struct {
	To []sendGridEmail `json:"to"`
}

type sendGridEmail struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (s *EmailService) sendResendEmail(ctx context.Context, email *Email) error {
	from := s.config.External.Email.FromEmail
	if name := s.config.External.Email.FromName; name != "" {
		from = fmt.Sprintf("%s <%s>", name, from)
	}

	payload := resendRequest{
		From:    from,
		To:      email.To,
		Subject: email.Subject,
		HTML:    email.HTMLContent,
		ReplyTo: s.config.External.Email.ReplyTo,
	}
	return s.postProvider(ctx, "resend", "https://api.resend.com/emails", payload, http.StatusOK)
}

func (s *EmailService) sendSendGridEmail(ctx context.Context, email *Email) error {
	to := make([]sendGridEmail, 0, len(email.To))
	for _, recipient := range email.To {
		to = append(to, sendGridEmail{Email: recipient})
	}

	var replyTo *sendGridEmail
	if s.config.External.Email.ReplyTo != "" {
		replyTo = &sendGridEmail{Email: s.config.External.Email.ReplyTo}
	}

	payload := sendGridRequest{
		Personalizations: []sendGridRecipients{{To: to}},
		From: sendGridEmail{
			Email: s.config.External.Email.FromEmail,
			Name:  s.config.External.Email.FromName,
		},
		Subject: email.Subject,
		Content: []sendGridContent{{Type: "text/html", Value: email.HTMLContent}},
		ReplyTo: replyTo,
	}
	return s.postProvider(ctx, "sendgrid", "https://api.sendgrid.com/v3/mail/send", payload, http.StatusAccepted)
}

// postProvider sends one JSON payload to an email API.
func (s *EmailService) postProvider(ctx context.Context, provider, url string, payload interface{}, wantStatus int) error {
	apiKey := s.config.External.Email.APIKey
	if apiKey == "" {
		return fmt.Errorf("%s API key not configured", provider)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", provider, err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return fmt.Errorf("%s returned status %d", provider, resp.StatusCode)
	}
	return nil
}
