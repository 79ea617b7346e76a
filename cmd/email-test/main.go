// cmd/email-test/main.go
//
// Sends a test email through the configured provider. Useful for verifying
// SMTP or API credentials before a deploy.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/your-org/commerce-api/internal/config"
	"github.com/your-org/commerce-api/internal/pkg/email"
)

func main() {
	to := flag.String("to", "", "recipient address")
	flag.Parse()

	if *to == "" {
		log.Fatal("usage: email-test -to recipient@example.com")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	emailService := email.NewEmailService(cfg, nil)

	testEmail := &email.Email{
		To:          []string{*to},
		Subject:     "Test email",
		HTMLContent: "<h1>Success</h1><p>Email delivery is working.</p>",
		Type:        "test",
	}

	if err := emailService.SendEmail(context.Background(), testEmail); err != nil {
		log.Fatalf("send failed: %v", err)
	}

	log.Println("email sent successfully")
}
