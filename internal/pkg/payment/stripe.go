// internal/pkg/payment/stripe.go
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/your-org/commerce-api/internal/config"
)

// StripeClient talks to the Stripe REST API for customer setup and one-off
// card charges.
type StripeClient struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

// NewStripeClient creates a new Stripe API client
func NewStripeClient(cfg *config.Config) *StripeClient {
	return &StripeClient{
		secretKey: cfg.External.Stripe.SecretKey,
		baseURL:   strings.TrimRight(cfg.External.Stripe.APIBaseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type stripeCustomer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type stripeCustomerList struct {
	Data []stripeCustomer `json:"data"`
}

type stripePaymentIntent struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type stripeErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// EnsureCustomer returns the ID of an existing Stripe customer with the given
// email, creating one when none exists.
func (c *StripeClient) EnsureCustomer(ctx context.Context, email, name string) (string, error) {
	if email != "" {
		query := url.Values{}
		query.Set("email", email)
		query.Set("limit", "1")

		body, err := c.call(ctx, http.MethodGet, "/customers?"+query.Encode(), nil)
		if err != nil {
			return "", err
		}

		var list stripeCustomerList
		if err := json.Unmarshal(body, &list); err != nil {
			return "", fmt.Errorf("failed to parse customer list: %w", err)
		}
		if len(list.Data) > 0 {
			return list.Data[0].ID, nil
		}
	}

	form := url.Values{}
	form.Set("name", name)
	if email != "" {
		form.Set("email", email)
	}

	body, err := c.call(ctx, http.MethodPost, "/customers", form)
	if err != nil {
		return "", err
	}

	var customer stripeCustomer
	if err := json.Unmarshal(body, &customer); err != nil {
		return "", fmt.Errorf("failed to parse customer response: %w", err)
	}
	return customer.ID, nil
}

// Charge creates and confirms a payment intent for the given amount in minor
// units and returns its ID.
func (c *StripeClient) Charge(ctx context.Context, customerID string, amountMinor int64, currency, description string) (string, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountMinor, 10))
	form.Set("currency", strings.ToLower(currency))
	form.Set("customer", customerID)
	form.Set("description", description)
	form.Set("confirm", "true")
	form.Set("automatic_payment_methods[enabled]", "true")
	form.Set("automatic_payment_methods[allow_redirects]", "never")

	body, err := c.call(ctx, http.MethodPost, "/payment_intents", form)
	if err != nil {
		return "", err
	}

	var intent stripePaymentIntent
	if err := json.Unmarshal(body, &intent); err != nil {
		return "", fmt.Errorf("failed to parse payment intent response: %w", err)
	}
	if intent.Status != "succeeded" && intent.Status != "processing" {
		return "", fmt.Errorf("payment intent %s not completed: status %s", intent.ID, intent.Status)
	}
	return intent.ID, nil
}

// call makes an authenticated form-encoded request to the Stripe API
func (c *StripeClient) call(ctx context.Context, method, endpoint string, form url.Values) ([]byte, error) {
	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stripe request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read stripe response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr stripeErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("stripe error (%s): %s", apiErr.Error.Type, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("stripe API call failed with status %d", resp.StatusCode)
	}

	return body, nil
}
