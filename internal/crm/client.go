package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Contact describes the payload synced to the CRM when an account is created.
type Contact struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	Source      string `json:"source"`
}

// ContactSyncer pushes new-account contacts to a third-party CRM. Callers
// treat it as best-effort: failures are logged and never abort signup.
type ContactSyncer interface {
	CreateContact(ctx context.Context, contact Contact) error
}

// Config holds the HTTP CRM client settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPClient implements ContactSyncer against a JSON-over-HTTP CRM endpoint.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient constructs a CRM client. The HTTP client carries its own
// timeout so a slow CRM cannot block callers beyond it.
func NewHTTPClient(cfg Config) (*HTTPClient, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("crm client: base url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// CreateContact posts the contact to the CRM.
func (c *HTTPClient) CreateContact(ctx context.Context, contact Contact) error {
	if strings.TrimSpace(contact.Email) == "" {
		return errors.New("crm client: contact email is required")
	}

	payload, err := json.Marshal(contact)
	if err != nil {
		return fmt.Errorf("crm client: marshal contact: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/contacts", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("crm client: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("crm client: create contact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("crm client: create contact: unexpected status %d", resp.StatusCode)
	}
	return nil
}
