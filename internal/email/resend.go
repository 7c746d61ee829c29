package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultTimeout = 15 * time.Second
	// DefaultResendURL is the Resend send endpoint.
	DefaultResendURL = "https://api.resend.com/emails"
)

// ResendSender sends email through the Resend HTTP API.
// See https://resend.com/docs/api-reference/emails/send-email.
type ResendSender struct {
	APIKey     string
	BaseURL    string
	From       string
	HTTPClient *http.Client
}

// NewResendSender returns a sender using apiKey. An empty baseURL uses DefaultResendURL.
func NewResendSender(apiKey, baseURL, from string) *ResendSender {
	if baseURL == "" {
		baseURL = DefaultResendURL
	}
	return &ResendSender{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		From:       from,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Send posts msg to Resend. Any non-2xx answer is an error carrying the response body.
func (c *ResendSender) Send(ctx context.Context, msg Message) error {
	if c.APIKey == "" {
		return fmt.Errorf("email: resend API key not configured")
	}
	raw, err := json.Marshal(resendRequest{From: c.From, To: []string{msg.To}, Subject: msg.Subject, HTML: msg.HTML})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("email: resend request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
