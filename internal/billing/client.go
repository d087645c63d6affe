package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrPaymentDeclined is returned when the payment function rejects the
// charge rather than failing to process it.
var ErrPaymentDeclined = errors.New("payment declined")

// Client calls the hosted payment function for one-off charges
// (template purchases) and recurring plan charges.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type ChargeInput struct {
	UserID      uint   `json:"user_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Reference   string `json:"reference"`
}

type ChargeResult struct {
	ChargeID string `json:"charge_id"`
	Status   string `json:"status"`
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Charge executes a payment. A 402 from the function maps to
// ErrPaymentDeclined; other non-2xx statuses are treated as failures.
func (c *Client) Charge(ctx context.Context, input ChargeInput) (*ChargeResult, error) {
	if input.AmountCents <= 0 {
		return nil, fmt.Errorf("charge amount must be positive")
	}
	if input.Currency == "" {
		input.Currency = "USD"
	}

	bodyBytes, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("marshal charge request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/charges", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build charge request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("charge request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read charge response failed: %w", err)
	}
	if resp.StatusCode == http.StatusPaymentRequired {
		return nil, ErrPaymentDeclined
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("charge response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed ChargeResult
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse charge json failed: %w", err)
	}
	if parsed.ChargeID == "" {
		return nil, fmt.Errorf("charge response missing charge id")
	}
	return &parsed, nil
}
