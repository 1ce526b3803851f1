// Package clinicclient is a typed REST client for the clinic API.
package clinicclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tuina_clinic_backend/internal/models"
)

// ErrUnexpectedShape is returned when a membership list response matches none of the known shapes.
var ErrUnexpectedShape = errors.New("unexpected membership response shape")

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Details != "" {
		return fmt.Sprintf("api error %d (%s): %s: %s", e.StatusCode, e.Code, msg, e.Details)
	}
	return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, msg)
}

// Client talks to the clinic backend under /api/v1.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for the API rooted at baseURL, e.g. http://localhost:8080/api/v1.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetCustomerMemberships fetches every card a customer holds.
func (c *Client) GetCustomerMemberships(ctx context.Context, customerID int64) ([]models.MembershipCard, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/memberships/customer/%d", customerID), nil)
	if err != nil {
		return nil, err
	}
	return NormalizeMemberships(body)
}

// UpdateCardStatus sets a card's stored status.
func (c *Client) UpdateCardStatus(ctx context.Context, cardID int64, status models.CardStatus, reason string) (*models.MembershipCard, error) {
	payload := map[string]string{"status": string(status), "reason": reason}
	body, err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/memberships/%d/status", cardID), payload)
	if err != nil {
		return nil, err
	}
	var card models.MembershipCard
	if err := json.Unmarshal(body, &card); err != nil {
		return nil, fmt.Errorf("decoding card: %w", err)
	}
	return &card, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeAPIError(resp.StatusCode, body)
	}
	return body, nil
}

func decodeAPIError(status int, body []byte) error {
	var envelope struct {
		Error *APIError `json:"error"`
	}
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		apiErr = envelope.Error
		apiErr.StatusCode = status
	}
	return apiErr
}

// NormalizeMemberships accepts a bare card array, {"data": [...]} or {"memberships": [...]}
// and returns the cards.
func NormalizeMemberships(body []byte) ([]models.MembershipCard, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ErrUnexpectedShape
	}

	if trimmed[0] == '[' {
		var cards []models.MembershipCard
		if err := json.Unmarshal(trimmed, &cards); err != nil {
			return nil, fmt.Errorf("decoding card list: %w", err)
		}
		return cards, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	for _, key := range []string{"data", "memberships"} {
		raw, ok := wrapped[key]
		if !ok {
			continue
		}
		if string(bytes.TrimSpace(raw)) == "null" {
			return []models.MembershipCard{}, nil
		}
		var cards []models.MembershipCard
		if err := json.Unmarshal(raw, &cards); err != nil {
			return nil, fmt.Errorf("decoding %q: %w", key, err)
		}
		return cards, nil
	}
	return nil, ErrUnexpectedShape
}
