package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.stripe.com"

// Client talks to the payment processor's REST API. The secret key lives
// here, server-side, and never reaches a client.
type Client struct {
	secret  string
	baseURL string
	httpc   *http.Client
}

func NewClient(secret string) *Client {
	return &Client{
		secret:  secret,
		baseURL: defaultBaseURL,
		httpc:   &http.Client{Timeout: 15 * time.Second},
	}
}

// NewClientWithBaseURL points the client at a different host (tests).
func NewClientWithBaseURL(secret, baseURL string) *Client {
	c := NewClient(secret)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// Intent is the processor's payment authorization. Metadata carries the
// (user, event) binding stamped at creation time.
type Intent struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret"`
	Status       string            `json:"status"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Metadata     map[string]string `json:"metadata"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// CreatePaymentIntent requests an authorization for amountMinor in the given
// currency. Metadata rides along for reconciliation.
func (c *Client) CreatePaymentIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*Intent, error) {
	if c.secret == "" {
		return nil, errors.New("payment processor secret not configured")
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountMinor, 10))
	form.Set("currency", currency)
	form.Add("payment_method_types[]", "card")
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	return c.do(ctx, http.MethodPost, "/v1/payment_intents", form)
}

// RetrievePaymentIntent fetches the current state of an intent.
func (c *Client) RetrievePaymentIntent(ctx context.Context, id string) (*Intent, error) {
	if c.secret == "" {
		return nil, errors.New("payment processor secret not configured")
	}
	return c.do(ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(id), nil)
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values) (*Intent, error) {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment processor request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("payment processor: %s", apiErr.Error.Message)
		}
		return nil, fmt.Errorf("payment processor: status %d", resp.StatusCode)
	}

	var intent Intent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return nil, fmt.Errorf("decode intent: %w", err)
	}
	if intent.ClientSecret == "" && method == http.MethodPost {
		return nil, errors.New("payment processor returned no client secret")
	}
	return &intent, nil
}
