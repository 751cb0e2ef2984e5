// Package whatsapp sends text messages through the WhatsApp Cloud API
// (graph.facebook.com/{version}/{phone-number-id}/messages).
package whatsapp

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

	"github.com/nyashahama/love-letters-backend/internal/outbound"
)

// ErrNotConfigured is returned by every send when the access token or the
// phone number id is missing.
var ErrNotConfigured = errors.New("WhatsApp credentials not configured")

// Sender is the interface the delivery orchestrator uses for WhatsApp.
type Sender interface {
	SendWelcome(ctx context.Context, phone string) error
	SendLetter(ctx context.Context, phone, letter string, first bool) error
}

// Config holds the Cloud API credentials.
type Config struct {
	AccessToken   string
	PhoneNumberID string
	APIVersion    string // e.g. "v18.0"
	BaseURL       string // e.g. "https://graph.facebook.com"
}

// Client is the Cloud API Sender.
type Client struct {
	cfg  Config
	http *outbound.Client
}

// NewClient returns a Client. Missing credentials are not an error here; the
// client reports ErrNotConfigured when it is asked to send.
func NewClient(cfg Config, hc *outbound.Client) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: hc}
}

// NewHTTPClient is the outbound client the WhatsApp sender is meant to use.
func NewHTTPClient(timeout time.Duration, opts ...outbound.Option) *outbound.Client {
	return outbound.New("whatsapp", timeout, opts...)
}

// Configured reports whether both credentials are present.
func (c *Client) Configured() bool {
	return c.cfg.AccessToken != "" && c.cfg.PhoneNumberID != ""
}

// SendWelcome sends the subscription confirmation message.
func (c *Client) SendWelcome(ctx context.Context, phone string) error {
	return c.SendText(ctx, phone, welcomeMessage)
}

// SendLetter sends a love letter wrapped in the first-letter or daily frame.
func (c *Client) SendLetter(ctx context.Context, phone, letter string, first bool) error {
	if first {
		return c.SendText(ctx, phone, firstLetterMessage(letter))
	}
	return c.SendText(ctx, phone, dailyLetterMessage(letter))
}

// ─── CLOUD API SHAPES ─────────────────────────────────────────────────────────

type textMessage struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

type graphResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendText posts one text message to phone.
func (c *Client) SendText(ctx context.Context, phone, body string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	to := Address(phone)
	if to == "" {
		return fmt.Errorf("whatsapp: empty recipient")
	}

	msg := textMessage{MessagingProduct: "whatsapp", To: to, Type: "text"}
	msg.Text.Body = body

	bodyBytes, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("whatsapp: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s/messages", c.cfg.BaseURL, c.cfg.APIVersion, c.cfg.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("whatsapp: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("whatsapp: read response: %w", err)
	}

	var parsed graphResponse
	_ = json.Unmarshal(respBytes, &parsed)

	if parsed.Error != nil {
		return fmt.Errorf("whatsapp: API error %d (%s): %s", parsed.Error.Code, parsed.Error.Type, parsed.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("whatsapp: unexpected status %d: %.200s", resp.StatusCode, string(respBytes))
	}
	return nil
}

// Address converts a stored phone number into the Cloud API "to" format:
// digits only, no "+", spaces, dashes or parentheses.
func Address(phone string) string {
	return strings.NewReplacer("+", "", " ", "", "-", "", "(", "", ")", "").Replace(phone)
}
