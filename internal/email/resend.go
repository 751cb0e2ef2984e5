package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nyashahama/love-letters-backend/internal/outbound"
)

// ResendConfig holds the Resend credentials and sender identities.
type ResendConfig struct {
	APIKey          string
	BaseURL         string // e.g. "https://api.resend.com"
	FromAddr        string // e.g. "hello@dailylovenotes.name.ng"
	WelcomeFromName string // used for the welcome and first-letter emails
	LetterFromName  string // used for the daily letters
}

// resendClient is the concrete Sender backed by the Resend API.
type resendClient struct {
	cfg  ResendConfig
	http *outbound.Client
}

// NewResendClient returns a Sender that delivers email via Resend.
func NewResendClient(cfg ResendConfig, hc *outbound.Client) Sender {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &resendClient{cfg: cfg, http: hc}
}

// NewResendHTTPClient is the outbound client the Resend sender is meant to use.
func NewResendHTTPClient(timeout time.Duration, opts ...outbound.Option) *outbound.Client {
	return outbound.New("resend", timeout, opts...)
}

// ─── RESEND API SHAPES ────────────────────────────────────────────────────────

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
}

type resendResponse struct {
	ID string `json:"id"`

	// Resend reports errors either at the top level or nested under "error".
	Name       string `json:"name"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Error      *struct {
		Name       string `json:"name"`
		Message    string `json:"message"`
		StatusCode int    `json:"statusCode"`
	} `json:"error"`
}

// ─── SENDER IMPLEMENTATION ────────────────────────────────────────────────────

// SendWelcome sends the subscription confirmation email.
func (c *resendClient) SendWelcome(ctx context.Context, p WelcomeParams) error {
	return c.send(ctx, c.cfg.WelcomeFromName, p.To, SubjectWelcome, welcomeHTML())
}

// SendLetter sends a love letter using the first-letter or daily layout.
func (c *resendClient) SendLetter(ctx context.Context, p LetterParams) error {
	if p.First {
		return c.send(ctx, c.cfg.WelcomeFromName, p.To, SubjectFirstLetter, firstLetterHTML(p.Letter))
	}
	return c.send(ctx, c.cfg.LetterFromName, p.To, SubjectDailyLetter, dailyLetterHTML(p.Letter))
}

// ─── HTTP SEND ────────────────────────────────────────────────────────────────

func (c *resendClient) send(ctx context.Context, fromName, to, subject, html string) error {
	text, err := PlainText(html)
	if err != nil {
		return fmt.Errorf("email: render text part: %w", err)
	}

	bodyBytes, err := json.Marshal(resendRequest{
		From:    fmt.Sprintf("%s <%s>", fromName, c.cfg.FromAddr),
		To:      []string{to},
		Subject: subject,
		HTML:    html,
		Text:    text,
	})
	if err != nil {
		return fmt.Errorf("email: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/emails",
		bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return fmt.Errorf("email: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("email: http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("email: read response: %w", err)
	}

	var parsed resendResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return fmt.Errorf("email: unmarshal response (status %d): %w", resp.StatusCode, err)
	}

	if parsed.Error != nil {
		return fmt.Errorf("email: Resend error %s: %s", parsed.Error.Name, parsed.Error.Message)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if parsed.Message != "" {
			return fmt.Errorf("email: Resend error %s (status %d): %s", parsed.Name, resp.StatusCode, parsed.Message)
		}
		return fmt.Errorf("email: unexpected status %d: %.200s", resp.StatusCode, string(respBytes))
	}

	return nil
}
