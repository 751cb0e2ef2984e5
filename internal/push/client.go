package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nyashahama/love-letters-backend/internal/outbound"
)

// Config configures the push Client.
type Config struct {
	PublicKey   string
	PrivateKey  string
	Subject     string // mailto: or https: contact for the push service
	TTL         time.Duration
	Timeout     time.Duration
	Concurrency int
	UserAgent   string // empty keeps the outbound default
}

// Client sends encrypted notifications. One outbound client (and so one
// breaker) is kept per push service host.
type Client struct {
	vapid       *vapid
	ttl         time.Duration
	timeout     time.Duration
	concurrency int
	userAgent   string
	now         func() time.Time
	random      io.Reader

	mu    sync.Mutex
	hosts map[string]*outbound.Client
}

// NewClient builds a Client. With no keys it returns a Client whose sends
// fail with ErrNotConfigured; with malformed keys it returns an error.
func NewClient(cfg Config) (*Client, error) {
	c := &Client{
		ttl:         cfg.TTL,
		timeout:     cfg.Timeout,
		concurrency: cfg.Concurrency,
		userAgent:   cfg.UserAgent,
		now:         time.Now,
		random:      defaultRandom,
		hosts:       make(map[string]*outbound.Client),
	}
	if c.ttl <= 0 {
		c.ttl = 24 * time.Hour
	}
	if c.timeout <= 0 {
		c.timeout = 10 * time.Second
	}
	if c.concurrency <= 0 {
		c.concurrency = 8
	}

	if cfg.PublicKey == "" && cfg.PrivateKey == "" {
		return c, nil
	}
	v, err := parseVAPID(cfg.PublicKey, cfg.PrivateKey, cfg.Subject)
	if err != nil {
		return nil, err
	}
	c.vapid = v
	return c, nil
}

// Configured reports whether a VAPID key pair is loaded.
func (c *Client) Configured() bool { return c.vapid != nil }

// PublicKey returns the base64url application server key browsers pass to
// pushManager.subscribe, or "" when unconfigured.
func (c *Client) PublicKey() string {
	if c.vapid == nil {
		return ""
	}
	return c.vapid.publicB64
}

func (c *Client) httpFor(endpoint string) *outbound.Client {
	host := endpoint
	if u, err := url.Parse(endpoint); err == nil {
		host = u.Host
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	hc, ok := c.hosts[host]
	if !ok {
		var opts []outbound.Option
		if c.userAgent != "" {
			opts = append(opts, outbound.WithUserAgent(c.userAgent))
		}
		hc = outbound.New("push:"+host, c.timeout, opts...)
		c.hosts[host] = hc
	}
	return hc
}

// Send delivers one notification payload to sub and reports the outcome.
func (c *Client) Send(ctx context.Context, sub Subscription, body []byte) Result {
	res := Result{Endpoint: sub.Endpoint}
	if c.vapid == nil {
		res.Error = ErrNotConfigured.Error()
		return res
	}

	status, err := c.send(ctx, sub, body)
	res.Status = status
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Success = true
	return res
}

func (c *Client) send(ctx context.Context, sub Subscription, body []byte) (int, error) {
	auth, err := c.vapid.authorization(sub.Endpoint, c.now())
	if err != nil {
		return 0, err
	}
	encrypted, err := encrypt(body, sub.Keys, c.random)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.Endpoint, bytes.NewReader(encrypted))
	if err != nil {
		return 0, fmt.Errorf("push: build request: %w", err)
	}
	req.Header.Set("Authorization", auth)
	req.Header.Set("Content-Encoding", "aes128gcm")
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("TTL", strconv.Itoa(int(c.ttl.Seconds())))
	req.Header.Set("Urgency", "normal")

	resp, err := c.httpFor(sub.Endpoint).Do(req)
	if err != nil {
		return 0, fmt.Errorf("push: http request: %w", err)
	}
	defer resp.Body.Close()
	respBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return resp.StatusCode, ErrGone
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return resp.StatusCode, fmt.Errorf("push: unexpected status %d: %.200s", resp.StatusCode, string(respBytes))
	}
	return resp.StatusCode, nil
}

// ─── BROADCASTER ──────────────────────────────────────────────────────────────

// SubscriptionStore is the slice of the store the broadcaster needs.
type SubscriptionStore interface {
	ListPushSubscriptions(ctx context.Context) ([]Subscription, error)
	DeletePushSubscription(ctx context.Context, endpoint string) error
}

// Broadcaster sends one notification to every stored subscription.
type Broadcaster struct {
	client *Client
	store  SubscriptionStore
	logger *slog.Logger
}

// NewBroadcaster wires a Client to the subscription store.
func NewBroadcaster(client *Client, store SubscriptionStore, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{client: client, store: store, logger: logger}
}

// PublicKey is the application server key browsers subscribe with.
func (b *Broadcaster) PublicKey() string { return b.client.PublicKey() }

// NotifyAll delivers n to every subscription, each independently. Results
// keep the store's order. Subscriptions the push service reports gone are
// deleted. The returned error is only for configuration or store failures.
func (b *Broadcaster) NotifyAll(ctx context.Context, n Notification) ([]Result, error) {
	if !b.client.Configured() {
		return nil, ErrNotConfigured
	}

	subs, err := b.store.ListPushSubscriptions(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(buildPayload(n, b.client.now()))
	if err != nil {
		return nil, fmt.Errorf("push: marshal payload: %w", err)
	}

	results := make([]Result, len(subs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.client.concurrency)
	for i, sub := range subs {
		g.Go(func() error {
			results[i] = b.client.Send(gctx, sub, body)
			if results[i].Status == http.StatusNotFound || results[i].Status == http.StatusGone {
				if err := b.store.DeletePushSubscription(gctx, sub.Endpoint); err != nil {
					b.logger.Warn("failed to prune push subscription", "endpoint", sub.Endpoint, "error", err)
				} else {
					b.logger.Info("pruned expired push subscription", "endpoint", sub.Endpoint)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	sent := 0
	for _, r := range results {
		if r.Success {
			sent++
		}
	}
	b.logger.Info("push notifications sent", "attempted", len(results), "succeeded", sent)
	return results, nil
}
