package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyashahama/love-letters-backend/internal/api"
	"github.com/nyashahama/love-letters-backend/internal/delivery"
	"github.com/nyashahama/love-letters-backend/internal/letter"
	"github.com/nyashahama/love-letters-backend/internal/push"
	"github.com/nyashahama/love-letters-backend/internal/server"
	"github.com/nyashahama/love-letters-backend/internal/subscriber"
	"github.com/nyashahama/love-letters-backend/internal/whatsapp"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

// stubDeliverer records requests and returns canned results. When subscribe
// is nil it validates with the real domain rules and succeeds on every channel.
type stubDeliverer struct {
	requests  []delivery.Request
	subscribe func(delivery.Request) (delivery.SubscribeResult, error)

	broadcasts   int
	stats        delivery.BroadcastStats
	broadcastErr error
	broadcastFor time.Duration
}

func (d *stubDeliverer) Subscribe(_ context.Context, req delivery.Request) (delivery.SubscribeResult, error) {
	d.requests = append(d.requests, req)
	if d.subscribe != nil {
		return d.subscribe(req)
	}
	sub, err := subscriber.New(req.Email, req.PhoneNumber, req.Preference)
	if err != nil {
		return delivery.SubscribeResult{}, err
	}
	res := delivery.SubscribeResult{Subscriber: sub}
	for _, ch := range sub.Channels() {
		res.Channels = append(res.Channels, delivery.ChannelResult{Channel: ch, ConfirmationSent: true, LoveLetterSent: true})
	}
	return res, nil
}

func (d *stubDeliverer) Broadcast(ctx context.Context) (delivery.BroadcastStats, error) {
	d.broadcasts++
	time.Sleep(d.broadcastFor)
	if _, ok := ctx.Deadline(); !ok {
		return delivery.BroadcastStats{}, errors.New("broadcast context has no deadline")
	}
	return d.stats, d.broadcastErr
}

type stubLetters struct {
	l letter.Letter
}

func (s *stubLetters) Generate(_ context.Context, v letter.Variant) letter.Letter {
	l := s.l
	l.Variant = v
	return l
}

type stubPushSubs struct {
	saved []push.Subscription
	err   error
}

func (s *stubPushSubs) UpsertPushSubscription(_ context.Context, sub push.Subscription) error {
	s.saved = append(s.saved, sub)
	return s.err
}

type stubPush struct {
	publicKey string
	results   []push.Result
	err       error
	sent      []push.Notification
}

func (s *stubPush) PublicKey() string { return s.publicKey }

func (s *stubPush) NotifyAll(_ context.Context, n push.Notification) ([]push.Result, error) {
	s.sent = append(s.sent, n)
	return s.results, s.err
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

// ─── HELPERS ─────────────────────────────────────────────────────────────────

type testDeps struct {
	delivery *stubDeliverer
	letters  *stubLetters
	pushSubs *stubPushSubs
	push     *stubPush
	pinger   *stubPinger
	handler  http.Handler
}

func newTestServer(t *testing.T, cfgOverrides ...func(*api.Config)) *testDeps {
	t.Helper()

	deps := &testDeps{
		delivery: &stubDeliverer{},
		letters: &stubLetters{l: letter.Letter{
			Text: "My dearest,\n\nGood morning.",
			Day:  time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		}},
		pushSubs: &stubPushSubs{},
		push:     &stubPush{publicKey: "BPubKey"},
		pinger:   &stubPinger{},
	}

	var cfg api.Config
	for _, fn := range cfgOverrides {
		fn(&cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	deps.handler = api.NewServer(api.Deps{
		Delivery: deps.delivery,
		Letters:  deps.letters,
		PushSubs: deps.pushSubs,
		Push:     deps.push,
		DB:       deps.pinger,
	}, cfg, logger)
	return deps
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		bodyReader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, bodyReader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(dst); err != nil {
		t.Fatalf("decode response body: %v (raw: %s)", err, rr.Body.String())
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// ─── HEALTH ───────────────────────────────────────────────────────────────────

func TestHealthz(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodGet, "/healthz", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestReadyz(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodGet, "/readyz", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	deps.pinger.err = errors.New("connection refused")
	rr = doRequest(t, deps.handler, http.MethodGet, "/readyz", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

// ─── CORS ─────────────────────────────────────────────────────────────────────

func TestCORS_PreflightReturns204(t *testing.T) {
	deps := newTestServer(t)
	for _, path := range []string{"/api/subscribe", "/api/subscribe/channel", "/api/push/subscriptions", "/api/broadcasts/daily"} {
		rr := doRequest(t, deps.handler, http.MethodOptions, path, nil, map[string]string{
			"Origin":                        "https://dailylovenotes.name.ng",
			"Access-Control-Request-Method": "POST",
		})
		assert.Equal(t, http.StatusNoContent, rr.Code, path)
		assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"), path)
	}
	assert.Empty(t, deps.delivery.requests, "preflight must not reach a handler")
}

func TestCORS_HeadersOnEveryResponse(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodPost, "/api/subscribe", map[string]string{"email": "bad"}, nil)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

// ─── POST /api/subscribe ──────────────────────────────────────────────────────

func TestSubscribe_Success(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodPost, "/api/subscribe", map[string]string{"email": "a@b.co"}, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Details struct {
			ConfirmationSent bool `json:"confirmationSent"`
			LoveLetterSent   bool `json:"loveLetterSent"`
		} `json:"details"`
	}
	decodeJSON(t, rr, &resp)
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Message, "Check your inbox")
	assert.True(t, resp.Details.ConfirmationSent)
	assert.True(t, resp.Details.LoveLetterSent)

	require.Len(t, deps.delivery.requests, 1)
	assert.Equal(t, subscriber.PreferenceEmail, deps.delivery.requests[0].Preference)
}

func TestSubscribe_InvalidEmailReturns400(t *testing.T) {
	for _, body := range []map[string]string{{"email": "not-an-email"}, {"email": ""}, {}} {
		deps := newTestServer(t)
		rr := doRequest(t, deps.handler, http.MethodPost, "/api/subscribe", body, nil)
		require.Equal(t, http.StatusBadRequest, rr.Code, "body %v", body)

		var resp errorBody
		decodeJSON(t, rr, &resp)
		assert.Equal(t, "Invalid email address", resp.Error)
	}
}

func TestSubscribe_InvalidJSONReturns400(t *testing.T) {
	deps := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/subscribe", bytes.NewBufferString(`{bad json`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	deps.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	assert.Empty(t, deps.delivery.requests)
}

func TestSubscribe_UnknownFieldsReturns400(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodPost, "/api/subscribe",
		map[string]string{"email": "a@b.co", "unknown_field": "value"}, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestSubscribe_ConfirmationFailureReturns500WithReason(t *testing.T) {
	deps := newTestServer(t)
	deps.delivery.subscribe = func(delivery.Request) (delivery.SubscribeResult, error) {
		res := delivery.SubscribeResult{Channels: []delivery.ChannelResult{
			{Channel: subscriber.ChannelEmail, Error: "email welcome message failed: resend: 422"},
		}}
		return res, errors.Join(delivery.ErrConfirmationFailed, errors.New("resend: 422"))
	}

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/subscribe", map[string]string{"email": "a@b.co"}, nil)
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	var resp errorBody
	decodeJSON(t, rr, &resp)
	assert.Equal(t, "email welcome message failed: resend: 422", resp.Error)
}

func TestSubscribe_StoreFailureHidesDetails(t *testing.T) {
	deps := newTestServer(t)
	deps.delivery.subscribe = func(delivery.Request) (delivery.SubscribeResult, error) {
		return delivery.SubscribeResult{}, fmt.Errorf("delivery: store subscriber: %w", errors.New("pq: password authentication failed"))
	}

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/subscribe", map[string]string{"email": "a@b.co"}, nil)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "password")
}

// ─── POST /api/subscribe/channel ──────────────────────────────────────────────

func TestSubscribeChannel_Both(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodPost, "/api/subscribe/channel", map[string]string{
		"email":               "a@b.co",
		"phone_number":        "(123) 456-7890",
		"delivery_preference": "both",
	}, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Success bool `json:"success"`
		Details struct {
			Channels []delivery.ChannelResult `json:"channels"`
		} `json:"details"`
	}
	decodeJSON(t, rr, &resp)
	assert.True(t, resp.Success)
	require.Len(t, resp.Details.Channels, 2)
	assert.Equal(t, subscriber.ChannelEmail, resp.Details.Channels[0].Channel)
	assert.Equal(t, subscriber.ChannelWhatsApp, resp.Details.Channels[1].Channel)
}

func TestSubscribeChannel_WhatsAppWithoutPhoneReturns400(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodPost, "/api/subscribe/channel", map[string]string{
		"email":               "a@b.co",
		"delivery_preference": "whatsapp",
	}, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp errorBody
	decodeJSON(t, rr, &resp)
	assert.Equal(t, "Phone number is required for WhatsApp delivery", resp.Error)
}

func TestSubscribeChannel_UnknownPreferenceReturns400(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodPost, "/api/subscribe/channel", map[string]string{
		"email":               "a@b.co",
		"delivery_preference": "carrier-pigeon",
	}, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp errorBody
	decodeJSON(t, rr, &resp)
	assert.Contains(t, resp.Error, "delivery_preference")
	assert.Empty(t, deps.delivery.requests)
}

func TestSubscribeChannel_WhatsAppNotConfiguredReturns500(t *testing.T) {
	deps := newTestServer(t)
	deps.delivery.subscribe = func(delivery.Request) (delivery.SubscribeResult, error) {
		res := delivery.SubscribeResult{Channels: []delivery.ChannelResult{
			{Channel: subscriber.ChannelWhatsApp, Error: "whatsapp welcome message failed: " + whatsapp.ErrNotConfigured.Error()},
		}}
		return res, errors.Join(delivery.ErrConfirmationFailed, whatsapp.ErrNotConfigured)
	}

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/subscribe/channel", map[string]string{
		"phone_number":        "+441234567890",
		"delivery_preference": "whatsapp",
	}, nil)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "WhatsApp credentials not configured")
}

// ─── /api/letters/today ───────────────────────────────────────────────────────

func TestTodaysLetter(t *testing.T) {
	deps := newTestServer(t)
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rr := doRequest(t, deps.handler, method, "/api/letters/today", nil, nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp map[string]string
		decodeJSON(t, rr, &resp)
		assert.Equal(t, "My dearest,\n\nGood morning.", resp["loveLetter"])
		assert.Equal(t, "Monday, January 1, 2024", resp["date"])
		assert.Equal(t, "2024-01-01", resp["dateString"])
	}
}

func TestTodaysLetter_FallbackReturns500WithLetter(t *testing.T) {
	deps := newTestServer(t)
	deps.letters.l.Fallback = true
	deps.letters.l.Err = errors.New("openai: status 503")
	deps.letters.l.Text = "My Dearest,\n\nOn this beautiful Monday"

	rr := doRequest(t, deps.handler, http.MethodGet, "/api/letters/today", nil, nil)
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	var resp map[string]string
	decodeJSON(t, rr, &resp)
	assert.Equal(t, "openai: status 503", resp["error"])
	assert.Equal(t, "My Dearest,\n\nOn this beautiful Monday", resp["fallbackLetter"])
}

// ─── POST /api/broadcasts/daily ───────────────────────────────────────────────

func TestDailyBroadcast(t *testing.T) {
	deps := newTestServer(t)
	deps.delivery.stats = delivery.BroadcastStats{SuccessCount: 2, ErrorCount: 1, TotalSubscribers: 3}

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/broadcasts/daily", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Stats   struct {
			SuccessCount     int `json:"successCount"`
			ErrorCount       int `json:"errorCount"`
			TotalSubscribers int `json:"totalSubscribers"`
		} `json:"stats"`
	}
	decodeJSON(t, rr, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, "Daily love letters sent successfully to 2 subscribers. 1 errors.", resp.Message)
	assert.Equal(t, 3, resp.Stats.TotalSubscribers)
}

// A broadcast may take longer than the server's write timeout; the caller
// must still get the stats.
func TestDailyBroadcast_OutlivesServerWriteTimeout(t *testing.T) {
	deps := newTestServer(t)
	deps.delivery.broadcastFor = 600 * time.Millisecond
	deps.delivery.stats = delivery.BroadcastStats{SuccessCount: 2, TotalSubscribers: 2}

	srv := server.New(deps.handler, server.Config{WriteTimeout: 300 * time.Millisecond},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(l) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	resp, err := http.Post("http://"+l.Addr().String()+"/api/broadcasts/daily", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Success bool                    `json:"success"`
		Stats   delivery.BroadcastStats `json:"stats"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, 2, body.Stats.SuccessCount)
}

func TestDailyBroadcast_NoSubscribers(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodPost, "/api/broadcasts/daily", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]any
	decodeJSON(t, rr, &resp)
	assert.Equal(t, "No subscribers to send to", resp["message"])
}

func TestDailyBroadcast_ErrorReturns500(t *testing.T) {
	deps := newTestServer(t)
	deps.delivery.broadcastErr = errors.New("delivery: list subscribers: db down")

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/broadcasts/daily", nil, nil)
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	var resp errorBody
	decodeJSON(t, rr, &resp)
	assert.Contains(t, resp.Error, "db down")
}

func TestDailyBroadcast_RequiresSecretWhenConfigured(t *testing.T) {
	deps := newTestServer(t, func(c *api.Config) { c.BroadcastSecret = "s3cret" })

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/broadcasts/daily", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doRequest(t, deps.handler, http.MethodPost, "/api/broadcasts/daily", nil,
		map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Zero(t, deps.delivery.broadcasts)

	rr = doRequest(t, deps.handler, http.MethodPost, "/api/broadcasts/daily", nil,
		map[string]string{"Authorization": "Bearer s3cret"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, deps.delivery.broadcasts)
}

// ─── PUSH ─────────────────────────────────────────────────────────────────────

func TestCreatePushSubscription(t *testing.T) {
	deps := newTestServer(t)
	body := map[string]any{
		"endpoint":       "https://fcm.googleapis.com/fcm/send/abc",
		"expirationTime": nil,
		"keys":           map[string]string{"p256dh": "BNc", "auth": "tBH"},
	}

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/push/subscriptions", body,
		map[string]string{"User-Agent": "Mozilla/5.0"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	require.Len(t, deps.pushSubs.saved, 1)
	saved := deps.pushSubs.saved[0]
	assert.Equal(t, "https://fcm.googleapis.com/fcm/send/abc", saved.Endpoint)
	assert.Equal(t, push.Keys{P256dh: "BNc", Auth: "tBH"}, saved.Keys)
	assert.Equal(t, "Mozilla/5.0", saved.UserAgent)
}

func TestCreatePushSubscription_MissingKeysReturns400(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodPost, "/api/push/subscriptions", map[string]any{
		"endpoint": "https://fcm.googleapis.com/fcm/send/abc",
		"keys":     map[string]string{"p256dh": "BNc"},
	}, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp errorBody
	decodeJSON(t, rr, &resp)
	assert.Equal(t, "auth is required", resp.Error)
	assert.Empty(t, deps.pushSubs.saved)
}

func TestPushTest(t *testing.T) {
	deps := newTestServer(t)
	deps.push.results = []push.Result{
		{Endpoint: "https://push.example/1", Success: true, Status: 201},
		{Endpoint: "https://push.example/2", Status: 410, Error: "push: subscription expired"},
	}

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/push/test", map[string]string{"title": "Hello"}, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Success bool          `json:"success"`
		Results []push.Result `json:"results"`
		Message string        `json:"message"`
	}
	decodeJSON(t, rr, &resp)
	assert.True(t, resp.Success)
	assert.Len(t, resp.Results, 2)
	assert.Equal(t, "Attempted to send 2 notifications", resp.Message)
	assert.Equal(t, []push.Notification{{Title: "Hello"}}, deps.push.sent)
}

func TestPushTest_EmptyBodyUsesDefaults(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodPost, "/api/push/test", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, []push.Notification{{}}, deps.push.sent)
	assert.Contains(t, rr.Body.String(), `"results":[]`)
}

func TestPushTest_NotConfiguredReturns500(t *testing.T) {
	deps := newTestServer(t)
	deps.push.err = push.ErrNotConfigured

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/push/test", nil, nil)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "VAPID keys not configured")
}

func TestVAPIDPublicKey(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodGet, "/api/push/vapid-public-key", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	decodeJSON(t, rr, &resp)
	assert.Equal(t, "BPubKey", resp["publicKey"])

	deps.push.publicKey = ""
	rr = doRequest(t, deps.handler, http.MethodGet, "/api/push/vapid-public-key", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
