// Package api implements the HTTP layer for Daily Love Letters.
// Handlers are methods on *Server. Each handler file is responsible for one
// resource group and only depends on the interfaces it actually uses.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/klauspost/compress/gzhttp"

	"github.com/nyashahama/love-letters-backend/internal/delivery"
	"github.com/nyashahama/love-letters-backend/internal/letter"
	"github.com/nyashahama/love-letters-backend/internal/push"
)

// Config holds values read from environment variables at startup.
type Config struct {
	// BroadcastSecret, when set, must be presented as a bearer token to
	// trigger the daily broadcast over HTTP.
	BroadcastSecret string

	// BroadcastTimeout bounds a broadcast started over HTTP.
	BroadcastTimeout time.Duration

	// RequestTimeout bounds every other request.
	RequestTimeout time.Duration
}

// Deliverer runs the subscribe and broadcast flows; *delivery.Orchestrator
// satisfies it.
type Deliverer interface {
	Subscribe(ctx context.Context, req delivery.Request) (delivery.SubscribeResult, error)
	Broadcast(ctx context.Context) (delivery.BroadcastStats, error)
}

// LetterSource writes letters on demand; *letter.Generator satisfies it.
type LetterSource interface {
	Generate(ctx context.Context, variant letter.Variant) letter.Letter
}

// PushRegistry stores browser push subscriptions; *store.Store satisfies it.
type PushRegistry interface {
	UpsertPushSubscription(ctx context.Context, sub push.Subscription) error
}

// PushService sends notifications; *push.Broadcaster satisfies it.
type PushService interface {
	PublicKey() string
	NotifyAll(ctx context.Context, n push.Notification) ([]push.Result, error)
}

// Pinger reports database reachability for /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the Server's collaborators.
type Deps struct {
	Delivery Deliverer
	Letters  LetterSource
	PushSubs PushRegistry
	Push     PushService
	DB       Pinger
}

// Server holds all shared dependencies. Each handler file attaches methods to
// this type and uses only the fields it needs.
type Server struct {
	delivery Deliverer
	letters  LetterSource
	pushSubs PushRegistry
	push     PushService
	db       Pinger

	validate *validator.Validate
	cfg      Config
	logger   *slog.Logger
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to an http.Server.
func NewServer(deps Deps, cfg Config, logger *slog.Logger) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.BroadcastTimeout <= 0 {
		cfg.BroadcastTimeout = 30 * time.Minute
	}

	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)

	s := &Server{
		delivery: deps.Delivery,
		letters:  deps.Letters,
		pushSubs: deps.PushSubs,
		push:     deps.Push,
		db:       deps.DB,
		validate: v,
		cfg:      cfg,
		logger:   logger,
	}

	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	// ── Health ────────────────────────────────────────────────────────────────
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/readyz", s.handleReady)

	// ── API ───────────────────────────────────────────────────────────────────
	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.cfg.RequestTimeout))
			r.Use(func(next http.Handler) http.Handler { return gzhttp.GzipHandler(next) })

			r.Post("/subscribe", s.handleSubscribe)
			r.Post("/subscribe/channel", s.handleSubscribeChannel)

			r.Get("/letters/today", s.handleTodaysLetter)
			r.Post("/letters/today", s.handleTodaysLetter)

			r.Post("/push/subscriptions", s.handleCreatePushSubscription)
			r.Post("/push/test", s.handlePushTest)
			r.Get("/push/vapid-public-key", s.handleVAPIDPublicKey)
		})

		// Broadcasts run longer than any request timeout and keep going if the
		// caller disconnects. The handler applies BroadcastTimeout itself and
		// moves the connection's write deadline past it, which needs a
		// writer that unwraps to the connection, so no gzip here.
		r.Group(func(r chi.Router) {
			r.Use(s.requireBroadcastSecret)
			r.Post("/broadcasts/daily", s.handleDailyBroadcast)
		})
	})

	return r
}

// handleReady reports 503 until the database answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Warn("readiness check failed", "error", err, logField(r))
		respondErr(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
}

// jsonFieldName makes validator errors name fields the way clients send them.
func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}
