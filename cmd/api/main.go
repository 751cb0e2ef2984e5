package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // BROADCAST_TZ must resolve in scratch images

	"github.com/codeGROOVE-dev/retry"
	_ "github.com/lib/pq" // postgres driver

	"github.com/nyashahama/love-letters-backend/internal/ai"
	"github.com/nyashahama/love-letters-backend/internal/api"
	"github.com/nyashahama/love-letters-backend/internal/config"
	"github.com/nyashahama/love-letters-backend/internal/db"
	"github.com/nyashahama/love-letters-backend/internal/delivery"
	"github.com/nyashahama/love-letters-backend/internal/email"
	"github.com/nyashahama/love-letters-backend/internal/letter"
	"github.com/nyashahama/love-letters-backend/internal/outbound"
	"github.com/nyashahama/love-letters-backend/internal/push"
	"github.com/nyashahama/love-letters-backend/internal/server"
	"github.com/nyashahama/love-letters-backend/internal/store"
	"github.com/nyashahama/love-letters-backend/internal/subscriber"
	"github.com/nyashahama/love-letters-backend/internal/whatsapp"
	"github.com/nyashahama/love-letters-backend/internal/worker"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	// JSON in production, pretty text in development. The level is refined
	// once the config is loaded.
	level := new(slog.LevelVar)
	var logger *slog.Logger
	if os.Getenv("ENV") == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	} else {
		level.Set(slog.LevelDebug)
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	slog.SetDefault(logger)

	if err := run(logger, level); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, level *slog.LevelVar) error {
	// ── Config ────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("config: LOG_LEVEL: %w", err)
	}
	logger.Info("config loaded", "env", cfg.Env, "port", cfg.Server.Port)

	// Root context cancelled by OS signal. The scheduler, the readiness
	// watcher and the server all respect it.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Database ──────────────────────────────────────────────────────────────
	pool, err := openDB(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	logger.Info("database connected")

	st := store.New(pool, db.New(pool))

	// ── Letters ───────────────────────────────────────────────────────────────
	// Every upstream sees the same User-Agent, pointing back at the site.
	ua := outbound.WithUserAgent(cfg.UserAgent())

	letters := letter.NewGenerator(newWriter(cfg.AI, ua, logger), logger)

	// ── Channels ──────────────────────────────────────────────────────────────
	var mailer email.Sender
	if cfg.Email.ResendAPIKey != "" {
		mailer = email.NewResendClient(email.ResendConfig{
			APIKey:          cfg.Email.ResendAPIKey,
			BaseURL:         cfg.Email.ResendBaseURL,
			FromAddr:        cfg.Email.FromAddr,
			WelcomeFromName: cfg.Email.WelcomeFromName,
			LetterFromName:  cfg.Email.LetterFromName,
		}, email.NewResendHTTPClient(cfg.Email.Timeout, ua))
	} else {
		// Load refuses a production config without a key.
		logger.Warn("email: RESEND_API_KEY not set, logging emails instead of sending")
		mailer = email.NewLogSender(logger)
	}

	wa := whatsapp.NewClient(whatsapp.Config{
		AccessToken:   cfg.WhatsApp.AccessToken,
		PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		APIVersion:    cfg.WhatsApp.APIVersion,
		BaseURL:       cfg.WhatsApp.BaseURL,
	}, whatsapp.NewHTTPClient(cfg.WhatsApp.Timeout, ua))
	if !wa.Configured() {
		logger.Warn("whatsapp: credentials not set, WhatsApp deliveries will fail")
	}

	pushClient, err := push.NewClient(push.Config{
		PublicKey:   cfg.Push.VAPIDPublicKey,
		PrivateKey:  cfg.Push.VAPIDPrivateKey,
		Subject:     cfg.Push.Subject,
		TTL:         cfg.Push.TTL,
		Timeout:     cfg.Push.Timeout,
		Concurrency: cfg.Push.Concurrency,
		UserAgent:   cfg.UserAgent(),
	})
	if err != nil {
		return fmt.Errorf("push: %w", err)
	}
	if !cfg.PushConfigured() {
		logger.Warn("push: VAPID keys not set, web push disabled")
	}
	notifier := push.NewBroadcaster(pushClient, st, logger)

	// ── Delivery ──────────────────────────────────────────────────────────────
	channels := make([]subscriber.Channel, 0, len(cfg.Broadcast.Channels))
	for _, c := range cfg.Broadcast.Channels {
		channels = append(channels, subscriber.Channel(c))
	}
	orchestrator := delivery.New(st, letters, mailer, wa, notifier, delivery.Config{
		BroadcastChannels: channels,
		Concurrency:       cfg.Broadcast.Concurrency,
		PushOnBroadcast:   cfg.Broadcast.Push,
		GenerateTimeout:   cfg.AI.Budget,
	}, logger)

	// ── Scheduler ─────────────────────────────────────────────────────────────
	if cfg.Broadcast.Enabled {
		hour, minute, loc, err := cfg.Broadcast.TimeOfDay()
		if err != nil {
			return err
		}
		scheduler := worker.NewScheduler(orchestrator, st, worker.SchedulerConfig{
			Hour:       hour,
			Minute:     minute,
			Location:   loc,
			RunTimeout: cfg.Broadcast.Timeout,
			CatchUp:    cfg.Broadcast.CatchUp,
		}, logger)
		go scheduler.Start(ctx)
	} else {
		logger.Info("scheduler: disabled, broadcasts run only through the API")
	}

	// ── HTTP + gRPC server ────────────────────────────────────────────────────
	if cfg.Broadcast.Secret == "" {
		logger.Warn("api: BROADCAST_SECRET not set, the broadcast endpoint is open")
	}
	handler := api.NewServer(api.Deps{
		Delivery: orchestrator,
		Letters:  letters,
		PushSubs: st,
		Push:     notifier,
		DB:       st,
	}, api.Config{
		BroadcastSecret:  cfg.Broadcast.Secret,
		BroadcastTimeout: cfg.Broadcast.Timeout,
		RequestTimeout:   cfg.Server.WriteTimeout,
	}, logger)

	srv := server.New(handler, server.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}, logger)
	go srv.WatchReadiness(ctx, st.Ping, 15*time.Second)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(":" + cfg.Server.Port); err != nil {
			serverErr <- err
		}
	}()

	// Block until either a signal arrives or the server dies unexpectedly.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// newWriter picks the letter model. OpenAI is primary; Anthropic backs it up
// when both keys are set. nil means every letter is the canned fallback.
func newWriter(cfg config.AIConfig, ua outbound.Option, logger *slog.Logger) ai.Writer {
	var primary, secondary ai.Writer
	if cfg.OpenAIAPIKey != "" {
		primary = ai.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, ai.NewOpenAIHTTPClient(cfg.Timeout, ua))
	}
	if cfg.AnthropicAPIKey != "" {
		secondary = ai.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, "", ai.NewAnthropicHTTPClient(cfg.Timeout, ua))
	}

	switch {
	case primary != nil && secondary != nil:
		logger.Info("ai: using OpenAI with Anthropic fallback")
		return ai.NewFallbackWriter(primary, secondary, logger)
	case primary != nil:
		logger.Info("ai: using OpenAI only")
		return primary
	case secondary != nil:
		logger.Info("ai: using Anthropic only")
		return secondary
	default:
		logger.Warn("ai: no API key set, serving fallback letters")
		return nil
	}
}

// openDB opens and tunes the connection pool, then pings it until the
// database answers. Containers often start before Postgres accepts
// connections, so the first attempts are allowed to fail.
func openDB(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*sql.DB, error) {
	pool, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	pool.SetConnMaxIdleTime(2 * time.Minute)

	err = retry.Do(
		func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return pool.PingContext(pingCtx)
		},
		retry.Attempts(cfg.ConnectAttempts),
		retry.Delay(time.Second),
		retry.MaxDelay(15*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("database not ready, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}
