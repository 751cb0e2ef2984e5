// Package config loads and validates all environment variables at startup.
// Every other package receives typed values; nothing reads os.Getenv directly.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the fully-parsed application configuration.
type Config struct {
	Env      string `envconfig:"ENV" default:"development" validate:"oneof=development staging production"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	BaseURL  string `envconfig:"BASE_URL" default:"http://localhost:8080" validate:"required,url"`

	Server    ServerConfig
	Database  DatabaseConfig
	AI        AIConfig
	Email     EmailConfig
	WhatsApp  WhatsAppConfig
	Push      PushConfig
	Broadcast BroadcastConfig
}

// ServerConfig holds the listener settings. HTTP and gRPC share the port.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080" validate:"required,numeric"`
	ReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"20s"`
}

// DatabaseConfig holds the Postgres DSN and pool tuning.
type DatabaseConfig struct {
	URL             string        `envconfig:"DATABASE_URL" validate:"required"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25" validate:"min=1"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10" validate:"min=0"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	ConnectAttempts uint          `envconfig:"DB_CONNECT_ATTEMPTS" default:"5" validate:"min=1"`
}

// AIConfig selects the letter-writing models. OpenAI (or any OpenAI-compatible
// endpoint) is primary; Anthropic is used as the secondary when its key is set.
type AIConfig struct {
	OpenAIAPIKey    string        `envconfig:"OPENAI_API_KEY"`
	OpenAIModel     string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAIBaseURL   string        `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1" validate:"url"`
	AnthropicAPIKey string        `envconfig:"ANTHROPIC_API_KEY"`
	AnthropicModel  string        `envconfig:"ANTHROPIC_MODEL" default:"claude-sonnet-4-5"`
	// Timeout bounds one provider call; Budget bounds a whole letter,
	// fallback provider included.
	Timeout time.Duration `envconfig:"AI_TIMEOUT" default:"25s"`
	Budget  time.Duration `envconfig:"AI_BUDGET" default:"40s"`
}

// EmailConfig holds the Resend credentials and sender identities.
type EmailConfig struct {
	ResendAPIKey    string        `envconfig:"RESEND_API_KEY"`
	ResendBaseURL   string        `envconfig:"RESEND_BASE_URL" default:"https://api.resend.com" validate:"url"`
	FromAddr        string        `envconfig:"EMAIL_FROM_ADDR" default:"hello@dailylovenotes.name.ng" validate:"email"`
	WelcomeFromName string        `envconfig:"EMAIL_WELCOME_FROM_NAME" default:"Daily Love Letters"`
	LetterFromName  string        `envconfig:"EMAIL_LETTER_FROM_NAME" default:"Your Love Note"`
	Timeout         time.Duration `envconfig:"EMAIL_TIMEOUT" default:"15s"`
}

// WhatsAppConfig holds the WhatsApp Cloud API credentials. Both may be empty;
// the WhatsApp sender then reports itself as not configured.
type WhatsAppConfig struct {
	AccessToken   string        `envconfig:"WHATSAPP_ACCESS_TOKEN"`
	PhoneNumberID string        `envconfig:"WHATSAPP_PHONE_NUMBER_ID"`
	APIVersion    string        `envconfig:"WHATSAPP_API_VERSION" default:"v18.0"`
	BaseURL       string        `envconfig:"WHATSAPP_BASE_URL" default:"https://graph.facebook.com" validate:"url"`
	Timeout       time.Duration `envconfig:"WHATSAPP_TIMEOUT" default:"15s"`
}

// PushConfig holds the VAPID key pair (base64url, as produced by cmd/vapidkeys).
type PushConfig struct {
	VAPIDPublicKey  string        `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string        `envconfig:"VAPID_PRIVATE_KEY"`
	Subject         string        `envconfig:"VAPID_SUBJECT" default:"mailto:hello@dailylovenotes.name.ng"`
	TTL             time.Duration `envconfig:"PUSH_TTL" default:"24h"`
	Concurrency     int           `envconfig:"PUSH_CONCURRENCY" default:"8" validate:"min=1,max=64"`
	Timeout         time.Duration `envconfig:"PUSH_TIMEOUT" default:"10s"`
}

// BroadcastConfig drives the daily letter broadcast.
type BroadcastConfig struct {
	Enabled     bool          `envconfig:"BROADCAST_ENABLED" default:"true"`
	At          string        `envconfig:"BROADCAST_AT" default:"07:00" validate:"datetime=15:04"`
	Timezone    string        `envconfig:"BROADCAST_TZ" default:"UTC" validate:"timezone"`
	Channels    []string      `envconfig:"BROADCAST_CHANNELS" default:"email" validate:"min=1,dive,oneof=email whatsapp"`
	Concurrency int           `envconfig:"BROADCAST_CONCURRENCY" default:"4" validate:"min=1,max=32"`
	Timeout     time.Duration `envconfig:"BROADCAST_TIMEOUT" default:"30m"`
	CatchUp     time.Duration `envconfig:"BROADCAST_CATCH_UP" default:"2h"`
	Push        bool          `envconfig:"BROADCAST_PUSH" default:"false"`
	Secret      string        `envconfig:"BROADCAST_SECRET"`
}

// Load reads all environment variables and returns a validated Config.
// A .env file in the working directory is loaded first when present; real
// environment variables always take precedence over .env values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, &ConfigError{
			Type:    ErrMissingEnv,
			Message: "required configuration missing",
			Err:     err,
		}
	}

	return &cfg, nil
}

// IsProduction reports whether the service runs with production guarantees.
func (c *Config) IsProduction() bool { return c.Env == "production" }

// validate enforces the rules struct tags cannot express.
func (c *Config) validate() error {
	var errs []error

	if c.IsProduction() {
		if c.Email.ResendAPIKey == "" {
			errs = append(errs, fmt.Errorf("missing required env var: RESEND_API_KEY"))
		}
		// At least one AI provider must be configured.
		if c.AI.OpenAIAPIKey == "" && c.AI.AnthropicAPIKey == "" {
			errs = append(errs, fmt.Errorf("at least one of OPENAI_API_KEY or ANTHROPIC_API_KEY must be set"))
		}
	}

	// Letters are generated inside a request, with the sends after them.
	if c.AI.Timeout > c.AI.Budget {
		errs = append(errs, fmt.Errorf("AI_TIMEOUT (%s) must not exceed AI_BUDGET (%s)", c.AI.Timeout, c.AI.Budget))
	}
	if c.Server.WriteTimeout > 0 && c.AI.Budget >= c.Server.WriteTimeout {
		errs = append(errs, fmt.Errorf("AI_BUDGET (%s) must be shorter than HTTP_WRITE_TIMEOUT (%s)", c.AI.Budget, c.Server.WriteTimeout))
	}

	// VAPID keys come as a pair.
	if (c.Push.VAPIDPublicKey == "") != (c.Push.VAPIDPrivateKey == "") {
		errs = append(errs, fmt.Errorf("VAPID_PUBLIC_KEY and VAPID_PRIVATE_KEY must be set together"))
	}

	if c.Push.VAPIDPublicKey != "" &&
		!strings.HasPrefix(c.Push.Subject, "mailto:") && !strings.HasPrefix(c.Push.Subject, "https://") {
		errs = append(errs, fmt.Errorf("VAPID_SUBJECT must be a mailto: or https: URL"))
	}

	return errors.Join(errs...)
}

// UserAgent is the User-Agent sent to every upstream API.
func (c *Config) UserAgent() string {
	return "love-letters-backend/1.0 (+" + c.BaseURL + ")"
}

// PushConfigured reports whether Web Push can be used.
func (c *Config) PushConfigured() bool {
	return c.Push.VAPIDPublicKey != "" && c.Push.VAPIDPrivateKey != ""
}

// TimeOfDay returns the configured broadcast hour and minute in the broadcast
// timezone. Load has already validated both values.
func (b BroadcastConfig) TimeOfDay() (hour, minute int, loc *time.Location, err error) {
	t, err := time.Parse("15:04", b.At)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("config: BROADCAST_AT: %w", err)
	}
	loc, err = time.LoadLocation(b.Timezone)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("config: BROADCAST_TZ: %w", err)
	}
	return t.Hour(), t.Minute(), loc, nil
}
