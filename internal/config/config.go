package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	AppEnv      string   `env:"APP_ENV" envDefault:"development"`
	Port        int      `env:"PORT" envDefault:"4001"`
	DatabaseURL string   `env:"DATABASE_URL,required,notEmpty"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,https://lessonlift.co.uk"`

	// JWTSecret verifies access tokens issued by the auth platform.
	JWTSecret   string   `env:"SUPABASE_JWT_SECRET,required,notEmpty"`
	JWTAudience string   `env:"JWT_AUDIENCE" envDefault:"authenticated"`
	AdminEmails []string `env:"ADMIN_EMAILS" envSeparator:","`

	OpenAI OpenAIConfig
	Stripe StripeConfig

	PublicSiteURL string `env:"PUBLIC_SITE_URL" envDefault:"https://lessonlift.co.uk"`
	// DevOrigin is the checkout redirect base for requests without an Origin.
	DevOrigin string `env:"DEV_ORIGIN" envDefault:"http://localhost:5173"`

	// RedisURL moves the rate limiter to Redis when set.
	RedisURL       string  `env:"REDIS_URL"`
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"20"`

	// NotesEncryptionKey is 64 hex characters. SEN/EAL notes are stored in
	// plain text when it is empty.
	NotesEncryptionKey string `env:"NOTES_ENCRYPTION_KEY"`
}

type OpenAIConfig struct {
	APIKey  string        `env:"OPENAI_API_KEY"`
	Model   string        `env:"OPENAI_MODEL" envDefault:"gpt-4o"`
	BaseURL string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	Timeout time.Duration `env:"OPENAI_TIMEOUT" envDefault:"120s"`
}

type StripeConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	StarterPrice  string `env:"STRIPE_PRICE_STARTER"`
	StandardPrice string `env:"STRIPE_PRICE_STANDARD"`
	ProPrice      string `env:"STRIPE_PRICE_PRO"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsDevelopment reports whether the service runs locally.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// NotesKey decodes NotesEncryptionKey. It returns nil when no key is set.
func (c *Config) NotesKey() ([]byte, error) {
	if c.NotesEncryptionKey == "" {
		return nil, nil
	}
	return hex.DecodeString(c.NotesEncryptionKey)
}

// Validate checks Config for problems that would break the service at
// runtime. It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT must be 1-65535, got %d", c.Port))
	}
	if len(c.JWTSecret) < 32 {
		errs = append(errs, "SUPABASE_JWT_SECRET must be at least 32 characters")
	}
	if c.NotesEncryptionKey != "" {
		if len(c.NotesEncryptionKey) != 64 {
			errs = append(errs, "NOTES_ENCRYPTION_KEY must be exactly 64 hex characters (32 bytes)")
		} else if _, err := hex.DecodeString(c.NotesEncryptionKey); err != nil {
			errs = append(errs, "NOTES_ENCRYPTION_KEY must be valid hex")
		}
	}
	if c.OpenAI.Timeout <= 0 {
		errs = append(errs, "OPENAI_TIMEOUT must be positive")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		errs = append(errs, "RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.OpenAI.APIKey == "" {
		errs = append(errs, "OPENAI_API_KEY is required")
	}
	if c.Stripe.SecretKey == "" && !c.IsDevelopment() {
		errs = append(errs, "STRIPE_SECRET_KEY is required outside development")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
