// Package config loads runtime settings from SPONSORS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Prefix is prepended to every variable name.
const Prefix = "SPONSORS_"

// Mail providers.
const (
	ProviderNoop     = "noop"
	ProviderResend   = "resend"
	ProviderPostmark = "postmark"
	ProviderSES      = "ses"
)

// Media backends.
const (
	MediaLocal = "local"
	MediaS3    = "s3"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all runtime settings.
type Config struct {
	Env         string        `env:"ENV" envDefault:"development"`
	Addr        string        `env:"ADDR" envDefault:":8080"`
	DBPath      string        `env:"DB_PATH" envDefault:"sponsors.db"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
	SlowQuery   time.Duration `env:"SLOW_QUERY" envDefault:"50ms"`
	SlowRequest time.Duration `env:"SLOW_REQUEST" envDefault:"200ms"`

	ConferencePrefix string `env:"CONFERENCE_PREFIX" envDefault:"pycon"`

	MediaBackend     string `env:"MEDIA_BACKEND" envDefault:"local"`
	MediaRoot        string `env:"MEDIA_ROOT" envDefault:"media"`
	S3Bucket         string `env:"S3_BUCKET"`
	S3Region         string `env:"S3_REGION"`
	S3Prefix         string `env:"S3_PREFIX"`
	S3Endpoint       string `env:"S3_ENDPOINT"`
	S3AccessKeyID    string `env:"S3_ACCESS_KEY_ID"`
	S3SecretKey      string `env:"S3_SECRET_KEY"`
	S3ForcePathStyle bool   `env:"S3_FORCE_PATH_STYLE"`

	MailProvider         string `env:"MAIL_PROVIDER" envDefault:"noop"`
	MailFrom             string `env:"MAIL_FROM" envDefault:"Sponsorship Team <sponsors@localhost>"`
	MailReplyTo          string `env:"MAIL_REPLY_TO"`
	MailHTML             bool   `env:"MAIL_HTML"`
	ResendKey            string `env:"RESEND_KEY"`
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	PostmarkStream       string `env:"POSTMARK_STREAM"`
	SESRegion            string `env:"SES_REGION"`

	CSRFKey   string `env:"CSRF_KEY"`
	AdminUser string `env:"ADMIN_USER" envDefault:"admin"`
	// AdminPasswordHash is a bcrypt hash of the operator password.
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`
	// RateLimit is requests per minute per client.
	RateLimit int `env:"RATE_LIMIT" envDefault:"120"`
}

// Load reads an optional .env file, then parses the process environment.
// PRE: none
// POST: Returns a validated Config or an error wrapping ErrInvalidConfig
func Load() (Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()
	return parse(env.Options{Prefix: Prefix})
}

// LoadFrom parses values from environ instead of the process environment (keys include Prefix).
func LoadFrom(environ map[string]string) (Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, errors.Join(ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsProduction reports whether Env is "production".
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks provider credentials and production requirements.
// PRE: none
// POST: Returns nil if the configuration can start the server
func (c Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	switch c.MailProvider {
	case ProviderNoop:
		if c.IsProduction() {
			slog.Warn("config_warning", "message", "mail provider is noop in production; sponsor email delivery is disabled")
		}
	case ProviderResend:
		if c.ResendKey == "" {
			fail("%sRESEND_KEY is required for the resend provider", Prefix)
		}
	case ProviderPostmark:
		if c.PostmarkServerToken == "" {
			fail("%sPOSTMARK_SERVER_TOKEN is required for the postmark provider", Prefix)
		}
	case ProviderSES:
		if c.SESRegion == "" {
			fail("%sSES_REGION is required for the ses provider", Prefix)
		}
	default:
		fail("unknown mail provider %q", c.MailProvider)
	}
	if strings.TrimSpace(c.MailFrom) == "" {
		fail("%sMAIL_FROM is required", Prefix)
	}

	switch c.MediaBackend {
	case MediaLocal:
		if c.MediaRoot == "" {
			fail("%sMEDIA_ROOT is required for the local media backend", Prefix)
		}
	case MediaS3:
		if c.S3Bucket == "" || c.S3Region == "" {
			fail("%sS3_BUCKET and %sS3_REGION are required for the s3 media backend", Prefix, Prefix)
		}
	default:
		fail("unknown media backend %q", c.MediaBackend)
	}

	if c.CSRFKey != "" && len(c.CSRFKey) != 32 {
		fail("%sCSRF_KEY must be exactly 32 bytes", Prefix)
	}
	if c.IsProduction() {
		if c.CSRFKey == "" {
			fail("%sCSRF_KEY is required in production", Prefix)
		}
		if c.AdminPasswordHash == "" {
			fail("%sADMIN_PASSWORD_HASH is required in production", Prefix)
		}
	}
	if c.RateLimit <= 0 {
		fail("%sRATE_LIMIT must be positive", Prefix)
	}

	return errors.Join(errs...)
}

// SlogLevel maps LogLevel onto a slog.Level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
