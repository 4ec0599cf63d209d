// Package bootstrap builds the adapters shared by the server and the CLI from a Config.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"sponsorship/internal/adapters/assets"
	"sponsorship/internal/adapters/email"
	"sponsorship/internal/adapters/metrics"
	"sponsorship/internal/adapters/storage"
	"sponsorship/internal/config"
)

// OpenDB opens the SQLite database, applies the schema and wraps it for timing.
// PRE: cfg.DBPath is non-empty
// POST: Returns a ready TimedDB; the caller closes it
func OpenDB(ctx context.Context, cfg config.Config, m *metrics.Metrics) (*storage.TimedDB, error) {
	dsn := cfg.DBPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows one writer; a small pool avoids SQLITE_BUSY churn under WAL.
	db.SetMaxOpenConns(4)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	if err := storage.InitDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	slog.Info("database_ready", "path", cfg.DBPath, "schema", storage.SchemaVersion)
	return storage.NewTimedDB(db, m, cfg.SlowQuery), nil
}

// NewFileSystem returns the media backend selected by cfg.MediaBackend.
// PRE: cfg passed Validate
// POST: Returns a LocalFS or S3FS
func NewFileSystem(ctx context.Context, cfg config.Config) (assets.FileSystem, error) {
	switch cfg.MediaBackend {
	case config.MediaLocal:
		return assets.NewLocalFS(cfg.MediaRoot)
	case config.MediaS3:
		client, err := assets.NewS3Client(ctx, assets.S3Config{
			Bucket:         cfg.S3Bucket,
			Region:         cfg.S3Region,
			Prefix:         cfg.S3Prefix,
			AccessKeyID:    cfg.S3AccessKeyID,
			SecretKey:      cfg.S3SecretKey,
			Endpoint:       cfg.S3Endpoint,
			ForcePathStyle: cfg.S3ForcePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return assets.NewS3FS(client, cfg.S3Bucket, cfg.S3Prefix), nil
	default:
		return nil, fmt.Errorf("%w: unknown media backend %q", config.ErrInvalidConfig, cfg.MediaBackend)
	}
}

// NewSender returns the mail transport selected by cfg.MailProvider.
// PRE: cfg passed Validate
// POST: Returns a Sender whose Provider() equals cfg.MailProvider
func NewSender(ctx context.Context, cfg config.Config) (email.Sender, error) {
	var (
		sender email.Sender
		err    error
	)
	switch cfg.MailProvider {
	case config.ProviderNoop:
		sender = email.NewNoopSender()
	case config.ProviderResend:
		sender = email.NewResendSender(cfg.ResendKey)
	case config.ProviderPostmark:
		sender, err = email.NewPostmarkSender(cfg.PostmarkServerToken, cfg.PostmarkAccountToken, cfg.PostmarkStream)
	case config.ProviderSES:
		sender, err = email.NewSESSender(ctx, cfg.SESRegion)
	default:
		err = fmt.Errorf("%w: unknown mail provider %q", config.ErrInvalidConfig, cfg.MailProvider)
	}
	if err != nil {
		return nil, err
	}
	slog.Info("email_sender_configured", "provider", sender.Provider())
	return sender, nil
}
