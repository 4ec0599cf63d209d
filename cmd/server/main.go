package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	web "sponsorship/internal/adapters/http"
	"sponsorship/internal/adapters/metrics"
	auditStore "sponsorship/internal/adapters/storage/audit"
	sponsorStore "sponsorship/internal/adapters/storage/sponsor"
	"sponsorship/internal/bootstrap"
	"sponsorship/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("server_failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	db, err := bootstrap.OpenDB(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer db.Close()

	files, err := bootstrap.NewFileSystem(ctx, cfg)
	if err != nil {
		return err
	}
	sender, err := bootstrap.NewSender(ctx, cfg)
	if err != nil {
		return err
	}

	handler := web.NewMux(ctx, web.Deps{
		SponsorStore: sponsorStore.NewSQLiteStore(db),
		Files:        files,
		Sender:       sender,
		Audit:        auditStore.NewSQLiteStore(db),
		Metrics:      m,
		DB:           db,
	}, web.Options{
		ConferencePrefix:  cfg.ConferencePrefix,
		DefaultFrom:       cfg.MailFrom,
		ReplyTo:           cfg.MailReplyTo,
		MailHTML:          cfg.MailHTML,
		AdminUser:         cfg.AdminUser,
		AdminPasswordHash: cfg.AdminPasswordHash,
		CSRFKey:           []byte(cfg.CSRFKey),
		SecureCookies:     cfg.IsProduction(),
		RateLimit:         cfg.RateLimit,
		SlowRequest:       cfg.SlowRequest,
	})

	// WriteTimeout leaves room for archive downloads of large print logos.
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server_starting",
			"version", version,
			"addr", cfg.Addr,
			"env", cfg.Env,
			"mail_provider", sender.Provider(),
			"media_backend", cfg.MediaBackend,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
