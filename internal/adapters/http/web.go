package web

import (
	"context"
	"crypto/rand"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"sponsorship/internal/adapters/assets"
	"sponsorship/internal/adapters/email"
	"sponsorship/internal/adapters/http/middleware"
	"sponsorship/internal/adapters/metrics"
	auditStore "sponsorship/internal/adapters/storage/audit"
	sponsorStore "sponsorship/internal/adapters/storage/sponsor"
)

// Pinger reports database health for /healthz.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps holds the adapters the handlers run against.
type Deps struct {
	SponsorStore sponsorStore.Store
	Files        assets.FileSystem
	Sender       email.Sender
	Audit        auditStore.Store // nil disables the activity log
	Metrics      *metrics.Metrics // nil disables /metrics and recording
	DB           Pinger           // nil reports healthy without a check
}

// Options holds the settings the handlers need.
type Options struct {
	ConferencePrefix string
	DefaultFrom      string
	ReplyTo          string
	MailHTML         bool // also send a goldmark-rendered HTML part

	AdminUser         string
	AdminPasswordHash string

	// CSRFKey must be 32 bytes; nil generates a per-process key.
	CSRFKey        []byte
	SecureCookies  bool
	TrustedOrigins []string

	RateLimit   int // requests per minute per client
	SlowRequest time.Duration
}

// server carries handler dependencies. Handlers are methods so tests can build one per case.
type server struct {
	deps       Deps
	opts       Options
	now        func() time.Time
	generateID func() string
	batches    *batchRegistry
}

func newServer(deps Deps, opts Options) *server {
	return &server{
		deps:       deps,
		opts:       opts,
		now:        time.Now,
		generateID: uuid.NewString,
		batches:    newBatchRegistry(),
	}
}

// NewMux wires HTTP handlers for the sponsor admin surface.
// ctx bounds background work such as rate limiter cleanup.
func NewMux(ctx context.Context, deps Deps, opts Options) http.Handler {
	s := newServer(deps, opts)

	staff := middleware.StaffOnly(opts.AdminUser, opts.AdminPasswordHash)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", staff(deps.Metrics.Handler()))

	admin := http.NewServeMux()
	s.registerAdminRoutes(admin)
	mux.Handle("/admin/", staff(admin))

	rate := opts.RateLimit
	if rate <= 0 {
		rate = 120
	}
	limiter := middleware.NewRateLimiter(ctx, rate, time.Minute)

	// Applied inner to outer: Timing sees every request, including rejected ones.
	return middleware.Chain(mux,
		middleware.CSRF(csrfKey(opts.CSRFKey), middleware.CSRFOptions{
			Secure:         opts.SecureCookies,
			TrustedOrigins: opts.TrustedOrigins,
		}),
		middleware.SecurityHeaders,
		middleware.RateLimit(limiter),
		middleware.Timing(deps.Metrics, opts.SlowRequest),
	)
}

func (s *server) registerAdminRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /admin/sponsors", s.handleSponsorIndex)
	mux.HandleFunc("GET /admin/sponsors/export", s.handleSponsorExport)
	mux.HandleFunc("GET /admin/sponsors/logos.zip", s.handleSponsorLogos)
	mux.HandleFunc("GET /admin/sponsors/email", s.handleSponsorEmailForm)
	mux.HandleFunc("POST /admin/sponsors/email", s.handleSponsorEmailSubmit)
	mux.HandleFunc("GET /admin/sponsors/email/batches/{id}", s.handleSponsorEmailBatch)
	mux.HandleFunc("GET /admin/audit", s.handleAuditTrail)
}

// csrfKey returns key, or a random one when none is configured.
// Configuration validation refuses a missing key in production.
func csrfKey(key []byte) []byte {
	if len(key) > 0 {
		return key
	}
	key = make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic("csrf: " + err.Error())
	}
	slog.Warn("csrf_key_generated", "message", "using random CSRF key; open forms break on restart")
	return key
}
