package web

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"sponsorship/internal/adapters/http/middleware"
	auditStore "sponsorship/internal/adapters/storage/audit"
	"sponsorship/internal/application/listutil"
	"sponsorship/internal/application/orchestrators"
	auditDomain "sponsorship/internal/domain/audit"
)

// newAuditEvent starts an event attributed to the signed-in operator.
func (s *server) newAuditEvent(r *http.Request, category auditDomain.Category, action auditDomain.Action) auditDomain.Event {
	actor, _ := middleware.StaffFromContext(r.Context())
	return auditDomain.NewEvent(uuid.NewString(), s.now(), actor, category, action)
}

// recordAudit persists e. A failed write is logged and never fails the request.
// PRE: e is valid
// POST: e is stored when an audit store is configured
func (s *server) recordAudit(r *http.Request, e auditDomain.Event, metadata any) {
	if s.deps.Audit == nil {
		return
	}
	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			e = e.WithMetadata(string(b))
		}
	}
	if err := s.deps.Audit.Save(r.Context(), e); err != nil {
		slog.Error("audit_save_failed", "category", e.Category, "action", e.Action, "error", err)
	}
}

// recordDispatchAudit logs one email batch; batches with failures are warnings.
func (s *server) recordDispatchAudit(r *http.Request, subject string, d *orchestrators.DispatchSponsorEmailResult) {
	e := s.newAuditEvent(r, auditDomain.CategoryEmail, auditDomain.ActionSend).
		WithResource(d.BatchID).
		WithDescription(fmt.Sprintf("%q: %d sent, %d failed", subject, len(d.Sent), len(d.Failures)))
	failed := make([]string, 0, len(d.Failures))
	for _, f := range d.Failures {
		failed = append(failed, f.SponsorID)
	}
	if len(failed) > 0 {
		e = e.WithSeverity(auditDomain.SeverityWarning)
	}
	s.recordAudit(r, e, map[string]any{
		"provider": s.deps.Sender.Provider(),
		"sent":     d.Sent,
		"failed":   failed,
	})
}

// auditPage is the view model for the activity log.
type auditPage struct {
	Events     []auditDomain.Event
	Filter     listutil.FilterParams
	Categories []auditDomain.Category
	Limit      int
}

// handleAuditTrail renders the activity log (GET /admin/audit)
// PRE: Staff is authenticated
// POST: Renders the newest events, optionally filtered by category or batch ID
func (s *server) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	if s.deps.Audit == nil {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	fp := listutil.ParseFilterParams(q, []string{"category", "resource_id"})
	filter := auditStore.Filter{
		Category:   auditDomain.Category(fp.Filters["category"]),
		ResourceID: fp.Filters["resource_id"],
	}

	limit := 100
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 && l <= 1000 {
		limit = l
	}

	events, err := s.deps.Audit.List(r.Context(), filter, limit)
	if err != nil {
		internalError(w, err)
		return
	}

	renderTemplate(w, r, http.StatusOK, "audit.html", auditPage{
		Events: events,
		Filter: fp,
		Categories: []auditDomain.Category{
			auditDomain.CategoryEmail,
			auditDomain.CategoryExport,
			auditDomain.CategoryImport,
		},
		Limit: limit,
	})
}
