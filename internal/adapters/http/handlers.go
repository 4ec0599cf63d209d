package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/csrf"

	"sponsorship/internal/adapters/email"
	"sponsorship/internal/adapters/http/middleware"
	sponsorStore "sponsorship/internal/adapters/storage/sponsor"
	"sponsorship/internal/application/listutil"
	"sponsorship/internal/application/orchestrators"
	"sponsorship/internal/application/projections"
	auditDomain "sponsorship/internal/domain/audit"
	"sponsorship/internal/domain/mailmerge"
	domain "sponsorship/internal/domain/sponsor"
)

//go:embed templates/*.html
var templateFS embed.FS

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func renderTemplate(w http.ResponseWriter, r *http.Request, status int, templateName string, data any) {
	funcMap := template.FuncMap{
		"csrfField": func() template.HTML { return csrf.TemplateField(r) },
		"currentStaff": func() string {
			user, _ := middleware.StaffFromContext(r.Context())
			return user
		},
		"joinComma": func(items []string) string { return strings.Join(items, ", ") },
		"renderMarkdown": func(md string) template.HTML {
			html, err := email.MarkdownHTML(md)
			if err != nil {
				return template.HTML(template.HTMLEscapeString(md))
			}
			return template.HTML(html)
		},
	}

	tpl, err := template.New("layout.html").Funcs(funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+templateName)
	if err != nil {
		internalError(w, fmt.Errorf("parse template %s: %w", templateName, err))
		return
	}
	// Render to a buffer so a template error cannot leave a half-written 200.
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		internalError(w, fmt.Errorf("render template %s: %w", templateName, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// handleHealthz handles GET /healthz
func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.deps.DB != nil {
		if err := s.deps.DB.PingContext(r.Context()); err != nil {
			slog.Error("health_check_failed", "error", err)
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

// sponsorIndexPage is the view model for the sponsor overview.
type sponsorIndexPage struct {
	Levels    []levelGroup
	AllLevels []domain.Level
	Filter    listutil.FilterParams
	Prefix    string
	Provider  string
}

type levelGroup struct {
	Level    domain.Level
	Sponsors []domain.Sponsor
}

// handleSponsorIndex handles GET /admin/sponsors
func (s *server) handleSponsorIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	levels, err := s.deps.SponsorStore.ListLevels(ctx)
	if err != nil {
		internalError(w, err)
		return
	}
	sponsors, err := s.deps.SponsorStore.List(ctx, sponsorStore.ListFilter{ActiveOnly: true})
	if err != nil {
		internalError(w, err)
		return
	}

	filter := listutil.ParseFilterParams(r.URL.Query(), []string{"level"})
	byLevel := make(map[string][]domain.Sponsor, len(levels))
	for _, sp := range sponsors {
		if !filter.Matches("level", sp.Level.ID) || !filter.MatchesSearch(append([]string{sp.Name}, sp.ContactEmails...)...) {
			continue
		}
		byLevel[sp.Level.ID] = append(byLevel[sp.Level.ID], sp)
	}
	page := sponsorIndexPage{
		AllLevels: levels,
		Filter:    filter,
		Prefix:    s.opts.ConferencePrefix,
		Provider:  s.deps.Sender.Provider(),
	}
	for _, l := range levels {
		if len(byLevel[l.ID]) == 0 {
			continue
		}
		page.Levels = append(page.Levels, levelGroup{Level: l, Sponsors: byLevel[l.ID]})
	}
	renderTemplate(w, r, http.StatusOK, "sponsors.html", page)
}

// handleSponsorExport handles GET /admin/sponsors/export
func (s *server) handleSponsorExport(w http.ResponseWriter, r *http.Request) {
	res, err := projections.QuerySponsorDirectory(r.Context(), projections.SponsorDirectoryDeps{
		SponsorStore: s.deps.SponsorStore,
	})
	if err != nil {
		internalError(w, err)
		return
	}

	slog.Info("sponsor_export_event", "event", "directory_exported", "sponsor_count", len(res.Entries))
	s.recordAudit(r, s.newAuditEvent(r, auditDomain.CategoryExport, auditDomain.ActionExport).
		WithDescription(fmt.Sprintf("sponsor directory, %d sponsors", len(res.Entries))), nil)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(res.Text))
}

// handleSponsorLogos handles GET /admin/sponsors/logos.zip
func (s *server) handleSponsorLogos(w http.ResponseWriter, r *http.Request) {
	start := s.now()
	res, err := projections.QueryBenefitArchive(r.Context(), projections.ArchiveQuery{}, projections.BenefitArchiveDeps{
		SponsorStore: s.deps.SponsorStore,
		Files:        s.deps.Files,
	})
	if err != nil {
		var dup *projections.DuplicateArchivePathError
		if errors.As(err, &dup) {
			// Two uploads share a base name; the operator has to rename one.
			slog.Warn("sponsor_archive_event", "event", "duplicate_path", "path", dup.Path, "first", dup.First, "second", dup.Second)
			http.Error(w, "two benefit files map to "+dup.Path+"; rename one upload and retry", http.StatusConflict)
			return
		}
		internalError(w, err)
		return
	}
	s.deps.Metrics.RecordArchive(len(res.Entries), len(res.Skipped))
	s.recordAudit(r, s.newAuditEvent(r, auditDomain.CategoryExport, auditDomain.ActionDownload).
		WithDescription(fmt.Sprintf("logo archive, %d files", len(res.Entries))),
		map[string]any{"entries": len(res.Entries), "skipped": res.Skipped})

	slog.Info("sponsor_archive_event",
		"event", "archive_built",
		"entries", len(res.Entries),
		"skipped", len(res.Skipped),
		"bytes", len(res.Data),
		"duration_ms", s.now().Sub(start).Milliseconds(),
	)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", projections.ArchiveFileName(s.opts.ConferencePrefix)))
	w.Write(res.Data)
}

// sponsorEmailPage is the view model for the compose, preview and result states.
type sponsorEmailPage struct {
	IDs          []string
	Sponsors     []domain.Sponsor
	Recipients   []string
	Placeholders []string

	Subject     string
	Body        string
	From        string
	Cc          string
	Bcc         string
	DefaultFrom string

	State    string
	Sample   mailmerge.Message
	Error    string
	BatchID  string // carried from preview to confirmation so a form sends at most once
	Dispatch *orchestrators.DispatchSponsorEmailResult
	Failures []*orchestrators.DispatchFailedError
}

func (s *server) newEmailPage(ids []string) sponsorEmailPage {
	return sponsorEmailPage{
		IDs:          ids,
		Placeholders: mailmerge.Placeholders(),
		DefaultFrom:  s.opts.DefaultFrom,
		State:        mailmerge.StateDraft,
	}
}

// handleSponsorEmailForm handles GET /admin/sponsors/email?ids=...
func (s *server) handleSponsorEmailForm(w http.ResponseWriter, r *http.Request) {
	ids := r.URL.Query()["ids"]
	page := s.newEmailPage(ids)

	if len(ids) == 0 {
		page.Error = orchestrators.ErrNoSponsorsSelected.Error()
		renderTemplate(w, r, http.StatusBadRequest, "sponsor_email.html", page)
		return
	}
	sponsors, err := s.deps.SponsorStore.List(r.Context(), sponsorStore.ListFilter{IDs: ids, ActiveOnly: true})
	if err != nil {
		internalError(w, err)
		return
	}
	page.Sponsors = sponsors
	page.Recipients = mailmerge.ResolveRecipients(sponsors...)
	if len(sponsors) == 0 {
		page.Error = orchestrators.ErrNoSponsorsSelected.Error()
		renderTemplate(w, r, http.StatusBadRequest, "sponsor_email.html", page)
		return
	}
	renderTemplate(w, r, http.StatusOK, "sponsor_email.html", page)
}

// handleSponsorEmailSubmit handles POST /admin/sponsors/email
func (s *server) handleSponsorEmailSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	ids := r.PostForm["ids"]
	page := s.newEmailPage(ids)
	page.Subject = r.PostFormValue("subject")
	page.Body = r.PostFormValue("body")
	page.From = strings.TrimSpace(r.PostFormValue("from"))
	page.Cc = r.PostFormValue("cc")
	page.Bcc = r.PostFormValue("bcc")

	page.BatchID = strings.TrimSpace(r.PostFormValue("batch"))
	if !validBatchID(page.BatchID) {
		page.BatchID = s.generateID()
	}
	if !s.batches.claim(page.BatchID) {
		// A reload or resubmit of a form that was already sent.
		slog.Info("sponsor_email_event", "event", "batch_resubmitted", "batch_id", page.BatchID)
		http.Redirect(w, r, batchURL(page.BatchID), http.StatusSeeOther)
		return
	}

	deps := orchestrators.SponsorEmailDeps{
		SponsorStore: s.deps.SponsorStore,
		Sender:       s.deps.Sender,
		Now:          s.now,
		GenerateID:   s.generateID,
		DefaultFrom:  s.opts.DefaultFrom,
		ReplyTo:      s.opts.ReplyTo,
	}
	if s.opts.MailHTML {
		deps.HTMLBody = email.MarkdownHTML
	}

	res, err := orchestrators.ExecuteSponsorEmail(r.Context(), orchestrators.SponsorEmailInput{
		Submission: mailmerge.Submission{
			Subject:       page.Subject,
			Body:          page.Body,
			SampleSubject: r.PostFormValue("sample_subject"),
			SampleBody:    r.PostFormValue("sample_body"),
		},
		SponsorIDs: ids,
		BatchID:    page.BatchID,
		From:       page.From,
		Cc:         page.Cc,
		Bcc:        page.Bcc,
	}, deps)

	if res.Dispatch != nil && res.Dispatch.BatchID != "" {
		d := res.Dispatch
		s.deps.Metrics.RecordGate(res.Decision.State)
		s.deps.Metrics.RecordDispatch(s.deps.Sender.Provider(), len(d.Sent), len(d.Failures))
		s.recordDispatchAudit(r, page.Subject, d)
		var dispatchErr *orchestrators.DispatchError
		if errors.As(err, &dispatchErr) {
			// Partial delivery is still a completed batch; the result page lists who was missed.
			slog.Warn("sponsor_email_event", "event", "batch_partial", "batch_id", d.BatchID, "failed", len(d.Failures))
		}
		s.batches.finish(d.BatchID, batchResult{Subject: page.Subject, Sponsors: res.Sponsors, Dispatch: *d})
		http.Redirect(w, r, batchURL(d.BatchID), http.StatusSeeOther)
		return
	}
	s.batches.release(page.BatchID)

	page.Sponsors = res.Sponsors
	page.Recipients = res.Recipients
	page.Sample = res.Decision.Sample
	if res.Decision.State != "" {
		page.State = res.Decision.State
		s.deps.Metrics.RecordGate(res.Decision.State)
	}

	switch {
	case err == nil:
		renderTemplate(w, r, http.StatusOK, "sponsor_email.html", page)
	case errors.Is(err, orchestrators.ErrNoSponsorsSelected):
		page.Error = err.Error()
		renderTemplate(w, r, http.StatusBadRequest, "sponsor_email.html", page)
	case errors.Is(err, mailmerge.ErrUnknownPlaceholder),
		errors.Is(err, mailmerge.ErrEmptySubject),
		errors.Is(err, mailmerge.ErrEmptyBody),
		errors.Is(err, mailmerge.ErrEmptyRendering),
		errors.Is(err, orchestrators.ErrMissingFromAddress):
		page.Error = err.Error()
		renderTemplate(w, r, http.StatusUnprocessableEntity, "sponsor_email.html", page)
	default:
		internalError(w, err)
	}
}
