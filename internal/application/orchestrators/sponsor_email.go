package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	emailAdapter "sponsorship/internal/adapters/email"
	sponsorStore "sponsorship/internal/adapters/storage/sponsor"
	"sponsorship/internal/domain/mailmerge"
	domain "sponsorship/internal/domain/sponsor"
)

// Orchestrator errors
var (
	ErrNotConfirmed       = errors.New("sponsor email has not been confirmed")
	ErrNoSponsorsSelected = errors.New("no active sponsors selected")
	ErrMissingFromAddress = errors.New("from address is required")
)

// SponsorStoreForOrchestrator defines the store interface needed by sponsor email orchestrators.
type SponsorStoreForOrchestrator interface {
	List(ctx context.Context, filter sponsorStore.ListFilter) ([]domain.Sponsor, error)
}

// DispatchFailedError reports one sponsor whose message could not be sent.
type DispatchFailedError struct {
	SponsorID   string
	SponsorName string
	Cause       error
}

func (e *DispatchFailedError) Error() string {
	return fmt.Sprintf("email to sponsor %q (%s) failed: %v", e.SponsorName, e.SponsorID, e.Cause)
}

func (e *DispatchFailedError) Unwrap() error { return e.Cause }

// DispatchError collects every failed sponsor of one batch.
type DispatchError struct {
	BatchID  string
	Failures []*DispatchFailedError
}

func (e *DispatchError) Error() string {
	names := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		names[i] = f.SponsorName
	}
	return fmt.Sprintf("batch %s: %d sponsor email(s) failed: %s", e.BatchID, len(e.Failures), strings.Join(names, ", "))
}

// Unwrap exposes each *DispatchFailedError to errors.Is and errors.As.
func (e *DispatchError) Unwrap() []error {
	out := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f
	}
	return out
}

// --- Dispatch Sponsor Email ---

// DispatchSponsorEmailInput carries input for sending a confirmed template to sponsors.
type DispatchSponsorEmailInput struct {
	Confirmation mailmerge.Confirmation
	Sponsors     []domain.Sponsor
	BatchID      string // empty uses DispatchSponsorEmailDeps.GenerateID
	From         string
	Cc           []string
	Bcc          []string
	ReplyTo      string
}

// DispatchSponsorEmailDeps holds dependencies for DispatchSponsorEmail.
type DispatchSponsorEmailDeps struct {
	Sender     emailAdapter.Sender
	HTMLBody   func(text string) (string, error) // nil sends text only
	Now        func() time.Time
	GenerateID func() string
}

// DispatchSponsorEmailResult carries the outcome of one batch.
type DispatchSponsorEmailResult struct {
	BatchID  string
	Sent     []string // sponsor IDs whose message was accepted
	Failures []*DispatchFailedError
}

// ExecuteDispatchSponsorEmail sends one personalised message per sponsor.
// PRE: Confirmation came from an opened gate; From is non-empty
// POST: Every sponsor is either in Sent or in Failures; a failure never stops the batch
// INVARIANT: Each message goes only to its own sponsor's recipients plus the shared cc/bcc
func ExecuteDispatchSponsorEmail(ctx context.Context, input DispatchSponsorEmailInput, deps DispatchSponsorEmailDeps) (DispatchSponsorEmailResult, error) {
	if !input.Confirmation.Valid() {
		return DispatchSponsorEmailResult{}, ErrNotConfirmed
	}
	if input.From == "" {
		return DispatchSponsorEmailResult{}, ErrMissingFromAddress
	}

	result := DispatchSponsorEmailResult{BatchID: input.BatchID}
	if result.BatchID == "" {
		result.BatchID = deps.GenerateID()
	}
	tmpl := input.Confirmation.Template()
	started := deps.Now()

	for _, s := range input.Sponsors {
		if err := ctx.Err(); err != nil {
			result.Failures = append(result.Failures, &DispatchFailedError{SponsorID: s.ID, SponsorName: s.Name, Cause: err})
			continue
		}
		if err := sendToSponsor(ctx, tmpl, s, input, deps, result.BatchID); err != nil {
			slog.Warn("sponsor_email_event", "event", "send_failed", "batch_id", result.BatchID, "sponsor_id", s.ID, "error", err)
			result.Failures = append(result.Failures, &DispatchFailedError{SponsorID: s.ID, SponsorName: s.Name, Cause: err})
			continue
		}
		result.Sent = append(result.Sent, s.ID)
	}

	slog.Info("sponsor_email_event",
		"event", "batch_dispatched",
		"batch_id", result.BatchID,
		"provider", deps.Sender.Provider(),
		"sent", len(result.Sent),
		"failed", len(result.Failures),
		"duration_ms", deps.Now().Sub(started).Milliseconds(),
	)

	if len(result.Failures) > 0 {
		return result, &DispatchError{BatchID: result.BatchID, Failures: result.Failures}
	}
	return result, nil
}

func sendToSponsor(ctx context.Context, tmpl mailmerge.Template, s domain.Sponsor, input DispatchSponsorEmailInput, deps DispatchSponsorEmailDeps, batchID string) error {
	msg, err := mailmerge.RenderMessage(tmpl, s)
	if err != nil {
		return err
	}
	to := mailmerge.ResolveRecipients(s)
	if len(to) == 0 {
		return emailAdapter.ErrNoRecipients
	}

	req := emailAdapter.SendRequest{
		To:      to,
		Cc:      input.Cc,
		Bcc:     input.Bcc,
		From:    input.From,
		Subject: msg.Subject,
		Text:    msg.Body,
		ReplyTo: input.ReplyTo,
		Tag:     batchID,
	}
	if deps.HTMLBody != nil {
		if req.HTML, err = deps.HTMLBody(msg.Body); err != nil {
			return err
		}
	}

	_, err = deps.Sender.Send(ctx, req)
	return err
}

// --- Sponsor Email (gate + dispatch) ---

// SponsorEmailInput carries one submission of the sponsor email form.
type SponsorEmailInput struct {
	Submission mailmerge.Submission
	SponsorIDs []string
	BatchID    string // empty generates one
	From       string // empty uses SponsorEmailDeps.DefaultFrom
	Cc         string // comma-separated
	Bcc        string // comma-separated
}

// SponsorEmailDeps holds dependencies for SponsorEmail.
type SponsorEmailDeps struct {
	SponsorStore SponsorStoreForOrchestrator
	Sender       emailAdapter.Sender
	HTMLBody     func(text string) (string, error)
	Now          func() time.Time
	GenerateID   func() string
	DefaultFrom  string
	ReplyTo      string
}

// SponsorEmailResult carries the gate decision and, when sent, the batch outcome.
type SponsorEmailResult struct {
	Sponsors   []domain.Sponsor
	Recipients []string // resolved addresses across all selected sponsors
	Decision   mailmerge.GateDecision
	Dispatch   *DispatchSponsorEmailResult // nil unless the gate opened
}

// ExecuteSponsorEmail runs the confirmation gate and dispatches once the operator confirmed.
// PRE: SponsorIDs is non-empty
// POST: Nothing is sent unless Decision is StateConfirmed
// INVARIANT: The gate sample is rendered against the first selected sponsor in storage order
func ExecuteSponsorEmail(ctx context.Context, input SponsorEmailInput, deps SponsorEmailDeps) (SponsorEmailResult, error) {
	if len(input.SponsorIDs) == 0 {
		return SponsorEmailResult{}, ErrNoSponsorsSelected
	}
	sponsors, err := deps.SponsorStore.List(ctx, sponsorStore.ListFilter{IDs: input.SponsorIDs, ActiveOnly: true})
	if err != nil {
		return SponsorEmailResult{}, err
	}
	if len(sponsors) == 0 {
		return SponsorEmailResult{}, ErrNoSponsorsSelected
	}

	result := SponsorEmailResult{
		Sponsors:   sponsors,
		Recipients: mailmerge.ResolveRecipients(sponsors...),
	}
	result.Decision, err = mailmerge.EvaluateGate(input.Submission, sponsors[0])
	if err != nil {
		return result, err
	}
	if !result.Decision.Opened() {
		slog.Info("sponsor_email_event", "event", "preview", "sponsor_count", len(sponsors))
		return result, nil
	}

	from := input.From
	if from == "" {
		from = deps.DefaultFrom
	}
	dispatch, err := ExecuteDispatchSponsorEmail(ctx, DispatchSponsorEmailInput{
		Confirmation: *result.Decision.Confirmation,
		Sponsors:     sponsors,
		BatchID:      input.BatchID,
		From:         from,
		Cc:           mailmerge.SplitAddressList(input.Cc),
		Bcc:          mailmerge.SplitAddressList(input.Bcc),
		ReplyTo:      deps.ReplyTo,
	}, DispatchSponsorEmailDeps{
		Sender:     deps.Sender,
		HTMLBody:   deps.HTMLBody,
		Now:        deps.Now,
		GenerateID: deps.GenerateID,
	})
	result.Dispatch = &dispatch
	return result, err
}
