package mailmerge

import (
	"errors"

	"sponsorship/internal/domain/sponsor"
)

// Gate states. They are never stored: each request rebuilds the state by comparing the
// submitted template's rendering with the sample the operator was shown.
const (
	StateDraft     = "draft"
	StatePreview   = "preview"
	StateConfirmed = "confirmed"
)

// Domain errors
var (
	ErrEmptySubject = errors.New("email subject is required")
	ErrEmptyBody    = errors.New("email body is required")

	// ErrEmptyRendering means the sample has nothing to show, so it could never be confirmed.
	ErrEmptyRendering = errors.New("email subject and body render empty for the first selected sponsor")
)

// Submission is one round-trip of the compose form.
type Submission struct {
	Subject       string
	Body          string
	SampleSubject string // rendering shown on the previous round, echoed back by the form
	SampleBody    string
}

// Template returns the candidate template of the submission.
func (s Submission) Template() Template {
	return Template{Subject: s.Subject, Body: s.Body}
}

// Confirmation authorises a send of exactly one template. Only EvaluateGate creates one.
type Confirmation struct {
	template Template
}

// Template returns the confirmed template.
func (c Confirmation) Template() Template {
	return c.template
}

// Valid reports whether c came from an opened gate.
func (c Confirmation) Valid() bool {
	return c.template.Subject != "" && c.template.Body != ""
}

// GateDecision is the outcome of one gate evaluation.
type GateDecision struct {
	State        string
	Sample       Message       // rendering to show the operator next
	Confirmation *Confirmation // non-nil only when State is StateConfirmed
}

// Opened reports whether sending is authorised.
func (d GateDecision) Opened() bool {
	return d.State == StateConfirmed && d.Confirmation != nil
}

// EvaluateGate decides whether the operator has reviewed the exact rendering about to be sent.
// PRE: representative is the sponsor the sample was rendered against
// POST: StateConfirmed with a Confirmation only when the fresh rendering equals the submitted sample byte for byte;
// StatePreview with the fresh rendering otherwise; StateDraft with an error when the template cannot be rendered
// or renders to an empty subject and body
// INVARIANT: No normalisation is applied before comparison
func EvaluateGate(sub Submission, representative sponsor.Sponsor) (GateDecision, error) {
	if sub.Subject == "" {
		return GateDecision{State: StateDraft}, ErrEmptySubject
	}
	if sub.Body == "" {
		return GateDecision{State: StateDraft}, ErrEmptyBody
	}
	if err := Validate(sub.Template()); err != nil {
		return GateDecision{State: StateDraft}, err
	}

	rendered, err := RenderMessage(sub.Template(), representative)
	if err != nil {
		return GateDecision{State: StateDraft}, err
	}
	if rendered.Subject == "" && rendered.Body == "" {
		return GateDecision{State: StateDraft}, ErrEmptyRendering
	}

	decision := GateDecision{State: StatePreview, Sample: rendered}
	shown := sub.SampleSubject != "" || sub.SampleBody != ""
	if shown && rendered.Subject == sub.SampleSubject && rendered.Body == sub.SampleBody {
		decision.State = StateConfirmed
		decision.Confirmation = &Confirmation{template: sub.Template()}
	}
	return decision, nil
}
