package audit

import (
	"errors"
	"time"
)

// Category groups audit events by the part of the program they touch.
type Category string

const (
	CategoryEmail  Category = "email"
	CategoryExport Category = "export"
	CategoryImport Category = "import"
)

// Action represents the action that occurred.
type Action string

const (
	ActionSend     Action = "send"
	ActionExport   Action = "export"
	ActionDownload Action = "download"
	ActionImport   Action = "import"
)

// Severity represents the severity level of an audit event.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Domain errors
var (
	ErrEmptyID     = errors.New("audit event ID is required")
	ErrEmptyAction = errors.New("audit event action is required")
)

// Event is one outward-facing operation performed by staff.
type Event struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Category    Category  `json:"category"`
	Action      Action    `json:"action"`
	Severity    Severity  `json:"severity"`
	Actor       string    `json:"actor"`       // staff user, or "cli"
	ResourceID  string    `json:"resource_id"` // batch ID for email sends
	Description string    `json:"description"`
	Metadata    string    `json:"metadata"` // JSON object, may be empty
}

// NewEvent creates an info-level event.
// PRE: id and action are non-empty
// POST: Returns an Event stamped with at (UTC)
func NewEvent(id string, at time.Time, actor string, category Category, action Action) Event {
	return Event{
		ID:        id,
		Timestamp: at.UTC(),
		Category:  category,
		Action:    action,
		Severity:  SeverityInfo,
		Actor:     actor,
	}
}

// WithSeverity sets the severity level.
func (e Event) WithSeverity(s Severity) Event {
	e.Severity = s
	return e
}

// WithResource sets the resource the event refers to.
func (e Event) WithResource(id string) Event {
	e.ResourceID = id
	return e
}

// WithDescription sets the event description.
func (e Event) WithDescription(desc string) Event {
	e.Description = desc
	return e
}

// WithMetadata sets optional JSON metadata.
// PRE: metadata is valid JSON or empty
func (e Event) WithMetadata(metadata string) Event {
	e.Metadata = metadata
	return e
}

// Validate checks if the Event has valid data.
// PRE: Event struct is populated
// POST: Returns nil if valid, error otherwise
func (e *Event) Validate() error {
	if e.ID == "" {
		return ErrEmptyID
	}
	if e.Action == "" {
		return ErrEmptyAction
	}
	return nil
}
