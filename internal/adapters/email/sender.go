package email

import (
	"context"
	"errors"
	"time"
)

// ErrNoRecipients is returned when a request carries no To address.
var ErrNoRecipients = errors.New("email has no recipients")

// SendRequest contains the data needed to send an email via an external provider.
type SendRequest struct {
	To      []string // Recipient email addresses
	Cc      []string
	Bcc     []string
	From    string // Sender address (e.g. "PyCon Sponsors <sponsors@python.org>")
	Subject string
	Text    string // Plain text body, always sent
	HTML    string // Optional HTML alternative
	ReplyTo string
	Tag     string // Provider tag for grouping a batch
}

// SendResult contains the response from the email provider.
type SendResult struct {
	MessageID string    // Provider's message ID for tracking
	SentAt    time.Time // When the send was accepted
}

// Sender is the interface for sending emails via an external provider.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
	// Provider names the transport for logs and metrics.
	Provider() string
}

// validate rejects requests no provider would accept.
func (r SendRequest) validate() error {
	if len(r.To) == 0 {
		return ErrNoRecipients
	}
	if r.From == "" {
		return errors.New("email has no from address")
	}
	return nil
}
