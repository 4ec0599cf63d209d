package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mrz1836/postmark"
)

// ErrProviderRejected wraps errors reported in a provider response body.
var ErrProviderRejected = errors.New("email provider rejected message")

// postmarkAPI is the part of the Postmark client used here.
type postmarkAPI interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// PostmarkSender sends emails through Postmark's transactional API.
type PostmarkSender struct {
	client postmarkAPI
	stream string
}

// NewPostmarkSender creates a PostmarkSender.
// PRE: serverToken is non-empty
// POST: Returns a ready-to-use sender on the given message stream ("" for outbound)
func NewPostmarkSender(serverToken, accountToken, stream string) (*PostmarkSender, error) {
	if serverToken == "" {
		return nil, errors.New("postmark server token is required")
	}
	return &PostmarkSender{
		client: postmark.NewClient(serverToken, accountToken),
		stream: stream,
	}, nil
}

// Provider returns "postmark".
func (s *PostmarkSender) Provider() string { return "postmark" }

// Send sends a single email via Postmark. Link tracking stays off for sponsor mail.
func (s *PostmarkSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	if err := req.validate(); err != nil {
		return SendResult{}, err
	}

	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:          req.From,
		To:            strings.Join(req.To, ","),
		Cc:            strings.Join(req.Cc, ","),
		Bcc:           strings.Join(req.Bcc, ","),
		ReplyTo:       req.ReplyTo,
		Subject:       req.Subject,
		Tag:           req.Tag,
		TextBody:      req.Text,
		HTMLBody:      req.HTML,
		MessageStream: s.stream,
	})
	if err != nil {
		slog.Error("postmark_send_failed", "error", err, "to", req.To, "subject", req.Subject)
		return SendResult{}, fmt.Errorf("postmark send failed: %w", err)
	}
	if resp.ErrorCode > 0 {
		slog.Error("postmark_send_rejected", "code", resp.ErrorCode, "message", resp.Message, "to", req.To)
		return SendResult{}, errors.Join(
			ErrProviderRejected,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message),
		)
	}

	slog.Info("postmark_sent", "message_id", resp.MessageID, "to", req.To, "subject", req.Subject)
	sentAt := resp.SubmittedAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	return SendResult{MessageID: resp.MessageID, SentAt: sentAt}, nil
}
