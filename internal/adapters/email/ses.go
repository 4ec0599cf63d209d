package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

const charsetUTF8 = "UTF-8"

// sesAPI is the part of the SES client used here.
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESSender sends emails through Amazon SES.
type SESSender struct {
	client sesAPI
}

// NewSESSender loads the default AWS configuration for region and returns a sender.
// PRE: region is non-empty
// POST: Returns a ready-to-use sender
func NewSESSender(ctx context.Context, region string) (*SESSender, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SESSender{client: ses.NewFromConfig(cfg)}, nil
}

// Provider returns "ses".
func (s *SESSender) Provider() string { return "ses" }

// Send sends a single email via SES.
func (s *SESSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	if err := req.validate(); err != nil {
		return SendResult{}, err
	}

	body := &types.Body{
		Text: &types.Content{Data: aws.String(req.Text), Charset: aws.String(charsetUTF8)},
	}
	if req.HTML != "" {
		body.Html = &types.Content{Data: aws.String(req.HTML), Charset: aws.String(charsetUTF8)}
	}
	input := &ses.SendEmailInput{
		Source: aws.String(req.From),
		Destination: &types.Destination{
			ToAddresses:  req.To,
			CcAddresses:  req.Cc,
			BccAddresses: req.Bcc,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(req.Subject), Charset: aws.String(charsetUTF8)},
			Body:    body,
		},
	}
	if req.ReplyTo != "" {
		input.ReplyToAddresses = []string{req.ReplyTo}
	}
	if req.Tag != "" {
		input.Tags = []types.MessageTag{{Name: aws.String("batch"), Value: aws.String(req.Tag)}}
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		slog.Error("ses_send_failed", "error", err, "to", req.To, "subject", req.Subject)
		return SendResult{}, fmt.Errorf("ses send failed: %w", err)
	}

	id := aws.ToString(out.MessageId)
	slog.Info("ses_sent", "message_id", id, "to", req.To, "subject", req.Subject)
	return SendResult{MessageID: id, SentAt: time.Now()}, nil
}
