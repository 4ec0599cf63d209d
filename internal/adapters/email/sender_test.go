package email

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/mrz1836/postmark"
	"github.com/resend/resend-go/v2"
)

var sampleRequest = SendRequest{
	To:      []string{"a@acme.example", "b@acme.example"},
	Cc:      []string{"cc@pycon.example"},
	Bcc:     []string{"archive@pycon.example"},
	From:    "sponsors@pycon.example",
	Subject: "Hello Acme",
	Text:    "Body",
	HTML:    "<p>Body</p>",
	Tag:     "batch-1",
}

type mockResend struct {
	got *resend.SendEmailRequest
	err error
}

func (m *mockResend) SendWithContext(_ context.Context, p *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	m.got = p
	if m.err != nil {
		return nil, m.err
	}
	return &resend.SendEmailResponse{Id: "re_1"}, nil
}

type mockPostmark struct {
	got  postmark.Email
	resp postmark.EmailResponse
	err  error
}

func (m *mockPostmark) SendEmail(_ context.Context, e postmark.Email) (postmark.EmailResponse, error) {
	m.got = e
	return m.resp, m.err
}

type mockSES struct {
	got *ses.SendEmailInput
	err error
}

func (m *mockSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.got = in
	if m.err != nil {
		return nil, m.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

// TestResendSender_MapsFields tests that every request field reaches the Resend payload.
func TestResendSender_MapsFields(t *testing.T) {
	m := &mockResend{}
	s := &ResendSender{emails: m}

	res, err := s.Send(context.Background(), sampleRequest)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.MessageID != "re_1" {
		t.Errorf("message id = %q", res.MessageID)
	}
	if !reflect.DeepEqual(m.got.To, sampleRequest.To) || !reflect.DeepEqual(m.got.Cc, sampleRequest.Cc) || !reflect.DeepEqual(m.got.Bcc, sampleRequest.Bcc) {
		t.Errorf("addresses not mapped: %+v", m.got)
	}
	if m.got.Text != "Body" || m.got.Html != "<p>Body</p>" || len(m.got.Tags) != 1 {
		t.Errorf("content not mapped: %+v", m.got)
	}
}

// TestResendSender_Error tests that provider errors are wrapped.
func TestResendSender_Error(t *testing.T) {
	boom := errors.New("boom")
	s := &ResendSender{emails: &mockResend{err: boom}}
	if _, err := s.Send(context.Background(), sampleRequest); !errors.Is(err, boom) {
		t.Errorf("expected wrapped boom, got %v", err)
	}
}

// TestPostmarkSender_MapsFields tests the comma-joined address fields.
func TestPostmarkSender_MapsFields(t *testing.T) {
	m := &mockPostmark{resp: postmark.EmailResponse{MessageID: "pm-1", SubmittedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}}
	s := &PostmarkSender{client: m, stream: "broadcast"}

	res, err := s.Send(context.Background(), sampleRequest)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if m.got.To != "a@acme.example,b@acme.example" || m.got.Bcc != "archive@pycon.example" {
		t.Errorf("addresses not joined: %+v", m.got)
	}
	if m.got.MessageStream != "broadcast" || m.got.TextBody != "Body" {
		t.Errorf("unexpected payload: %+v", m.got)
	}
	if res.MessageID != "pm-1" || res.SentAt.Year() != 2026 {
		t.Errorf("unexpected result: %+v", res)
	}
}

// TestPostmarkSender_ErrorCode tests that a non-zero ErrorCode is a failure.
func TestPostmarkSender_ErrorCode(t *testing.T) {
	s := &PostmarkSender{client: &mockPostmark{resp: postmark.EmailResponse{ErrorCode: 300, Message: "Invalid email request"}}}
	_, err := s.Send(context.Background(), sampleRequest)
	if !errors.Is(err, ErrProviderRejected) {
		t.Fatalf("expected ErrProviderRejected, got %v", err)
	}
	if !strings.Contains(err.Error(), "300") {
		t.Errorf("expected code in error, got %v", err)
	}
}

// TestSESSender_MapsFields tests destination and body mapping.
func TestSESSender_MapsFields(t *testing.T) {
	m := &mockSES{}
	s := &SESSender{client: m}

	res, err := s.Send(context.Background(), sampleRequest)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.MessageID != "ses-1" {
		t.Errorf("message id = %q", res.MessageID)
	}
	if !reflect.DeepEqual(m.got.Destination.CcAddresses, sampleRequest.Cc) {
		t.Errorf("cc = %v", m.got.Destination.CcAddresses)
	}
	if aws.ToString(m.got.Message.Body.Text.Data) != "Body" || aws.ToString(m.got.Message.Body.Html.Data) != "<p>Body</p>" {
		t.Errorf("body not mapped")
	}

	plain := sampleRequest
	plain.HTML = ""
	s.Send(context.Background(), plain)
	if m.got.Message.Body.Html != nil {
		t.Error("expected no HTML part for a text-only request")
	}
}

// TestSenders_RejectEmptyRecipients tests that no provider is called without recipients.
func TestSenders_RejectEmptyRecipients(t *testing.T) {
	req := sampleRequest
	req.To = nil

	rm := &mockResend{}
	pm := &mockPostmark{}
	sm := &mockSES{}
	senders := []Sender{&ResendSender{emails: rm}, &PostmarkSender{client: pm}, &SESSender{client: sm}, NewNoopSender()}
	for _, s := range senders {
		if _, err := s.Send(context.Background(), req); !errors.Is(err, ErrNoRecipients) {
			t.Errorf("%s: expected ErrNoRecipients, got %v", s.Provider(), err)
		}
	}
	if rm.got != nil || pm.got.Subject != "" || sm.got != nil {
		t.Error("provider called for an empty recipient list")
	}
}

// TestNoopSender_RecordsSends tests that accepted requests are retained.
func TestNoopSender_RecordsSends(t *testing.T) {
	s := NewNoopSender()
	if _, err := s.Send(context.Background(), sampleRequest); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := s.Sent(); len(got) != 1 || got[0].Subject != "Hello Acme" {
		t.Errorf("unexpected sent list: %+v", got)
	}
}

// TestMarkdownHTML tests line breaks and raw HTML escaping.
func TestMarkdownHTML(t *testing.T) {
	out, err := MarkdownHTML("Hello\nthere\n\n<script>x</script>")
	if err != nil {
		t.Fatalf("MarkdownHTML: %v", err)
	}
	if !strings.Contains(out, "<br") {
		t.Errorf("expected hard wrap, got %q", out)
	}
	if strings.Contains(out, "<script>") {
		t.Errorf("raw HTML must not pass through: %q", out)
	}
}
