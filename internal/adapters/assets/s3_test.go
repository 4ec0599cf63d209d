package assets

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// mockS3Client serves objects from a map keyed by object key.
type mockS3Client struct {
	objects map[string]string
	mod     time.Time
	err     error
	keys    []string
}

func (m *mockS3Client) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m.keys = append(m.keys, aws.ToString(in.Key))
	if m.err != nil {
		return nil, m.err
	}
	body, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(body))), LastModified: aws.Time(m.mod)}, nil
}

func (m *mockS3Client) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.keys = append(m.keys, aws.ToString(in.Key))
	if m.err != nil {
		return nil, m.err
	}
	body, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: aws.Int64(int64(len(body))),
		LastModified:  aws.Time(m.mod),
	}, nil
}

// TestS3FS_StatAndOpen tests that the prefix is applied and metadata mapped.
func TestS3FS_StatAndOpen(t *testing.T) {
	mod := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	client := &mockS3Client{objects: map[string]string{"media/logos/acme.png": "abc"}, mod: mod}
	fsys := NewS3FS(client, "bucket", "/media/")
	ctx := context.Background()

	info, err := fsys.Stat(ctx, "logos/acme.png")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size != 3 || !info.ModTime.Equal(mod) {
		t.Errorf("unexpected info: %+v", info)
	}

	rc, _, err := fsys.Open(ctx, "/logos/acme.png")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	body, _ := io.ReadAll(rc)
	rc.Close()
	if string(body) != "abc" {
		t.Errorf("body = %q", body)
	}
	if client.keys[0] != "media/logos/acme.png" || client.keys[1] != "media/logos/acme.png" {
		t.Errorf("unexpected keys: %v", client.keys)
	}
}

// TestS3FS_NotFound tests that missing-object errors map to ErrNotFound.
func TestS3FS_NotFound(t *testing.T) {
	fsys := NewS3FS(&mockS3Client{objects: map[string]string{}}, "bucket", "")
	ctx := context.Background()

	if _, err := fsys.Stat(ctx, "x.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Stat: expected ErrNotFound, got %v", err)
	}
	if _, _, err := fsys.Open(ctx, "x.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open: expected ErrNotFound, got %v", err)
	}

	generic := NewS3FS(&mockS3Client{err: &smithy.GenericAPIError{Code: "NoSuchKey"}}, "bucket", "")
	if _, err := generic.Stat(ctx, "x.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("generic NoSuchKey: expected ErrNotFound, got %v", err)
	}
}

// TestS3FS_OtherErrors tests that non-missing errors are not reported as missing.
func TestS3FS_OtherErrors(t *testing.T) {
	fsys := NewS3FS(&mockS3Client{err: &smithy.GenericAPIError{Code: "AccessDenied"}}, "bucket", "")
	_, err := fsys.Stat(context.Background(), "x.png")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected a non-missing error, got %v", err)
	}
	if _, err := fsys.Stat(context.Background(), "../x.png"); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("expected ErrInvalidPath, got %v", err)
	}
}
