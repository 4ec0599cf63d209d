package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Client is the subset of the S3 API used by S3FS.
type S3Client interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config configures the S3 media store.
type S3Config struct {
	Bucket         string
	Region         string
	Prefix         string // key prefix prepended to every upload path
	AccessKeyID    string
	SecretKey      string
	Endpoint       string // for S3-compatible services
	ForcePathStyle bool
}

// S3FS serves media files from an S3 bucket.
// It is safe for concurrent use.
type S3FS struct {
	client S3Client
	bucket string
	prefix string
}

// Compile-time check that *S3FS satisfies FileSystem.
var _ FileSystem = (*S3FS)(nil)

// NewS3Client builds an S3 client from cfg using the default AWS credential chain
// unless static keys are supplied.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, errors.New("s3 bucket and region are required")
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	}), nil
}

// NewS3FS creates an S3FS over client.
func NewS3FS(client S3Client, bucket, prefix string) *S3FS {
	return &S3FS{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Stat issues a HeadObject for path.
func (f *S3FS) Stat(ctx context.Context, path string) (FileInfo, error) {
	key, err := f.key(path)
	if err != nil {
		return FileInfo{}, err
	}
	out, err := f.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return FileInfo{}, classifyS3Error(path, err)
	}
	return FileInfo{
		Path:    path,
		Size:    aws.ToInt64(out.ContentLength),
		ModTime: aws.ToTime(out.LastModified),
	}, nil
}

// Open streams the object body for path.
func (f *S3FS) Open(ctx context.Context, path string) (io.ReadCloser, FileInfo, error) {
	key, err := f.key(path)
	if err != nil {
		return nil, FileInfo{}, err
	}
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, FileInfo{}, classifyS3Error(path, err)
	}
	info := FileInfo{
		Path:    path,
		Size:    aws.ToInt64(out.ContentLength),
		ModTime: aws.ToTime(out.LastModified),
	}
	if info.ModTime.IsZero() {
		info.ModTime = time.Unix(0, 0).UTC()
	}
	return out.Body, info, nil
}

func (f *S3FS) key(path string) (string, error) {
	path = strings.TrimPrefix(path, "/")
	if path == "" || strings.Contains(path, "..") {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}
	if f.prefix == "" {
		return path, nil
	}
	return f.prefix + "/" + path, nil
}

// classifyS3Error maps missing-object responses onto ErrNotFound.
func classifyS3Error(path string, err error) error {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		default:
			return fmt.Errorf("s3 %s (code: %s): %w", path, apiErr.ErrorCode(), err)
		}
	}
	return fmt.Errorf("s3 %s: %w", path, err)
}
