package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("audiocove/storage")

// Sentinel errors for storage operations
var (
	// ErrObjectNotFound indicates the requested object does not exist
	ErrObjectNotFound = errors.New("object not found")

	// ErrAccessDenied indicates insufficient permissions for the operation
	ErrAccessDenied = errors.New("access denied")

	// ErrNetworkError indicates a network connectivity issue
	ErrNetworkError = errors.New("network error")
)

// Object is a stored media object opened for reading. Close the body
// when done.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// ObjectStore is the surface the API needs from media storage.
// Satisfied by S3Storage and by the in-memory fake in tests.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, data []byte) error
	Open(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
}

// S3Config holds S3/MinIO configuration
type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
}

// S3Storage serves media objects from S3/MinIO
type S3Storage struct {
	client *minio.Client
	bucket string
}

// NewS3Storage creates a new S3/MinIO storage client
func NewS3Storage(config S3Config) (*S3Storage, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	// Verify bucket exists (bucket must be created out-of-band)
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, config.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist: create it before starting the server", config.BucketName)
	}

	return &S3Storage{
		client: client,
		bucket: config.BucketName,
	}, nil
}

// Upload stores a media object under the given key
func (s *S3Storage) Upload(ctx context.Context, key, contentType string, data []byte) error {
	ctx, span := tracer.Start(ctx, "storage.upload",
		trace.WithAttributes(
			attribute.String("storage.key", key),
			attribute.Int("file.size", len(data)),
		))
	defer span.End()

	reader := bytes.NewReader(data)
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return classifyStorageError(err, "upload")
	}

	return nil
}

// Open retrieves a media object as a stream. Callers must close the
// returned body. The object is stat'd first so missing keys fail here
// rather than on first read.
func (s *S3Storage) Open(ctx context.Context, key string) (*Object, error) {
	ctx, span := tracer.Start(ctx, "storage.open",
		trace.WithAttributes(attribute.String("storage.key", key)))
	defer span.End()

	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, classifyStorageError(err, "open")
	}

	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, classifyStorageError(err, "open")
	}

	span.SetAttributes(attribute.Int64("file.size", info.Size))
	return &Object{
		Body:        object,
		ContentType: info.ContentType,
		Size:        info.Size,
	}, nil
}

// Delete removes a media object
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	ctx, span := tracer.Start(ctx, "storage.delete",
		trace.WithAttributes(attribute.String("storage.key", key)))
	defer span.End()

	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return classifyStorageError(err, "delete")
	}
	return nil
}

// classifyStorageError examines a storage error and returns an appropriate sentinel error
func classifyStorageError(err error, operation string) error {
	if err == nil {
		return nil
	}

	// Check for MinIO error response
	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		switch minioErr.Code {
		case "NoSuchKey", "NoSuchBucket":
			return fmt.Errorf("%s: %w", operation, ErrObjectNotFound)
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return fmt.Errorf("%s: %w", operation, ErrAccessDenied)
		}
	}

	// Check for network/connection errors
	errStr := err.Error()
	for _, needle := range []string{"connection", "timeout", "network", "dial", "refused"} {
		if strings.Contains(errStr, needle) {
			return fmt.Errorf("%s network issue: %w", operation, ErrNetworkError)
		}
	}

	// Return wrapped generic error for unknown cases
	return fmt.Errorf("%s failed: %w", operation, err)
}
