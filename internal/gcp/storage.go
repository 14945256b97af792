package gcp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// ArtifactStore persists pipeline artifacts (annotated images, CSVs) to a
// GCS bucket. Objects are written create-if-absent, so a re-delivered
// notification that reaches the persist step can never clobber or truncate
// an artifact a reader already sees.
type ArtifactStore struct {
	client *storage.Client
	bucket string
}

// NewArtifactStore creates a store writing into the named bucket.
func NewArtifactStore(ctx context.Context, bucket string) (*ArtifactStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("artifact bucket must be provided")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &ArtifactStore{client: client, bucket: bucket}, nil
}

// Save uploads data as objectName and returns its gs:// URI. Transient
// failures are retried with exponential backoff; an already-existing object
// is treated as success.
func (s *ArtifactStore) Save(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	const maxRetries = 4
	backoff := 1 * time.Second
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := s.saveOnce(ctx, objectName, data, contentType)
		if err == nil {
			return fmt.Sprintf("gs://%s/%s", s.bucket, objectName), nil
		}
		lastErr = err
		slog.Warn("Artifact upload failed, will retry.",
			"gcsObject", objectName,
			"attempt", i+1,
			"maxRetries", maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("upload for %s failed after all retries: %w", objectName, lastErr)
}

func (s *ArtifactStore) saveOnce(ctx context.Context, objectName string, data []byte, contentType string) error {
	writeCtx, cancel := context.WithTimeout(ctx, 50*time.Second)
	defer cancel()

	writer := s.client.Bucket(s.bucket).Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(writeCtx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		_ = writer.Close()
		if isPreconditionFailed(err) {
			log.Printf("SKIPPING: Object %s already exists.", objectName)
			return nil // Not a failure in an idempotent pipeline.
		}
		return fmt.Errorf("failed to copy content to GCS object %s: %w", objectName, err)
	}
	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			log.Printf("SKIPPING: Object %s already exists.", objectName)
			return nil
		}
		return fmt.Errorf("failed to finalize GCS write for %s: %w", objectName, err)
	}
	return nil
}

// ReadObject fetches one object from an arbitrary bucket, used by the
// upload-processor to pull the image that triggered its event.
func (s *ArtifactStore) ReadObject(ctx context.Context, bucket, object string) ([]byte, error) {
	reader, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, object, err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read GCS object gs://%s/%s: %w", bucket, object, err)
	}
	return data, nil
}

func isPreconditionFailed(err error) bool {
	gerr, ok := err.(*googleapi.Error)
	return ok && gerr.Code == 412
}
