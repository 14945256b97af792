package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/clementchangcheng/projectwildlife/internal/detect"
	"github.com/clementchangcheng/projectwildlife/internal/gcp"
)

// GCSEvent is the payload of a storage finalize event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// UploadConfig holds configuration for the upload-processor service.
type UploadConfig struct {
	ProjectID      string
	ArtifactBucket string
	CollectionName string
	ModelPath      string
	LabelsPath     string
	MinConfidence  float64
}

func loadUploadConfig() (*UploadConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	bucket := gcp.GetEnv("ARTIFACT_BUCKET", "")
	if bucket == "" {
		return nil, fmt.Errorf("ARTIFACT_BUCKET environment variable must be set")
	}
	minConfidence, err := strconv.ParseFloat(gcp.GetEnv("MIN_CONFIDENCE", "0.25"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MIN_CONFIDENCE: %w", err)
	}

	return &UploadConfig{
		ProjectID:      projectID,
		ArtifactBucket: bucket,
		CollectionName: gcp.GetEnv("FIRESTORE_COLLECTION", "sightings"),
		ModelPath:      gcp.GetEnv("MODEL_PATH", "models/wildlife.tflite"),
		LabelsPath:     gcp.GetEnv("LABELS_PATH", "models/labels.txt"),
		MinConfidence:  minConfidence,
	}, nil
}

// UploadFunction processes images uploaded straight to the uploads bucket,
// bypassing Drive. Each finalize event is one attempt through the same
// per-image core the webhook path uses; object creation in GCS is already
// once-per-content, so there is no dedup cache on this path.
type UploadFunction struct {
	store    *gcp.ArtifactStore
	pipeline *Pipeline
}

// NewUploadProcessor creates a fully wired UploadFunction from the environment.
func NewUploadProcessor(ctx context.Context) (*UploadFunction, error) {
	config, err := loadUploadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	detector, err := detect.NewTFLiteDetector(config.ModelPath, config.LabelsPath, config.MinConfidence)
	if err != nil {
		return nil, fmt.Errorf("failed to load detection model: %w", err)
	}
	ocr, err := gcp.NewVisionOCR(ctx, "")
	if err != nil {
		return nil, err
	}
	store, err := gcp.NewArtifactStore(ctx, config.ArtifactBucket)
	if err != nil {
		return nil, err
	}
	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, err
	}

	slog.Info("Upload processor initialized.", "artifactBucket", config.ArtifactBucket)
	return &UploadFunction{
		store:    store,
		pipeline: NewPipeline(detect.NewAdapter(detector, ocr), store, gcp.NewSightingStore(firestoreClient, config.CollectionName)),
	}, nil
}

// Process handles one storage finalize event.
func (f *UploadFunction) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)

	if strings.HasPrefix(filepath.Base(e.Name), "annotated_") || strings.HasSuffix(e.Name, ".csv") {
		logCtx.Info("Ignoring pipeline artifact.")
		return nil
	}
	logCtx.Info("Processing uploaded object.")

	data, err := f.store.ReadObject(ctx, e.Bucket, e.Name)
	if err != nil {
		logCtx.Error("Failed to download uploaded object", "error", err)
		return err
	}

	fileID := fmt.Sprintf("gs://%s/%s", e.Bucket, e.Name)
	if _, err := f.pipeline.ProcessImage(ctx, fileID, filepath.Base(e.Name), data); err != nil {
		return err
	}
	return nil
}
