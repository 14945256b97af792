package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/clementchangcheng/projectwildlife/internal/cache"
	"github.com/clementchangcheng/projectwildlife/internal/detect"
	"github.com/clementchangcheng/projectwildlife/internal/gcp"
	"github.com/clementchangcheng/projectwildlife/internal/models"
)

// DriveBrowser is what the ingestor needs from the cloud-storage client.
type DriveBrowser interface {
	ListRecent(ctx context.Context, folderID string, pageSize int64) ([]models.FileRef, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// IngestorConfig holds all configuration for the ingestion service.
type IngestorConfig struct {
	ProjectID       string
	WatchedFolderID string
	ArtifactBucket  string
	CollectionName  string
	CredentialsFile string
	ModelPath       string
	LabelsPath      string
	MinConfidence   float64
	ListWindow      int64
	CacheCapacity   int
	RecencyWindow   time.Duration
}

func loadIngestorConfig() (*IngestorConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	folderID := gcp.GetEnv("WATCHED_FOLDER_ID", "")
	if folderID == "" {
		return nil, fmt.Errorf("WATCHED_FOLDER_ID environment variable must be set")
	}
	bucket := gcp.GetEnv("ARTIFACT_BUCKET", "")
	if bucket == "" {
		return nil, fmt.Errorf("ARTIFACT_BUCKET environment variable must be set")
	}

	minConfidence, err := strconv.ParseFloat(gcp.GetEnv("MIN_CONFIDENCE", "0.25"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MIN_CONFIDENCE: %w", err)
	}
	recencySeconds, err := strconv.Atoi(gcp.GetEnv("RECENCY_WINDOW_SECONDS", "300"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECENCY_WINDOW_SECONDS: %w", err)
	}

	return &IngestorConfig{
		ProjectID:       projectID,
		WatchedFolderID: folderID,
		ArtifactBucket:  bucket,
		CollectionName:  gcp.GetEnv("FIRESTORE_COLLECTION", "sightings"),
		CredentialsFile: gcp.GetEnv("DRIVE_CREDENTIALS_FILE", ""),
		ModelPath:       gcp.GetEnv("MODEL_PATH", "models/wildlife.tflite"),
		LabelsPath:      gcp.GetEnv("LABELS_PATH", "models/labels.txt"),
		MinConfidence:   minConfidence,
		ListWindow:      5,
		CacheCapacity:   cache.DefaultCapacity,
		RecencyWindow:   time.Duration(recencySeconds) * time.Second,
	}, nil
}

// IngestorFunction holds the dependencies for the notification-driven
// ingestion logic.
type IngestorFunction struct {
	drive    DriveBrowser
	cache    *cache.ProcessedCache
	pipeline *Pipeline
	config   IngestorConfig
	now      func() time.Time
}

// NewIngestor creates a fully wired IngestorFunction from the environment.
func NewIngestor(ctx context.Context) (*IngestorFunction, error) {
	config, err := loadIngestorConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	driveClient, err := gcp.NewDriveClient(ctx, config.CredentialsFile)
	if err != nil {
		return nil, err
	}
	detector, err := detect.NewTFLiteDetector(config.ModelPath, config.LabelsPath, config.MinConfidence)
	if err != nil {
		return nil, fmt.Errorf("failed to load detection model: %w", err)
	}
	ocr, err := gcp.NewVisionOCR(ctx, "")
	if err != nil {
		return nil, err
	}
	artifacts, err := gcp.NewArtifactStore(ctx, config.ArtifactBucket)
	if err != nil {
		return nil, err
	}
	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, err
	}

	slog.Info("Ingestor initialized.",
		"watchedFolder", config.WatchedFolderID,
		"artifactBucket", config.ArtifactBucket,
		"recencyWindow", config.RecencyWindow.String())

	return &IngestorFunction{
		drive:    driveClient,
		cache:    cache.NewProcessedCache(config.CacheCapacity),
		pipeline: NewPipeline(detect.NewAdapter(detector, ocr), artifacts, gcp.NewSightingStore(firestoreClient, config.CollectionName)),
		config:   *config,
		now:      time.Now,
	}, nil
}

// NewIngestorWith builds an ingestor over explicit collaborators.
func NewIngestorWith(drive DriveBrowser, processedCache *cache.ProcessedCache, pipeline *Pipeline, config IngestorConfig) *IngestorFunction {
	return &IngestorFunction{
		drive:    drive,
		cache:    processedCache,
		pipeline: pipeline,
		config:   config,
		now:      time.Now,
	}
}

// Process handles one accepted change notification: list the most recently
// modified files in the watched folder, then process each candidate at most
// once. The cache entry for a candidate is written before any download so a
// concurrent duplicate notification observed mid-attempt is also skipped,
// and it is not rolled back on failure: a broken file counts as seen until
// its modification time moves forward, which keeps redelivery storms off the
// collaborators.
//
// Per-file failures are logged and do not fail the notification; only a
// listing failure is surfaced to the transport.
func (f *IngestorFunction) Process(ctx context.Context, n models.Notification) error {
	logCtx := slog.With("resourceId", n.ResourceID, "channelId", n.ChannelID)
	logCtx.Info("Processing notification.")

	files, err := f.drive.ListRecent(ctx, f.config.WatchedFolderID, f.config.ListWindow)
	if err != nil {
		logCtx.Error("Failed to list watched folder", "error", err)
		return err
	}
	if len(files) == 0 {
		logCtx.Warn("No files found in the watched folder.")
		return nil
	}

	for _, file := range files {
		f.processCandidate(ctx, logCtx, file)
	}
	return nil
}

func (f *IngestorFunction) processCandidate(ctx context.Context, logCtx *slog.Logger, file models.FileRef) {
	logCtx = logCtx.With("fileId", file.ID, "name", file.Name)

	if last, ok := f.cache.Get(file.ID); ok && !file.ModifiedTime.After(last) {
		logCtx.Info("Skipping already processed file.", "lastProcessedAt", last)
		return
	}
	if f.cache.IsWithin(file.ID, f.config.RecencyWindow) {
		logCtx.Info("Skipping file claimed within recency window.")
		return
	}

	// Claim before any I/O so overlapping notifications for this id are
	// deduplicated even while the download is still in flight.
	f.cache.Add(file.ID, f.now())

	if !strings.HasPrefix(file.MimeType, "image/") {
		logCtx.Warn("File is not an image, skipping.", "mimeType", file.MimeType)
		return
	}

	logCtx.Info("Processing file.", "modifiedTime", file.ModifiedTime)
	data, err := f.drive.Download(ctx, file.ID)
	if err != nil {
		logCtx.Error("Failed to download file; claim is kept to avoid a retry storm.", "error", err)
		return
	}
	if _, err := f.pipeline.ProcessImage(ctx, file.ID, file.Name, data); err != nil {
		logCtx.Error("Attempt failed.", "error", err)
	}
}
