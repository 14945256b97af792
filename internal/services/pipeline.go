package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/clementchangcheng/projectwildlife/internal/detect"
	"github.com/clementchangcheng/projectwildlife/internal/extract"
	"github.com/clementchangcheng/projectwildlife/internal/models"
	"github.com/clementchangcheng/projectwildlife/internal/tabular"
)

// Analyzer is what the pipeline needs from the detection adapter.
type Analyzer interface {
	Process(ctx context.Context, imageData []byte) (*detect.Result, error)
}

// ArtifactStore persists one named artifact and returns its durable URI.
type ArtifactStore interface {
	Save(ctx context.Context, objectName string, data []byte, contentType string) (string, error)
}

// SightingStore records the lifecycle of each pipeline attempt.
type SightingStore interface {
	Create(ctx context.Context, fileID, name string) (string, error)
	Complete(ctx context.Context, docID string, speciesCount, recordCount int, imageURI, csvURI string) error
	Fail(ctx context.Context, docID, errDetails string) error
}

// Pipeline is the per-image processing core shared by the webhook ingestor
// and the upload processor: analyze, extract, merge and persist. Failed
// attempts leave no partial artifact; temp files are removed on every exit
// path.
type Pipeline struct {
	analyzer  Analyzer
	artifacts ArtifactStore
	sightings SightingStore
}

// NewPipeline wires the processing core together.
func NewPipeline(analyzer Analyzer, artifacts ArtifactStore, sightings SightingStore) *Pipeline {
	return &Pipeline{analyzer: analyzer, artifacts: artifacts, sightings: sightings}
}

// ProcessImage runs one attempt over imageData and returns the persisted
// artifact locations.
func (p *Pipeline) ProcessImage(ctx context.Context, fileID, name string, imageData []byte) (*models.ProcessResult, error) {
	logCtx := slog.With("fileId", fileID, "name", name)
	logCtx.Info("Starting image processing.", "bytes", len(imageData))

	docID, err := p.sightings.Create(ctx, fileID, name)
	if err != nil {
		logCtx.Error("Failed to create sighting record", "error", err)
		return nil, err
	}

	result, err := p.analyzer.Process(ctx, imageData)
	if err != nil {
		return nil, p.handleError(ctx, logCtx, docID, "image analysis failed", err)
	}

	var records []models.ExtractedRecord
	if result.Text != "" {
		records = extract.Records(result.Text)
	} else {
		logCtx.Warn("No text detected in the image.")
	}
	logCtx.Info("Image analysis complete.",
		"species", len(result.Species), "records", len(records))

	csvData, err := p.buildCSV(records, result.Species, name)
	if err != nil {
		return nil, p.handleError(ctx, logCtx, docID, "failed to generate CSV", err)
	}

	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	annotatedObject := fmt.Sprintf("annotated_%s.jpg", base)
	csvObject := fmt.Sprintf("data_%s.csv", base)

	var imageURI, csvURI string
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		imageURI, err = p.artifacts.Save(gctx, annotatedObject, result.AnnotatedJPEG, "image/jpeg")
		return err
	})
	if csvData != nil {
		eg.Go(func() error {
			var err error
			csvURI, err = p.artifacts.Save(gctx, csvObject, csvData, "text/csv")
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, p.handleError(ctx, logCtx, docID, "failed to persist artifacts", err)
	}

	if err := p.sightings.Complete(ctx, docID, len(result.Species), len(records), imageURI, csvURI); err != nil {
		logCtx.Error("Failed to finalize sighting record", "error", err)
		return nil, err
	}

	logCtx.Info("Image processed.", "annotatedImage", imageURI, "csv", csvURI)
	return &models.ProcessResult{ImagePath: imageURI, CSVPath: csvURI}, nil
}

// buildCSV writes the merged table to a temp file, verifies it, and returns
// its contents. The temp directory is removed on every path. With no data at
// all it returns nil bytes and no error: the attempt continues without a CSV
// artifact, mirroring the warning-not-failure contract of the merger.
func (p *Pipeline) buildCSV(records []models.ExtractedRecord, species []models.SpeciesRecord, name string) ([]byte, error) {
	tempDir, err := os.MkdirTemp("", "wildlife-csv-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	csvPath := filepath.Join(tempDir, "data.csv")
	if err := tabular.WriteCSV(records, species, csvPath); err != nil {
		if errors.Is(err, tabular.ErrNoData) {
			slog.Warn("No data extracted from image (neither text nor species).", "name", name)
			return nil, nil
		}
		return nil, err
	}

	data, err := os.ReadFile(csvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read back CSV file: %w", err)
	}
	return data, nil
}

// handleError marks the sighting FAILED and returns the wrapped error.
func (p *Pipeline) handleError(ctx context.Context, logCtx *slog.Logger, docID, message string, originalErr error) error {
	logCtx.Error(message, "error", originalErr)
	if err := p.sightings.Fail(ctx, docID, fmt.Sprintf("%s: %v", message, originalErr)); err != nil {
		logCtx.Error("CRITICAL: Failed to update sighting status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s: %w", message, originalErr)
}
