package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clementchangcheng/projectwildlife/internal/cache"
	"github.com/clementchangcheng/projectwildlife/internal/detect"
	"github.com/clementchangcheng/projectwildlife/internal/models"
)

func testIngestor(drive *fakeDrive, analyzer *fakeAnalyzer, window time.Duration) (*IngestorFunction, *fakeArtifacts, *fakeSightings) {
	artifacts := newFakeArtifacts()
	sightings := &fakeSightings{}
	ing := NewIngestorWith(
		drive,
		cache.NewProcessedCache(100),
		NewPipeline(analyzer, artifacts, sightings),
		IngestorConfig{
			WatchedFolderID: "folder-1",
			ListWindow:      5,
			RecencyWindow:   window,
		},
	)
	return ing, artifacts, sightings
}

func imageFile(id string, modified time.Time) models.FileRef {
	return models.FileRef{
		ID:           id,
		Name:         id + ".jpg",
		MimeType:     "image/jpeg",
		ModifiedTime: modified,
	}
}

func okAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{result: &detect.Result{
		AnnotatedJPEG: []byte("jpeg"),
		Species:       []models.SpeciesRecord{{Species: "Sambar Deer", Confidence: 0.7}},
	}}
}

func TestIngestor_UnchangedNotificationIsSkipped(t *testing.T) {
	modified := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	drive := &fakeDrive{files: []models.FileRef{imageFile("file-1", modified)}, data: []byte("raw")}
	analyzer := okAnalyzer()
	ing, _, _ := testIngestor(drive, analyzer, 0)

	n := models.Notification{ResourceState: "changes", ResourceID: "res-1"}
	require.NoError(t, ing.Process(context.Background(), n))
	require.NoError(t, ing.Process(context.Background(), n))

	assert.Len(t, drive.downloads, 1, "second notification must not re-download")
	assert.Equal(t, 1, analyzer.calls, "second notification must not re-run detection")
}

func TestIngestor_NewerModificationIsReprocessed(t *testing.T) {
	modified := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	drive := &fakeDrive{files: []models.FileRef{imageFile("file-1", modified)}, data: []byte("raw")}
	analyzer := okAnalyzer()
	ing, _, _ := testIngestor(drive, analyzer, 0)

	n := models.Notification{ResourceState: "changes"}
	require.NoError(t, ing.Process(context.Background(), n))

	drive.files = []models.FileRef{imageFile("file-1", time.Now().UTC().Add(time.Hour))}
	require.NoError(t, ing.Process(context.Background(), n))

	assert.Len(t, drive.downloads, 2)
}

func TestIngestor_RecencyWindowSuppressesFreshClaims(t *testing.T) {
	modified := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	drive := &fakeDrive{files: []models.FileRef{imageFile("file-1", modified)}, data: []byte("raw")}
	ing, _, _ := testIngestor(drive, okAnalyzer(), 5*time.Minute)

	n := models.Notification{ResourceState: "changes"}
	require.NoError(t, ing.Process(context.Background(), n))

	// Even a newer modification is suppressed while the claim is fresh.
	drive.files = []models.FileRef{imageFile("file-1", time.Now().UTC().Add(time.Hour))}
	require.NoError(t, ing.Process(context.Background(), n))

	assert.Len(t, drive.downloads, 1)
}

func TestIngestor_ClaimSurvivesDownloadFailure(t *testing.T) {
	modified := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	drive := &fakeDrive{
		files:       []models.FileRef{imageFile("file-1", modified)},
		downloadErr: errors.New("network down"),
	}
	ing, artifacts, _ := testIngestor(drive, okAnalyzer(), 0)

	n := models.Notification{ResourceState: "changes"}
	require.NoError(t, ing.Process(context.Background(), n), "per-file failures do not fail the notification")

	_, claimed := ing.cache.Get("file-1")
	assert.True(t, claimed, "failed download must still leave a cache claim")
	assert.Empty(t, artifacts.saved)

	// The unchanged file stays suppressed afterwards.
	require.NoError(t, ing.Process(context.Background(), n))
	assert.Len(t, drive.downloads, 1)
}

func TestIngestor_NonImageMimeTypeSkippedButClaimed(t *testing.T) {
	drive := &fakeDrive{files: []models.FileRef{{
		ID:           "notes-1",
		Name:         "notes.txt",
		MimeType:     "text/plain",
		ModifiedTime: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}}}
	analyzer := okAnalyzer()
	ing, _, sightings := testIngestor(drive, analyzer, 0)

	require.NoError(t, ing.Process(context.Background(), models.Notification{ResourceState: "changes"}))

	assert.Empty(t, drive.downloads, "non-image files are rejected before download")
	assert.Equal(t, 0, analyzer.calls)
	assert.Equal(t, 0, sightings.created)
	_, claimed := ing.cache.Get("notes-1")
	assert.True(t, claimed)
}

func TestIngestor_ProcessesAllCandidates(t *testing.T) {
	modified := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	drive := &fakeDrive{
		files: []models.FileRef{
			imageFile("file-1", modified),
			imageFile("file-2", modified),
		},
		data: []byte("raw"),
	}
	ing, artifacts, sightings := testIngestor(drive, okAnalyzer(), 0)

	require.NoError(t, ing.Process(context.Background(), models.Notification{ResourceState: "changes"}))

	assert.Len(t, drive.downloads, 2)
	assert.Len(t, sightings.completed, 2)
	assert.Contains(t, artifacts.saved, "annotated_file-1.jpg")
	assert.Contains(t, artifacts.saved, "annotated_file-2.jpg")
}
