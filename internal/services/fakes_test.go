package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/clementchangcheng/projectwildlife/internal/detect"
	"github.com/clementchangcheng/projectwildlife/internal/models"
)

type fakeDrive struct {
	files       []models.FileRef
	data        []byte
	downloadErr error

	mu        sync.Mutex
	listCalls int
	downloads []string
}

func (f *fakeDrive) ListRecent(_ context.Context, _ string, _ int64) ([]models.FileRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.files, nil
}

func (f *fakeDrive) Download(_ context.Context, fileID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads = append(f.downloads, fileID)
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return f.data, nil
}

type fakeAnalyzer struct {
	result *detect.Result
	err    error

	mu    sync.Mutex
	calls int
}

func (f *fakeAnalyzer) Process(_ context.Context, _ []byte) (*detect.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeArtifacts struct {
	mu    sync.Mutex
	saved map[string][]byte
}

func newFakeArtifacts() *fakeArtifacts {
	return &fakeArtifacts{saved: make(map[string][]byte)}
}

func (f *fakeArtifacts) Save(_ context.Context, objectName string, data []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[objectName] = data
	return "gs://test-bucket/" + objectName, nil
}

type fakeSightings struct {
	mu        sync.Mutex
	created   int
	completed []string
	failed    []string
}

func (f *fakeSightings) Create(_ context.Context, fileID, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	return fmt.Sprintf("doc-%d", f.created), nil
}

func (f *fakeSightings) Complete(_ context.Context, docID string, _, _ int, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, docID)
	return nil
}

func (f *fakeSightings) Fail(_ context.Context, docID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, docID)
	return nil
}

type fakeTrigger struct {
	err   error
	calls int
	last  models.Notification
}

func (f *fakeTrigger) Process(_ context.Context, n models.Notification) error {
	f.calls++
	f.last = n
	return f.err
}
