package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/clementchangcheng/projectwildlife/internal/services"
)

var (
	processor *services.UploadFunction
	once      sync.Once
	initErr   error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("ProcessUpload", processUpload)
}

// main is required by the Go Functions Framework.
func main() {}

// processUpload handles a GCS object finalize event for the uploads bucket.
func processUpload(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		processor, initErr = services.NewUploadProcessor(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return fmt.Errorf("service initialization failed: %w", initErr)
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal CloudEvent data", "error", err, "eventID", e.ID())
		return fmt.Errorf("failed to unmarshal event data: %w", err)
	}

	return processor.Process(ctx, gcsEvent)
}
