package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/clementchangcheng/projectwildlife/internal/services"
)

var (
	webhookHandler *services.WebhookHandler
	once           sync.Once
	initErr        error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Register the HTTP function with the framework.
	// "DriveWebhook" is the entry point name we'll see in GCP.
	functions.HTTP("DriveWebhook", handleDriveWebhook)
}

// main is required by the Go Functions Framework.
func main() {}

// handleDriveWebhook is the HTTP handler for Drive push notifications.
func handleDriveWebhook(w http.ResponseWriter, r *http.Request) {
	// Use sync.Once for robust, one-time initialization of clients.
	once.Do(func() {
		var ingestor *services.IngestorFunction
		ingestor, initErr = services.NewIngestor(context.Background())
		if initErr == nil {
			webhookHandler = services.NewWebhookHandler(ingestor)
		}
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	webhookHandler.ServeHTTP(w, r)
}
