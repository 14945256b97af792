package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/clementchangcheng/projectwildlife/internal/models"
)

// Resource states that trigger an ingestion run; anything else is
// acknowledged and ignored.
var triggerStates = map[string]bool{
	"sync":    true,
	"changes": true,
	"update":  true,
}

// PipelineTrigger is the gateway's view of the ingestion pipeline.
type PipelineTrigger interface {
	Process(ctx context.Context, n models.Notification) error
}

// WebhookHandler turns Drive push notifications into pipeline invocations.
// It triggers exactly one ingestion run per accepted notification and never
// holds the transport for more than that.
type WebhookHandler struct {
	pipeline PipelineTrigger
}

// NewWebhookHandler wraps the pipeline behind the notification transport.
func NewWebhookHandler(pipeline PipelineTrigger) *WebhookHandler {
	return &WebhookHandler{pipeline: pipeline}
}

// ServeHTTP implements the Drive webhook contract: the resource state header
// decides whether the pipeline runs, a missing state is a malformed request,
// and every response is a structured JSON status.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	state := r.Header.Get("X-Goog-Resource-State")
	if state == "" {
		slog.Warn("Missing resource state in webhook request.")
		writeJSON(w, http.StatusBadRequest, models.WebhookResponse{
			Status:  "error",
			Message: "Invalid webhook request",
		})
		return
	}
	if !triggerStates[state] {
		slog.Info("Ignoring notification.", "resourceState", state)
		writeJSON(w, http.StatusOK, models.WebhookResponse{Status: "ignored"})
		return
	}

	n := models.Notification{
		ResourceState: state,
		ResourceID:    r.Header.Get("X-Goog-Resource-Id"),
		ChannelID:     r.Header.Get("X-Goog-Channel-Id"),
		Changed:       r.Header.Get("X-Goog-Changed"),
	}
	slog.Info("Accepted notification.",
		"resourceState", n.ResourceState, "resourceId", n.ResourceID, "channelId", n.ChannelID)

	if n.ResourceID != "" {
		if err := h.pipeline.Process(r.Context(), n); err != nil {
			writeJSON(w, http.StatusInternalServerError, models.WebhookResponse{
				Status:  "error",
				Message: err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, models.WebhookResponse{Status: "success"})
}

func writeJSON(w http.ResponseWriter, status int, body models.WebhookResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to write webhook response", "error", err)
	}
}
