package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clementchangcheng/projectwildlife/internal/models"
)

func doWebhook(t *testing.T, handler *WebhookHandler, headers map[string]string) (*httptest.ResponseRecorder, models.WebhookResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/drive-webhook", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var body models.WebhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestWebhook_MissingResourceState(t *testing.T) {
	trigger := &fakeTrigger{}
	rec, body := doWebhook(t, NewWebhookHandler(trigger), nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, 0, trigger.calls)
}

func TestWebhook_IgnoredStates(t *testing.T) {
	for _, state := range []string{"exited", "trash", "remove"} {
		t.Run(state, func(t *testing.T) {
			trigger := &fakeTrigger{}
			rec, body := doWebhook(t, NewWebhookHandler(trigger), map[string]string{
				"X-Goog-Resource-State": state,
			})

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "ignored", body.Status)
			assert.Equal(t, 0, trigger.calls)
		})
	}
}

func TestWebhook_TriggerStates(t *testing.T) {
	for _, state := range []string{"sync", "changes", "update"} {
		t.Run(state, func(t *testing.T) {
			trigger := &fakeTrigger{}
			rec, body := doWebhook(t, NewWebhookHandler(trigger), map[string]string{
				"X-Goog-Resource-State": state,
				"X-Goog-Resource-Id":    "res-1",
				"X-Goog-Channel-Id":     "chan-1",
			})

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "success", body.Status)
			assert.Equal(t, 1, trigger.calls, "exactly one pipeline run per accepted notification")
			assert.Equal(t, "res-1", trigger.last.ResourceID)
			assert.Equal(t, "chan-1", trigger.last.ChannelID)
		})
	}
}

func TestWebhook_MissingResourceIDAcknowledgedWithoutRun(t *testing.T) {
	trigger := &fakeTrigger{}
	rec, body := doWebhook(t, NewWebhookHandler(trigger), map[string]string{
		"X-Goog-Resource-State": "changes",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, 0, trigger.calls)
}

func TestWebhook_PipelineErrorSurfacesAs500(t *testing.T) {
	trigger := &fakeTrigger{err: errors.New("listing failed")}
	rec, body := doWebhook(t, NewWebhookHandler(trigger), map[string]string{
		"X-Goog-Resource-State": "update",
		"X-Goog-Resource-Id":    "res-1",
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, "listing failed", body.Message)
}
