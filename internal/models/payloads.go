package models

// These structs define the JSON payloads exchanged with the notification
// transport and between the Cloud Functions.

// WebhookResponse is the body returned to the Drive push-notification
// channel for every inbound request.
type WebhookResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Notification carries the fields of one Drive change signal after header
// parsing. ResourceState decides whether the pipeline runs at all.
type Notification struct {
	ResourceState string `json:"resourceState"`
	ResourceID    string `json:"resourceId"`
	ChannelID     string `json:"channelId"`
	Changed       string `json:"changed"`
}

// ProcessResult is returned by the upload endpoint once an image has been
// processed and its artifacts persisted.
type ProcessResult struct {
	ImagePath string `json:"image_path"`
	CSVPath   string `json:"csv_path"`
}
