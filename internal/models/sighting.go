package models

import "time"

// Sighting statuses, written to Firestore as the pipeline advances.
const (
	SightingProcessing = "PROCESSING"
	SightingComplete   = "COMPLETE"
	SightingFailed     = "FAILED"
)

// Sighting represents the record for one processed camera-trap image in
// Firestore. It tracks the attempt's status and the artifacts it produced.
type Sighting struct {
	SourceFileID      string    `firestore:"sourceFileId,omitempty"`
	SourceName        string    `firestore:"sourceName,omitempty"`
	Status            string    `firestore:"status,omitempty"`
	ErrorDetails      string    `firestore:"errorDetails,omitempty"`
	SpeciesCount      int       `firestore:"speciesCount"`
	RecordCount       int       `firestore:"recordCount"`
	AnnotatedImageURI string    `firestore:"annotatedImageUri,omitempty"`
	CSVURI            string    `firestore:"csvUri,omitempty"`
	CreatedAt         time.Time `firestore:"createdAt,omitempty"`
}
