package models

import "time"

// NormalizeUTC coerces a timestamp to UTC. Every ingestion boundary funnels
// timestamps through this before storing or comparing them, so recency
// checks never mix zones.
func NormalizeUTC(t time.Time) time.Time {
	return t.UTC()
}

// FileRef describes one file in the watched Drive folder, as returned by the
// listing call. Identity is the opaque ID; ModifiedTime is UTC-normalized at
// construction.
type FileRef struct {
	ID           string
	Name         string
	MimeType     string
	ModifiedTime time.Time
}

// ExtractedRecord is one observation parsed from OCR text. Any subset of
// fields may be present; a record with no fields set is never emitted.
type ExtractedRecord struct {
	Date         string // YYYY-MM-DD
	Time         string // HH:MM:SS, 24-hour
	TemperatureC *int   // integer Celsius regardless of source unit
}

// IsEmpty reports whether no field of the record is set.
func (r ExtractedRecord) IsEmpty() bool {
	return r.Date == "" && r.Time == "" && r.TemperatureC == nil
}

// SpeciesRecord is one detected animal with its model confidence in [0,1].
type SpeciesRecord struct {
	Species    string
	Confidence float64
}

// Detection is a single raw bounding box from the object-detection model.
// Box coordinates are normalized [0,1] left, top, right, bottom.
type Detection struct {
	ClassIndex int
	Confidence float64
	Box        [4]float64
}
