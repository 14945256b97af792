package gcp

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/clementchangcheng/projectwildlife/internal/models"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
// It centralizes client creation for all services.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// SightingStore persists one Sighting record per pipeline attempt and
// advances its status as the attempt progresses.
type SightingStore struct {
	client     *firestore.Client
	collection string
}

// NewSightingStore wraps a Firestore client for the given collection.
func NewSightingStore(client *firestore.Client, collection string) *SightingStore {
	return &SightingStore{client: client, collection: collection}
}

// Create writes the initial PROCESSING record and returns its document ID.
func (s *SightingStore) Create(ctx context.Context, fileID, name string) (string, error) {
	sighting := models.Sighting{
		SourceFileID: fileID,
		SourceName:   name,
		Status:       models.SightingProcessing,
		CreatedAt:    time.Now(),
	}
	docRef, _, err := s.client.Collection(s.collection).Add(ctx, sighting)
	if err != nil {
		return "", fmt.Errorf("failed to create sighting record: %w", err)
	}
	return docRef.ID, nil
}

// Complete marks the sighting COMPLETE and records what the attempt produced.
func (s *SightingStore) Complete(ctx context.Context, docID string, speciesCount, recordCount int, imageURI, csvURI string) error {
	updates := []firestore.Update{
		{Path: "status", Value: models.SightingComplete},
		{Path: "speciesCount", Value: speciesCount},
		{Path: "recordCount", Value: recordCount},
		{Path: "annotatedImageUri", Value: imageURI},
		{Path: "csvUri", Value: csvURI},
	}
	if _, err := s.client.Collection(s.collection).Doc(docID).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to mark sighting %s complete: %w", docID, err)
	}
	return nil
}

// Fail marks the sighting FAILED with the error details.
func (s *SightingStore) Fail(ctx context.Context, docID, errDetails string) error {
	updates := []firestore.Update{
		{Path: "status", Value: models.SightingFailed},
		{Path: "errorDetails", Value: errDetails},
	}
	if _, err := s.client.Collection(s.collection).Doc(docID).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to mark sighting %s failed: %w", docID, err)
	}
	return nil
}
