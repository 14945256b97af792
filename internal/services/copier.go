package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/clementchangcheng/projectwildlife/internal/cache"
	"github.com/clementchangcheng/projectwildlife/internal/models"
)

// SharedImageSource is the copier's view of the cloud-storage client.
type SharedImageSource interface {
	ListSharedImages(ctx context.Context) ([]models.FileRef, error)
	IsSharedBy(ctx context.Context, fileID, email string) (bool, error)
	Copy(ctx context.Context, fileID, destFolderID, newName string) (string, error)
}

// CopierConfig holds configuration for the standalone Drive image copier.
type CopierConfig struct {
	DestinationFolderID string
	SourceEmail         string
	PollInterval        time.Duration
	PermissionCacheTTL  time.Duration
}

// Copier continuously moves images shared by the trusted sender into the
// watched folder, where the ingestion pipeline picks them up. It persists
// the ids it has copied so restarts do not re-copy, and memoizes permission
// lookups for a short TTL to keep the Permissions API call volume down.
type Copier struct {
	drive  SharedImageSource
	seen   *cache.SeenFiles
	perms  *gocache.Cache
	config CopierConfig
}

// NewCopier wires a copier over its collaborators.
func NewCopier(drive SharedImageSource, seen *cache.SeenFiles, config CopierConfig) *Copier {
	if config.PermissionCacheTTL <= 0 {
		config.PermissionCacheTTL = 10 * time.Minute
	}
	return &Copier{
		drive:  drive,
		seen:   seen,
		perms:  gocache.New(config.PermissionCacheTTL, 2*config.PermissionCacheTTL),
		config: config,
	}
}

// Run polls until ctx is cancelled.
func (c *Copier) Run(ctx context.Context) error {
	slog.Info("Starting Drive image copier.",
		"sourceEmail", c.config.SourceEmail, "pollInterval", c.config.PollInterval.String())

	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()
	for {
		if err := c.CheckOnce(ctx); err != nil {
			slog.Error("Error checking for new images", "error", err)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			slog.Info("Stopping Drive image copier.")
			return ctx.Err()
		}
	}
}

// CheckOnce lists shared images and copies any new file from the trusted
// sender into the destination folder.
func (c *Copier) CheckOnce(ctx context.Context) error {
	files, err := c.drive.ListSharedImages(ctx)
	if err != nil {
		return err
	}

	for _, file := range files {
		if c.seen.Contains(file.ID) {
			continue
		}
		if !c.isSharedByTrustedSender(ctx, file.ID) {
			continue
		}

		newID, err := c.drive.Copy(ctx, file.ID, c.config.DestinationFolderID, fmt.Sprintf("Copy of %s", file.Name))
		if err != nil {
			slog.Error("Error copying file", "fileId", file.ID, "name", file.Name, "error", err)
			continue
		}
		if err := c.seen.Add(file.ID); err != nil {
			slog.Error("Failed to persist seen-files list", "fileId", file.ID, "error", err)
		}
		slog.Info("Copied shared image into watched folder.",
			"sourceFileId", file.ID, "copyId", newID, "name", file.Name, "from", c.config.SourceEmail)
	}
	return nil
}

// isSharedByTrustedSender checks whether the configured sender appears in
// the file's permissions, memoizing the answer. A failed lookup counts as
// not shared; the file is retried on a later poll once the cached negative
// expires.
func (c *Copier) isSharedByTrustedSender(ctx context.Context, fileID string) bool {
	if cached, ok := c.perms.Get(fileID); ok {
		return cached.(bool)
	}
	shared, err := c.drive.IsSharedBy(ctx, fileID, c.config.SourceEmail)
	if err != nil {
		slog.Error("Error checking file permissions", "fileId", fileID, "error", err)
		return false
	}
	c.perms.Set(fileID, shared, gocache.DefaultExpiration)
	return shared
}
