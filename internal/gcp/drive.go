package gcp

import (
	"context"
	"fmt"
	"io"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/clementchangcheng/projectwildlife/internal/models"
)

// DriveClient is a thin wrapper over the Drive v3 API covering exactly the
// calls the pipeline and the copier need: list, download, copy, permission
// lookup and watch-channel registration.
type DriveClient struct {
	svc *drive.Service
}

// NewDriveClient builds a Drive client. With an empty credentialsFile the
// ambient service-account credentials are used.
func NewDriveClient(ctx context.Context, credentialsFile string) (*DriveClient, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	opts = append(opts, option.WithScopes(drive.DriveScope))

	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return &DriveClient{svc: svc}, nil
}

// ListRecent returns up to pageSize files in folderID, most recently
// modified first. Modification times are UTC-normalized.
func (c *DriveClient) ListRecent(ctx context.Context, folderID string, pageSize int64) ([]models.FileRef, error) {
	resp, err := c.svc.Files.List().
		Q(fmt.Sprintf("'%s' in parents", folderID)).
		OrderBy("modifiedTime desc").
		PageSize(pageSize).
		Fields("files(id, name, mimeType, modifiedTime)").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list files in folder %s: %w", folderID, err)
	}

	refs := make([]models.FileRef, 0, len(resp.Files))
	for _, f := range resp.Files {
		modified, err := time.Parse(time.RFC3339, f.ModifiedTime)
		if err != nil {
			return nil, fmt.Errorf("failed to parse modifiedTime %q for file %s: %w", f.ModifiedTime, f.Id, err)
		}
		refs = append(refs, models.FileRef{
			ID:           f.Id,
			Name:         f.Name,
			MimeType:     f.MimeType,
			ModifiedTime: models.NormalizeUTC(modified),
		})
	}
	return refs, nil
}

// Download fetches the raw content of fileID.
func (c *DriveClient) Download(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := c.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("failed to download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read content of file %s: %w", fileID, err)
	}
	return data, nil
}

// ListSharedImages returns image files shared with the authenticated account
// but not owned by it: the copier's candidate set.
func (c *DriveClient) ListSharedImages(ctx context.Context) ([]models.FileRef, error) {
	resp, err := c.svc.Files.List().
		Q("mimeType contains 'image/' and 'me' in readers and not 'me' in owners").
		Fields("files(id, name, mimeType)").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list shared images: %w", err)
	}

	refs := make([]models.FileRef, 0, len(resp.Files))
	for _, f := range resp.Files {
		refs = append(refs, models.FileRef{ID: f.Id, Name: f.Name, MimeType: f.MimeType})
	}
	return refs, nil
}

// IsSharedBy reports whether email appears in fileID's permission list.
func (c *DriveClient) IsSharedBy(ctx context.Context, fileID, email string) (bool, error) {
	perms, err := c.svc.Permissions.List(fileID).
		Fields("permissions(emailAddress,role)").
		Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("failed to list permissions for file %s: %w", fileID, err)
	}
	for _, p := range perms.Permissions {
		if p.EmailAddress == email {
			return true, nil
		}
	}
	return false, nil
}

// Copy duplicates fileID into destFolderID as newName and returns the new
// file's ID.
func (c *DriveClient) Copy(ctx context.Context, fileID, destFolderID, newName string) (string, error) {
	copied, err := c.svc.Files.Copy(fileID, &drive.File{
		Name:    newName,
		Parents: []string{destFolderID},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to copy file %s: %w", fileID, err)
	}
	return copied.Id, nil
}

// Watch registers a push-notification channel on folderID so changes are
// delivered to address.
func (c *DriveClient) Watch(ctx context.Context, folderID, channelID, address string, ttl time.Duration) (*drive.Channel, error) {
	channel, err := c.svc.Files.Watch(folderID, &drive.Channel{
		Id:      channelID,
		Type:    "web_hook",
		Address: address,
		Params:  map[string]string{"ttl": fmt.Sprintf("%d", int(ttl.Seconds()))},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to register watch channel on folder %s: %w", folderID, err)
	}
	return channel, nil
}
