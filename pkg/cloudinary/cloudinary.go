// Package cloudinary stores class resources and assessment attachments.
package cloudinary

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Storage uploads and removes files on Cloudinary under a root folder.
type Storage struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
	now    func() time.Time
}

// New constructs a Cloudinary storage instance.
func New(cfg Config, logger zerolog.Logger) (*Storage, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Storage{
		client: cld,
		folder: strings.Trim(cfg.Folder, "/"),
		logger: logger.With().Str("component", "cloudinary").Logger(),
		now:    time.Now,
	}, nil
}

// Upload sends the file into folder (relative to the configured root) and
// returns its secure URL and a storage key accepted by Delete.
func (s *Storage) Upload(ctx context.Context, folder, name string, reader io.Reader) (string, string, error) {
	params := uploader.UploadParams{
		Folder:       s.folderFor(folder),
		PublicID:     PublicID(name, s.now()),
		ResourceType: "auto",
	}

	result, err := s.client.Upload.Upload(ctx, reader, params)
	if err != nil {
		return "", "", fmt.Errorf("failed to upload asset: %w", err)
	}
	if result.Error.Message != "" {
		return "", "", fmt.Errorf("cloudinary rejected upload: %s", result.Error.Message)
	}

	s.logger.Info().Str("public_id", result.PublicID).Int("bytes", result.Bytes).Msg("file uploaded to cloudinary")

	return result.SecureURL, StorageKey(result.ResourceType, result.PublicID), nil
}

// Delete removes a previously uploaded asset. Missing assets are not an error.
func (s *Storage) Delete(ctx context.Context, key string) error {
	resourceType, publicID := splitStorageKey(key)
	if publicID == "" {
		return nil
	}

	result, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceType,
		Invalidate:   boolPtr(true),
	})
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}

	s.logger.Info().Str("public_id", publicID).Str("result", result.Result).Msg("file removed from cloudinary")
	return nil
}

func (s *Storage) folderFor(folder string) string {
	folder = strings.Trim(folder, "/")
	switch {
	case s.folder == "":
		return folder
	case folder == "":
		return s.folder
	default:
		return path.Join(s.folder, folder)
	}
}

// PublicID derives a URL-safe, timestamped identifier from a file name.
func PublicID(name string, at time.Time) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, base)

	base = strings.Trim(base, "-")
	if base == "" {
		base = "file"
	}

	return fmt.Sprintf("%s-%d", strings.ToLower(base), at.Unix())
}

// StorageKey joins the resource type and public id; Cloudinary needs both to destroy an asset.
func StorageKey(resourceType, publicID string) string {
	if resourceType == "" {
		resourceType = "raw"
	}
	return resourceType + ":" + publicID
}

func splitStorageKey(key string) (string, string) {
	key = strings.TrimSpace(key)
	resourceType, publicID, found := strings.Cut(key, ":")
	if !found {
		return "raw", key
	}
	return resourceType, publicID
}

func boolPtr(v bool) *bool {
	return &v
}
