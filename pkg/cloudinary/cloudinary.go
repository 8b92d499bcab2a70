package cloudinary

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

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

// RawUploader is the subset of the Cloudinary upload API used for archive backups.
type RawUploader interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
}

// ArchiveBackup keeps a copy of every submitted source archive as a raw Cloudinary asset.
type ArchiveBackup struct {
	api    RawUploader
	folder string
	logger zerolog.Logger
}

// New constructs an ArchiveBackup instance.
func New(cfg Config, logger zerolog.Logger) (*ArchiveBackup, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return NewWithUploader(&cld.Upload, cfg.Folder, logger), nil
}

// NewWithUploader wraps an existing upload API.
func NewWithUploader(api RawUploader, folder string, logger zerolog.Logger) *ArchiveBackup {
	return &ArchiveBackup{
		api:    api,
		folder: strings.Trim(folder, "/"),
		logger: logger.With().Str("component", "archive_backup").Logger(),
	}
}

// Upload stores the archive under name and returns its secure URL. name is used as the public
// id so a retried upload for the same submission overwrites the previous copy.
func (b *ArchiveBackup) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	publicID := buildPublicID(name)
	overwrite := true

	params := uploader.UploadParams{
		Folder:       b.folder,
		PublicID:     publicID,
		ResourceType: "raw",
		Overwrite:    &overwrite,
	}

	result, err := b.api.Upload(ctx, reader, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload archive: %w", err)
	}
	if result == nil || result.SecureURL == "" {
		msg := "empty upload result"
		if result != nil && result.Error.Message != "" {
			msg = result.Error.Message
		}
		return "", fmt.Errorf("failed to upload archive: %s", msg)
	}

	b.logger.Info().Str("public_id", result.PublicID).Msg("source archive backed up")

	return result.SecureURL, nil
}

func buildPublicID(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, base)

	base = strings.Trim(base, "-")
	if base == "" {
		base = "archive"
	}

	// raw assets keep their extension in the public id
	return base + ".zip"
}
