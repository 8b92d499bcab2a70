package site

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/RoundTable02/gdgoc-onewave-be/internal/observability"
)

// ErrPublishFailed indicates the normalized site could not be uploaded to object storage.
var ErrPublishFailed = errors.New("failed to publish site")

const defaultContentType = "application/octet-stream"

// ObjectStore is the durable, publicly readable storage a site is published to.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.ReadSeeker, size int64, contentType string) error
	PublicURL(key string) string
}

// Publisher turns an uploaded archive into a hosted static site.
type Publisher struct {
	store   ObjectStore
	workDir string
	logger  zerolog.Logger
	tracer  trace.Tracer
}

// NewPublisher constructs a Publisher. Temporary trees are created below workDir, or the
// system temp directory when workDir is empty.
func NewPublisher(store ObjectStore, workDir string, logger zerolog.Logger) *Publisher {
	return &Publisher{
		store:   store,
		workDir: workDir,
		logger:  logger.With().Str("component", "site_publisher").Logger(),
		tracer:  otel.Tracer("github.com/RoundTable02/gdgoc-onewave-be/internal/site"),
	}
}

// Publish extracts archive, normalizes it and uploads the site root below prefix. It returns
// the public URL of the entry page. The temporary tree is removed on every exit path.
func (p *Publisher) Publish(ctx context.Context, archive []byte, prefix string) (url string, err error) {
	ctx, span := p.tracer.Start(ctx, "site.publish", trace.WithAttributes(
		attribute.String("site.prefix", prefix),
		attribute.Int("site.archive_bytes", len(archive)),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "failure"
			span.RecordError(err)
			span.SetStatus(codes.Error, "publish failed")
		}
		observability.PublishLatency().WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}()

	workDir, err := os.MkdirTemp(p.workDir, "submission-")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageWriteFailed, err)
	}
	defer func() {
		if removeErr := os.RemoveAll(workDir); removeErr != nil {
			p.logger.Warn().Err(removeErr).Str("dir", workDir).Msg("failed to clean up work directory")
		}
	}()

	if err := Extract(bytes.NewReader(archive), int64(len(archive)), workDir); err != nil {
		return "", err
	}

	root, err := Normalize(workDir)
	if err != nil {
		return "", err
	}

	prefix = strings.Trim(prefix, "/")
	uploaded, err := p.uploadTree(ctx, root, prefix)
	if err != nil {
		return "", err
	}

	span.SetAttributes(attribute.Int("site.objects", uploaded))
	p.logger.Info().
		Str("prefix", prefix).
		Int("objects", uploaded).
		Msg("site published")

	return p.store.PublicURL(path.Join(prefix, EntryPage)), nil
}

func (p *Publisher) uploadTree(ctx context.Context, root, prefix string) (int, error) {
	uploaded := 0
	err := filepath.WalkDir(root, func(filePath string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("%w: %v", ErrPublishFailed, walkErr)
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, filePath)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPublishFailed, err)
		}
		key := path.Join(prefix, filepath.ToSlash(rel))

		if err := p.uploadFile(ctx, filePath, key); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrPublishFailed, key, err)
		}

		uploaded++
		observability.PublishedObjects().Inc()
		p.logger.Debug().Str("key", key).Msg("uploaded site object")
		return nil
	})

	return uploaded, err
}

func (p *Publisher) uploadFile(ctx context.Context, filePath, key string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	return p.store.Put(ctx, key, file, info.Size(), ContentType(filePath))
}

// ContentType infers a MIME type from the file extension.
func ContentType(name string) string {
	if contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); contentType != "" {
		return contentType
	}
	return defaultContentType
}
