package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/stepwise/stepwise-processing-service/internal/domain/entity"
	"github.com/stepwise/stepwise-processing-service/internal/domain/port"
	"go.uber.org/zap"
)

// Decoder opens a video that is already on the local filesystem.
type Decoder interface {
	OpenFile(ctx context.Context, path string) (port.FrameSource, error)
}

// Opener resolves a video reference to a local file and opens it with a Decoder.
// Supported references: local paths, http(s) URLs and s3://bucket/key objects.
type Opener struct {
	decoder    Decoder
	downloader *HTTPDownloader
	objects    port.VideoStorage
	tempDir    string
	logger     *zap.Logger
}

func NewOpener(decoder Decoder, downloader *HTTPDownloader, objects port.VideoStorage, tempDir string, logger *zap.Logger) *Opener {
	return &Opener{
		decoder:    decoder,
		downloader: downloader,
		objects:    objects,
		tempDir:    tempDir,
		logger:     logger,
	}
}

func (o *Opener) Open(ctx context.Context, reference string) (port.FrameSource, error) {
	if o.tempDir != "" {
		if err := os.MkdirAll(o.tempDir, 0755); err != nil {
			return nil, fmt.Errorf("%w: create temp dir: %w", entity.ErrSourceUnavailable, err)
		}
	}

	localPath, tempFile, err := o.fetch(ctx, reference)
	if err != nil {
		return nil, err
	}

	src, err := o.decoder.OpenFile(ctx, localPath)
	if err != nil {
		if tempFile != "" {
			os.Remove(tempFile)
		}
		if !errors.Is(err, entity.ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %w", entity.ErrSourceUnavailable, err)
		}
		return nil, err
	}

	if tempFile == "" {
		return src, nil
	}
	return &tempFileSource{FrameSource: src, path: tempFile}, nil
}

func (o *Opener) fetch(ctx context.Context, reference string) (string, string, error) {
	switch {
	case strings.HasPrefix(reference, "http://"), strings.HasPrefix(reference, "https://"):
		p, err := o.downloader.Download(ctx, reference, o.tempDir)
		if err != nil {
			return "", "", err
		}
		return p, p, nil

	case strings.HasPrefix(reference, "s3://"):
		p, err := o.fetchObject(ctx, reference)
		if err != nil {
			return "", "", err
		}
		return p, p, nil

	default:
		if _, err := os.Stat(reference); err != nil {
			return "", "", fmt.Errorf("%w: %w", entity.ErrSourceUnavailable, err)
		}
		return reference, "", nil
	}
}

func (o *Opener) fetchObject(ctx context.Context, reference string) (string, error) {
	bucket, key, ok := ParseObjectRef(reference)
	if !ok {
		return "", fmt.Errorf("%w: malformed object reference %q", entity.ErrSourceUnavailable, reference)
	}
	if o.objects == nil {
		return "", fmt.Errorf("%w: object storage not configured for %q", entity.ErrSourceUnavailable, reference)
	}

	f, err := os.CreateTemp(o.tempDir, "video_*"+path.Ext(key))
	if err != nil {
		return "", fmt.Errorf("%w: create temp file: %w", entity.ErrSourceUnavailable, err)
	}
	f.Close()

	if err := o.objects.DownloadObject(ctx, bucket, key, f.Name()); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("%w: %w: %s: %w", entity.ErrSourceUnavailable, entity.ErrDownloadFailure, reference, err)
	}

	o.logger.Info("video fetched from object storage",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.String("path", f.Name()),
	)
	return f.Name(), nil
}

// ParseObjectRef splits s3://bucket/key.
func ParseObjectRef(reference string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(reference, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

// ObjectRef builds the s3://bucket/key reference understood by Opener.
func ObjectRef(bucket, key string) string {
	return "s3://" + bucket + "/" + key
}

// tempFileSource removes the downloaded file once the source is closed.
type tempFileSource struct {
	port.FrameSource
	path string
}

func (s *tempFileSource) Close() error {
	closeErr := s.FrameSource.Close()
	removeErr := os.Remove(s.path)
	if removeErr != nil && os.IsNotExist(removeErr) {
		removeErr = nil
	}
	return errors.Join(closeErr, removeErr)
}
