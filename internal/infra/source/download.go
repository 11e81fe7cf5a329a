package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"time"

	"github.com/stepwise/stepwise-processing-service/internal/domain/entity"
	"go.uber.org/zap"
)

const DefaultChunkSize = 8192

// HTTPDownloader streams a remote video to a local temporary file.
type HTTPDownloader struct {
	client    *http.Client
	chunkSize int
	logger    *zap.Logger
}

func NewHTTPDownloader(timeout time.Duration, chunkSize int, logger *zap.Logger) *HTTPDownloader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &HTTPDownloader{
		client:    &http.Client{Timeout: timeout},
		chunkSize: chunkSize,
		logger:    logger,
	}
}

// Download writes the body of rawURL into a new file under dir and returns its path.
// On any failure no file is left behind.
func (d *HTTPDownloader) Download(ctx context.Context, rawURL, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", downloadError(rawURL, err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", downloadError(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", downloadError(rawURL, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	f, err := os.CreateTemp(dir, "video_*"+extFromURL(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: create temp file: %w", entity.ErrSourceUnavailable, err)
	}

	written, err := d.copyChunks(f, resp.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && written == 0 {
		err = fmt.Errorf("empty response body")
	}
	if err != nil {
		os.Remove(f.Name())
		return "", downloadError(rawURL, err)
	}

	d.logger.Info("video downloaded",
		zap.String("url", rawURL),
		zap.String("path", f.Name()),
		zap.Int64("bytes", written),
	)
	return f.Name(), nil
}

// copyChunks writes src to dst in chunkSize pieces. Both sides are wrapped so
// io.CopyBuffer cannot bypass the buffer through ReaderFrom or WriterTo.
func (d *HTTPDownloader) copyChunks(dst io.Writer, src io.Reader) (int64, error) {
	return io.CopyBuffer(struct{ io.Writer }{dst}, struct{ io.Reader }{src}, make([]byte, d.chunkSize))
}

func downloadError(rawURL string, err error) error {
	return fmt.Errorf("%w: %w: %s: %w", entity.ErrSourceUnavailable, entity.ErrDownloadFailure, rawURL, err)
}

func extFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ".mp4"
	}
	if ext := path.Ext(u.Path); ext != "" && len(ext) <= 5 {
		return ext
	}
	return ".mp4"
}
