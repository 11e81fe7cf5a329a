package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/stepwise/stepwise-processing-service/internal/domain/port"
)

type ZipCreator struct{}

func NewZipCreator() *ZipCreator {
	return &ZipCreator{}
}

func (z *ZipCreator) CreateArchive(ctx context.Context, entries []port.ArchiveEntry, w io.Writer) error {
	zipWriter := zip.NewWriter(w)

	for _, e := range entries {
		select {
		case <-ctx.Done():
			zipWriter.Close()
			return ctx.Err()
		default:
		}

		if err := addEntry(zipWriter, e); err != nil {
			zipWriter.Close()
			return fmt.Errorf("add %s to zip: %w", e.Name, err)
		}
	}

	return zipWriter.Close()
}

func addEntry(zw *zip.Writer, e port.ArchiveEntry) error {
	header := &zip.FileHeader{
		Name:     e.Name,
		Method:   zip.Store,
		Modified: time.Now().UTC(),
	}

	writer, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	_, err = writer.Write(e.Data)
	return err
}
