package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stepwise/stepwise-processing-service/internal/domain/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateArchive(t *testing.T) {
	entries := []port.ArchiveEntry{
		{Name: "step_1.jpg", Data: []byte("first")},
		{Name: "step_2.jpg", Data: []byte("second")},
	}

	var buf bytes.Buffer
	require.NoError(t, NewZipCreator().CreateArchive(context.Background(), entries, &buf))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)

	for i, f := range zr.File {
		assert.Equal(t, entries[i].Name, f.Name)
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		assert.Equal(t, entries[i].Data, data)
	}
}

func TestCreateArchiveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := NewZipCreator().CreateArchive(ctx, []port.ArchiveEntry{{Name: "a", Data: []byte("x")}}, &buf)
	assert.ErrorIs(t, err, context.Canceled)
}
