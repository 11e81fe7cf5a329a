package source

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stepwise/stepwise-processing-service/internal/domain/entity"
	"github.com/stepwise/stepwise-processing-service/internal/domain/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	closed bool
}

func (s *fakeSource) FrameRate() float64 { return 30 }
func (s *fakeSource) FrameCount() int    { return 3000 }
func (s *fakeSource) ReadFrame(context.Context, int) (*entity.RawFrame, error) {
	return nil, entity.ErrDecodeFailure
}
func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

type fakeDecoder struct {
	err    error
	opened []string
	src    *fakeSource
}

func (d *fakeDecoder) OpenFile(_ context.Context, path string) (port.FrameSource, error) {
	d.opened = append(d.opened, path)
	if d.err != nil {
		return nil, d.err
	}
	d.src = &fakeSource{}
	return d.src, nil
}

type fakeObjects struct {
	err error
}

func (f *fakeObjects) DownloadObject(_ context.Context, bucket, key, dest string) error {
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(dest, []byte(bucket+"/"+key), 0644)
}

func (f *fakeObjects) UploadVideo(context.Context, string, io.Reader, int64, string) (string, error) {
	return "", nil
}

func videoServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not really a video"))
	}))
}

func TestOpenLocalFile(t *testing.T) {
	local := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(local, []byte("x"), 0644))

	dec := &fakeDecoder{}
	o := NewOpener(dec, NewHTTPDownloader(time.Second, 0, zap.NewNop()), nil, t.TempDir(), zap.NewNop())

	src, err := o.Open(context.Background(), local)
	require.NoError(t, err)
	require.NoError(t, src.Close())

	assert.Equal(t, []string{local}, dec.opened)
	_, err = os.Stat(local)
	assert.NoError(t, err, "local sources must not be deleted")
}

func TestOpenMissingLocalFile(t *testing.T) {
	dec := &fakeDecoder{}
	o := NewOpener(dec, NewHTTPDownloader(time.Second, 0, zap.NewNop()), nil, t.TempDir(), zap.NewNop())

	_, err := o.Open(context.Background(), "/does/not/exist.mp4")
	assert.ErrorIs(t, err, entity.ErrSourceUnavailable)
	assert.Empty(t, dec.opened)
}

func TestOpenURLRemovesTempFileOnClose(t *testing.T) {
	srv := videoServer()
	defer srv.Close()

	tmp := t.TempDir()
	dec := &fakeDecoder{}
	o := NewOpener(dec, NewHTTPDownloader(time.Second, 0, zap.NewNop()), nil, tmp, zap.NewNop())

	src, err := o.Open(context.Background(), srv.URL+"/video.mp4")
	require.NoError(t, err)
	assert.Len(t, dirEntries(t, tmp), 1)
	assert.Equal(t, 30.0, src.FrameRate())

	require.NoError(t, src.Close())
	assert.True(t, dec.src.closed)
	assert.Empty(t, dirEntries(t, tmp))
}

func TestOpenURLDecoderFailureRemovesTempFile(t *testing.T) {
	srv := videoServer()
	defer srv.Close()

	tmp := t.TempDir()
	dec := &fakeDecoder{err: errors.New("moov atom not found")}
	o := NewOpener(dec, NewHTTPDownloader(time.Second, 0, zap.NewNop()), nil, tmp, zap.NewNop())

	_, err := o.Open(context.Background(), srv.URL+"/video.mp4")
	assert.ErrorIs(t, err, entity.ErrSourceUnavailable)
	assert.NotErrorIs(t, err, entity.ErrDownloadFailure)
	assert.Empty(t, dirEntries(t, tmp))
}

func TestOpenObjectReference(t *testing.T) {
	tmp := t.TempDir()
	dec := &fakeDecoder{}
	o := NewOpener(dec, NewHTTPDownloader(time.Second, 0, zap.NewNop()), &fakeObjects{}, tmp, zap.NewNop())

	src, err := o.Open(context.Background(), ObjectRef("uploads", "2024/clip.mkv"))
	require.NoError(t, err)
	require.Len(t, dec.opened, 1)
	assert.Equal(t, ".mkv", filepath.Ext(dec.opened[0]))

	data, err := os.ReadFile(dec.opened[0])
	require.NoError(t, err)
	assert.Equal(t, "uploads/2024/clip.mkv", string(data))

	require.NoError(t, src.Close())
	assert.Empty(t, dirEntries(t, tmp))
}

func TestOpenObjectReferenceFailures(t *testing.T) {
	tmp := t.TempDir()
	dl := NewHTTPDownloader(time.Second, 0, zap.NewNop())

	_, err := NewOpener(&fakeDecoder{}, dl, nil, tmp, zap.NewNop()).Open(context.Background(), "s3://uploads/a.mp4")
	assert.ErrorIs(t, err, entity.ErrSourceUnavailable)

	_, err = NewOpener(&fakeDecoder{}, dl, &fakeObjects{}, tmp, zap.NewNop()).Open(context.Background(), "s3://uploads")
	assert.ErrorIs(t, err, entity.ErrSourceUnavailable)

	_, err = NewOpener(&fakeDecoder{}, dl, &fakeObjects{err: errors.New("NoSuchKey")}, tmp, zap.NewNop()).Open(context.Background(), "s3://uploads/a.mp4")
	assert.ErrorIs(t, err, entity.ErrDownloadFailure)
	assert.Empty(t, dirEntries(t, tmp))
}

func TestParseObjectRef(t *testing.T) {
	bucket, key, ok := ParseObjectRef("s3://uploads/guides/1.mp4")
	assert.True(t, ok)
	assert.Equal(t, "uploads", bucket)
	assert.Equal(t, "guides/1.mp4", key)

	for _, bad := range []string{"uploads/a.mp4", "s3://", "s3://bucket", "s3:///key"} {
		_, _, ok := ParseObjectRef(bad)
		assert.False(t, ok, bad)
	}
}
