package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.HTTPPort)
	assert.Equal(t, "stepwize_test", cfg.APIKey)
	assert.Equal(t, int64(100*1024*1024), cfg.MaxUploadBytes)
	assert.Equal(t, []string{"mp4", "avi", "mov", "mkv"}, cfg.AllowedExtensions)
	assert.Equal(t, "gocv", cfg.FrameBackend)
	assert.Equal(t, 1200, cfg.ImageMaxWidth)
	assert.Equal(t, 80, cfg.ImageQuality)
	assert.Equal(t, "inline", cfg.KeyframeDelivery)
	assert.Equal(t, 24*time.Hour, cfg.KeyframeURLExpiry)
	assert.Equal(t, "us-east-1", cfg.MinIORegion)
	assert.Equal(t, 30*time.Second, cfg.DownloadTimeout)
	assert.Equal(t, 10*time.Second, cfg.CallbackTimeout)
	assert.Equal(t, 8192, cfg.DownloadChunkSize)
	assert.Equal(t, "guide.processing", cfg.RabbitMQProcessingQueue)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ALLOWED_EXTENSIONS", ".MP4, webm")
	t.Setenv("FRAME_BACKEND", "ffmpeg")
	t.Setenv("IMAGE_FORMAT", "webp")
	t.Setenv("KEYFRAME_URL_EXPIRY", "1h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"mp4", "webm"}, cfg.AllowedExtensions)
	assert.Equal(t, "ffmpeg", cfg.FrameBackend)
	assert.Equal(t, "webp", cfg.ImageFormat)
	assert.Equal(t, time.Hour, cfg.KeyframeURLExpiry)
}

func TestLoad_RejectsUnknownValues(t *testing.T) {
	cases := map[string]string{
		"FRAME_BACKEND":     "vlc",
		"IMAGE_FORMAT":      "png",
		"KEYFRAME_DELIVERY": "s3",
		"IMAGE_MAX_WIDTH":   "0",
		"API_POOL_SIZE":     "-1",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
