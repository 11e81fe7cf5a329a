package ffmpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProbe(t *testing.T) {
	out := []byte(`{
		"streams": [{"width": 1920, "height": 1080, "r_frame_rate": "30/1", "avg_frame_rate": "30/1", "nb_frames": "3000", "duration": "100.000000"}],
		"format": {"duration": "100.020000"}
	}`)

	info, err := parseProbe(out)
	require.NoError(t, err)
	assert.Equal(t, 1920, info.Width)
	assert.Equal(t, 1080, info.Height)
	assert.InDelta(t, 30.0, info.FrameRate, 1e-9)
	assert.Equal(t, 3000, info.FrameCount)
	assert.InDelta(t, 100.0, info.Duration, 1e-9)
}

func TestParseProbeEstimatesFrameCount(t *testing.T) {
	// Matroska streams carry no nb_frames or stream duration.
	out := []byte(`{
		"streams": [{"width": 640, "height": 360, "r_frame_rate": "30000/1001", "avg_frame_rate": "0/0"}],
		"format": {"duration": "10.010000"}
	}`)

	info, err := parseProbe(out)
	require.NoError(t, err)
	assert.InDelta(t, 29.97, info.FrameRate, 0.001)
	assert.Equal(t, 300, info.FrameCount)
}

func TestParseProbeErrors(t *testing.T) {
	_, err := parseProbe([]byte(`not json`))
	assert.Error(t, err)

	_, err = parseProbe([]byte(`{"streams": []}`))
	assert.Error(t, err)

	_, err = parseProbe([]byte(`{"streams": [{"width": 0, "height": 0}]}`))
	assert.Error(t, err)
}

func TestParseRate(t *testing.T) {
	assert.InDelta(t, 25.0, parseRate("25/1"), 1e-9)
	assert.InDelta(t, 23.976, parseRate("24000/1001"), 0.001)
	assert.Zero(t, parseRate("0/0"))
	assert.Zero(t, parseRate(""))
	assert.InDelta(t, 12.5, parseRate("12.5"), 1e-9)
}
