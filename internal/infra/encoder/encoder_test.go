package encoder

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"testing"

	"github.com/stepwise/stepwise-processing-service/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidFrame(w, h int, order entity.ChannelOrder, c0, c1, c2 byte) *entity.RawFrame {
	pix := make([]byte, w*h*3)
	for i := 0; i < len(pix); i += 3 {
		pix[i], pix[i+1], pix[i+2] = c0, c1, c2
	}
	return &entity.RawFrame{Width: w, Height: h, Order: order, Pix: pix}
}

func decodeJPEG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestEncodeKeepsSmallFrames(t *testing.T) {
	enc := NewEncoder()
	out, err := enc.Encode(solidFrame(640, 360, entity.ChannelOrderBGR, 10, 20, 30), entity.DefaultEncodeOptions())
	require.NoError(t, err)

	assert.Equal(t, 640, out.Width)
	assert.Equal(t, 360, out.Height)
	assert.Equal(t, "image/jpeg", out.ContentType)
	img := decodeJPEG(t, out.Data)
	assert.Equal(t, 640, img.Bounds().Dx())
}

func TestEncodeDownscalesWideFrames(t *testing.T) {
	cases := []struct {
		w, h, wantH int
	}{
		{1920, 1080, 675},
		{2400, 1000, 500},
		{1201, 801, 800},
		{3000, 1, 1},
	}

	enc := NewEncoder()
	for _, tc := range cases {
		out, err := enc.Encode(solidFrame(tc.w, tc.h, entity.ChannelOrderRGB, 1, 2, 3), entity.DefaultEncodeOptions())
		require.NoError(t, err)

		assert.Equal(t, 1200, out.Width)
		assert.Equal(t, tc.wantH, out.Height)
		img := decodeJPEG(t, out.Data)
		assert.Equal(t, 1200, img.Bounds().Dx())
		assert.Equal(t, tc.wantH, img.Bounds().Dy())
	}
}

func TestEncodeConvertsChannelOrder(t *testing.T) {
	enc := NewEncoder()
	opts := entity.EncodeOptions{MaxWidth: 1200, Quality: 100, Format: entity.ImageFormatJPEG}

	bgr, err := enc.Encode(solidFrame(16, 16, entity.ChannelOrderBGR, 0, 0, 255), opts)
	require.NoError(t, err)
	rgb, err := enc.Encode(solidFrame(16, 16, entity.ChannelOrderRGB, 255, 0, 0), opts)
	require.NoError(t, err)

	for _, data := range [][]byte{bgr.Data, rgb.Data} {
		r, g, b, _ := decodeJPEG(t, data).At(8, 8).RGBA()
		assert.Greater(t, r>>8, uint32(200))
		assert.Less(t, g>>8, uint32(60))
		assert.Less(t, b>>8, uint32(60))
	}
}

func TestEncodeQualityAffectsSize(t *testing.T) {
	frame := &entity.RawFrame{Width: 64, Height: 64, Order: entity.ChannelOrderRGB, Pix: make([]byte, 64*64*3)}
	for i := range frame.Pix {
		frame.Pix[i] = byte(i * 31 % 251)
	}

	enc := NewEncoder()
	low, err := enc.Encode(frame, entity.EncodeOptions{MaxWidth: 1200, Quality: 10})
	require.NoError(t, err)
	high, err := enc.Encode(frame, entity.EncodeOptions{MaxWidth: 1200, Quality: 95})
	require.NoError(t, err)

	assert.Less(t, len(low.Data), len(high.Data))
}

func TestEncodeRejectsMalformedFrames(t *testing.T) {
	enc := NewEncoder()
	bad := []*entity.RawFrame{
		nil,
		{Width: 0, Height: 10},
		{Width: 4, Height: 4, Pix: make([]byte, 10)},
		{Width: 1, Height: 1, Order: entity.ChannelOrder(9), Pix: make([]byte, 3)},
	}
	for _, f := range bad {
		_, err := enc.Encode(f, entity.DefaultEncodeOptions())
		assert.True(t, errors.Is(err, entity.ErrEncodeFailure))
	}

	_, err := enc.Encode(solidFrame(2, 2, entity.ChannelOrderRGB, 0, 0, 0), entity.EncodeOptions{Format: "gif"})
	assert.ErrorIs(t, err, entity.ErrEncodeFailure)
}

func TestScaledSize(t *testing.T) {
	w, h := scaledSize(1921, 1081, 1200)
	assert.Equal(t, 1200, w)
	assert.Equal(t, 675, h)
}
