package encoder

import (
	"bytes"
	"fmt"
	"image"
	"math"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/stepwise/stepwise-processing-service/internal/domain/entity"
)

type Encoder struct{}

func NewEncoder() *Encoder {
	return &Encoder{}
}

// Encode converts the frame to RGB, shrinks it to opts.MaxWidth when wider and
// compresses it with the requested lossy codec.
func (e *Encoder) Encode(frame *entity.RawFrame, opts entity.EncodeOptions) (*entity.EncodedFrame, error) {
	img, err := toNRGBA(frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrEncodeFailure, err)
	}

	var out image.Image = img
	if opts.MaxWidth > 0 && frame.Width > opts.MaxWidth {
		w, h := scaledSize(frame.Width, frame.Height, opts.MaxWidth)
		out = imaging.Resize(img, w, h, imaging.Box)
	}

	quality := clampQuality(opts.Quality)
	var buf bytes.Buffer
	contentType := "image/jpeg"

	switch opts.Format {
	case entity.ImageFormatWebP:
		contentType = "image/webp"
		err = webp.Encode(&buf, out, &webp.Options{Lossless: false, Quality: float32(quality)})
	case entity.ImageFormatJPEG, "":
		err = imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(quality))
	default:
		err = fmt.Errorf("unsupported image format %q", opts.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrEncodeFailure, err)
	}

	bounds := out.Bounds()
	return &entity.EncodedFrame{
		Data:        buf.Bytes(),
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		ContentType: contentType,
	}, nil
}

// scaledSize scales both dimensions by maxWidth/width, rounding to the nearest pixel.
func scaledSize(width, height, maxWidth int) (int, int) {
	ratio := float64(maxWidth) / float64(width)
	w := int(math.Round(float64(width) * ratio))
	h := int(math.Round(float64(height) * ratio))
	if h < 1 {
		h = 1
	}
	return w, h
}

func clampQuality(q int) int {
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}

func toNRGBA(frame *entity.RawFrame) (*image.NRGBA, error) {
	if frame == nil {
		return nil, fmt.Errorf("nil frame")
	}
	if frame.Width <= 0 || frame.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", frame.Width, frame.Height)
	}
	if want := frame.Width * frame.Height * 3; len(frame.Pix) != want {
		return nil, fmt.Errorf("frame buffer has %d bytes, want %d", len(frame.Pix), want)
	}

	rIdx, bIdx := 0, 2
	switch frame.Order {
	case entity.ChannelOrderRGB:
	case entity.ChannelOrderBGR:
		rIdx, bIdx = 2, 0
	default:
		return nil, fmt.Errorf("unknown channel order %d", frame.Order)
	}

	img := image.NewNRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	for src, dst := 0, 0; src < len(frame.Pix); src, dst = src+3, dst+4 {
		img.Pix[dst] = frame.Pix[src+rIdx]
		img.Pix[dst+1] = frame.Pix[src+1]
		img.Pix[dst+2] = frame.Pix[src+bIdx]
		img.Pix[dst+3] = 0xff
	}
	return img, nil
}
