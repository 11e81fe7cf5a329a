package entity

// ChannelOrder is the byte order of the three colour channels of a RawFrame.
type ChannelOrder int

const (
	ChannelOrderBGR ChannelOrder = iota
	ChannelOrderRGB
)

// RawFrame is a decoded, uncompressed 8-bit, 3-channel frame.
// Pix holds Height rows of Width*3 bytes with no padding.
type RawFrame struct {
	Width  int
	Height int
	Order  ChannelOrder
	Pix    []byte
}

type ImageFormat string

const (
	ImageFormatJPEG ImageFormat = "jpeg"
	ImageFormatWebP ImageFormat = "webp"
)

type EncodeOptions struct {
	MaxWidth int
	Quality  int
	Format   ImageFormat
}

func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{MaxWidth: 1200, Quality: 80, Format: ImageFormatJPEG}
}

type EncodedFrame struct {
	Data        []byte
	Width       int
	Height      int
	ContentType string
}

// Ext returns the file extension matching the frame's content type.
func (f *EncodedFrame) Ext() string {
	if f.ContentType == "image/webp" {
		return "webp"
	}
	return "jpg"
}
