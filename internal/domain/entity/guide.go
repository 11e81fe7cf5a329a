package entity

import "time"

type GuideSource string

const (
	// GuideSourceFrames marks steps built from decoded keyframes.
	GuideSourceFrames GuideSource = "frames"
	// GuideSourceMock marks steps produced by the duration-only fallback.
	GuideSourceMock GuideSource = "mock"
)

type StepRecord struct {
	Order       int    `json:"order"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

type StepTemplate struct {
	Title       string
	Description string
}

// Guide is the result of one processing run.
type Guide struct {
	GuideID   int          `json:"guide_id"`
	Steps     []StepRecord `json:"steps"`
	Cached    bool         `json:"cached"`
	Source    GuideSource  `json:"source"`
	Timestamp time.Time    `json:"timestamp"`

	// Keyframes holds the encoded images of a frames-sourced guide, in step order.
	Keyframes []*EncodedFrame `json:"-"`
}

func (g *Guide) IsFallback() bool {
	return g.Source == GuideSourceMock
}

type ExtractionRequest struct {
	Reference string
	GuideID   int
}
