package keyframe

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/stepwise/stepwise-processing-service/internal/domain/entity"
)

// InlineStore embeds keyframes in the step itself as data URIs.
type InlineStore struct{}

func NewInlineStore() *InlineStore {
	return &InlineStore{}
}

func (s *InlineStore) StoreKeyframe(_ context.Context, _ int, _ int, frame *entity.EncodedFrame) (string, error) {
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(frame.ContentType) + base64.StdEncoding.EncodedLen(len(frame.Data)))
	b.WriteString("data:")
	b.WriteString(frame.ContentType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(frame.Data))
	return b.String(), nil
}
