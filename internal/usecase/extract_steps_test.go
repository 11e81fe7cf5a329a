package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stepwise/stepwise-processing-service/internal/domain/entity"
	"github.com/stepwise/stepwise-processing-service/internal/domain/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newExtractUC(opener *fakeOpener, enc *fakeEncoder) *ExtractStepsUseCase {
	uc := NewExtractStepsUseCase(opener, enc, fakeKeyframes{}, zap.NewNop(), ExtractStepsConfig{
		Encode: entity.DefaultEncodeOptions(),
	})
	uc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return uc
}

func TestExtractSteps_RealFrames(t *testing.T) {
	src := newFakeSource(3000, 30)
	opener := &fakeOpener{src: src}
	uc := newExtractUC(opener, &fakeEncoder{})

	guide, err := uc.Execute(context.Background(), entity.ExtractionRequest{Reference: "video.mp4", GuideID: 42})
	require.NoError(t, err)

	assert.Equal(t, 42, guide.GuideID)
	assert.Equal(t, entity.GuideSourceFrames, guide.Source)
	assert.False(t, guide.Cached)
	assert.Equal(t, []int{0, 600, 1200, 1800, 2400}, src.reads)
	require.Len(t, guide.Steps, 5)
	require.Len(t, guide.Keyframes, 5)

	for i, step := range guide.Steps {
		tpl := service.Synthesize(i, 5)
		assert.Equal(t, i+1, step.Order)
		assert.Equal(t, tpl.Title, step.Title)
		assert.Equal(t, tpl.Description, step.Description)
		assert.NotEmpty(t, step.ImageURL)
	}
	assert.Equal(t, 1, src.closed)
	assert.Equal(t, []string{"video.mp4"}, opener.refs)
}

func TestExtractSteps_ShortVideoRepeatsFirstFrame(t *testing.T) {
	src := newFakeSource(2, 30)
	uc := newExtractUC(&fakeOpener{src: src}, &fakeEncoder{})

	guide, err := uc.Execute(context.Background(), entity.ExtractionRequest{Reference: "v.mp4", GuideID: 1})
	require.NoError(t, err)

	assert.Equal(t, entity.GuideSourceFrames, guide.Source)
	assert.Equal(t, []int{0, 0, 0}, src.reads)
	assert.Len(t, guide.Steps, 3)
}

func TestExtractSteps_DecodeFailureFallsBack(t *testing.T) {
	src := newFakeSource(3000, 30)
	src.failAt = 1200
	uc := newExtractUC(&fakeOpener{src: src}, &fakeEncoder{})

	guide, err := uc.Execute(context.Background(), entity.ExtractionRequest{Reference: "v.mp4", GuideID: 9})
	require.NoError(t, err)

	assert.True(t, guide.IsFallback())
	assert.Empty(t, guide.Keyframes)
	assert.Equal(t, service.MockSteps(100), guide.Steps)
	assert.Len(t, guide.Steps, 3)
	assert.Equal(t, 1, src.closed)
}

func TestExtractSteps_EncodeFailureFallsBack(t *testing.T) {
	src := newFakeSource(1800*30, 30)
	uc := newExtractUC(&fakeOpener{src: src}, &fakeEncoder{err: entity.ErrEncodeFailure})

	guide, err := uc.Execute(context.Background(), entity.ExtractionRequest{Reference: "v.mp4", GuideID: 9})
	require.NoError(t, err)

	assert.Equal(t, entity.GuideSourceMock, guide.Source)
	require.Len(t, guide.Steps, service.MaxSteps)
	assert.Equal(t, service.PlaceholderImageURL(0), guide.Steps[0].ImageURL)
}

func TestExtractSteps_PanicFallsBack(t *testing.T) {
	src := newFakeSource(3000, 30)
	src.panicAt = 600
	uc := newExtractUC(&fakeOpener{src: src}, &fakeEncoder{})

	guide, err := uc.Execute(context.Background(), entity.ExtractionRequest{Reference: "v.mp4", GuideID: 3})
	require.NoError(t, err)

	assert.True(t, guide.IsFallback())
	assert.Equal(t, 1, src.closed)
}

func TestExtractSteps_ZeroFrameRateFallsBackToMinimum(t *testing.T) {
	src := newFakeSource(500, 0)
	src.failAt = 0
	uc := newExtractUC(&fakeOpener{src: src}, &fakeEncoder{})

	guide, err := uc.Execute(context.Background(), entity.ExtractionRequest{Reference: "v.mp4", GuideID: 3})
	require.NoError(t, err)

	assert.True(t, guide.IsFallback())
	assert.Len(t, guide.Steps, service.MinSteps)
}

func TestExtractSteps_OpenFailureReturnsError(t *testing.T) {
	uc := newExtractUC(&fakeOpener{err: entity.ErrSourceUnavailable}, &fakeEncoder{})

	guide, err := uc.Execute(context.Background(), entity.ExtractionRequest{Reference: "missing.mp4", GuideID: 3})
	require.Error(t, err)
	assert.Nil(t, guide)
	assert.True(t, errors.Is(err, entity.ErrSourceUnavailable))
}

func TestExtractSteps_Idempotent(t *testing.T) {
	run := func() *entity.Guide {
		uc := newExtractUC(&fakeOpener{src: newFakeSource(4500, 25)}, &fakeEncoder{})
		g, err := uc.Execute(context.Background(), entity.ExtractionRequest{Reference: "v.mp4", GuideID: 5})
		require.NoError(t, err)
		return g
	}

	first, second := run(), run()
	assert.Equal(t, first.Steps, second.Steps)
	assert.Equal(t, first.Source, second.Source)
}
