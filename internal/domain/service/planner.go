package service

import (
	"math"

	"github.com/stepwise/stepwise-processing-service/internal/domain/entity"
)

const (
	MinSteps = 3
	MaxSteps = 6

	// SecondsPerStep is the footage covered by one sampled keyframe.
	SecondsPerStep = 20
	// MockSecondsPerStep is the footage covered by one fallback step.
	MockSecondsPerStep = 30

	// fallbackDuration is used for mock steps when the frame rate is unknown.
	fallbackDuration = 60.0
)

// Plan returns evenly spaced sample points, one per SecondsPerStep of footage,
// clamped to [MinSteps, MaxSteps]. When frameRate <= 0 or frameCount < number
// of steps every frame index collapses to 0.
func Plan(frameCount int, frameRate float64) entity.SamplePlan {
	if frameCount < 0 {
		frameCount = 0
	}

	raw := 0.0
	if frameRate > 0 {
		raw = float64(frameCount) / (frameRate * SecondsPerStep)
	}
	numSteps := clampSteps(raw)
	interval := 0
	if frameRate > 0 {
		interval = frameCount / numSteps
	}

	samples := make([]entity.Sample, numSteps)
	for i := range samples {
		samples[i] = entity.Sample{Ordinal: i, FrameIndex: i * interval}
	}
	return entity.SamplePlan{Samples: samples}
}

// MockStepCount is the fallback step count, one per MockSecondsPerStep.
func MockStepCount(durationSeconds float64) int {
	return clampSteps(durationSeconds / MockSecondsPerStep)
}

// Duration returns frameCount/frameRate in seconds, 0 when frameRate is not positive.
func Duration(frameCount int, frameRate float64) float64 {
	if frameRate <= 0 {
		return 0
	}
	return float64(frameCount) / frameRate
}

func clampSteps(raw float64) int {
	if math.IsNaN(raw) || raw < MinSteps {
		return MinSteps
	}
	if raw >= MaxSteps {
		return MaxSteps
	}
	return int(math.Floor(raw))
}
