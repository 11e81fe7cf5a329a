package service

import (
	"fmt"

	"github.com/stepwise/stepwise-processing-service/internal/domain/entity"
)

const placeholderImageURL = "https://picsum.photos/id/%d/800/400"

// PlaceholderImageURL is the stock image used by the fallback step at ordinal.
func PlaceholderImageURL(ordinal int) string {
	return fmt.Sprintf(placeholderImageURL, 20+ordinal)
}

// MockSteps builds fallback steps from the video duration alone. A duration
// of 0 (unknown frame rate) is treated as one minute of footage.
func MockSteps(durationSeconds float64) []entity.StepRecord {
	if durationSeconds <= 0 {
		durationSeconds = fallbackDuration
	}
	n := MockStepCount(durationSeconds)

	steps := make([]entity.StepRecord, n)
	for i := range steps {
		tpl := MockTemplate(i)
		steps[i] = entity.StepRecord{
			Order:       i + 1,
			Title:       tpl.Title,
			Description: tpl.Description,
			ImageURL:    PlaceholderImageURL(i),
		}
	}
	return steps
}
