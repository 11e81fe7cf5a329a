package service

import (
	"fmt"

	"github.com/stepwise/stepwise-processing-service/internal/domain/entity"
)

var stepTemplates = [...]entity.StepTemplate{
	{
		Title:       "Initial Setup and Preparation",
		Description: "Begin by setting up your workspace and gathering all necessary materials. Ensure you have a clean, organized area to work in and all tools are easily accessible.",
	},
	{
		Title:       "Primary Process Execution",
		Description: "Start the main procedure following the demonstrated technique. Pay close attention to the specific movements and timing shown in the video.",
	},
	{
		Title:       "Intermediate Steps and Adjustments",
		Description: "Continue with the intermediate steps, making any necessary adjustments as you progress. Monitor your work carefully and compare with the reference.",
	},
	{
		Title:       "Advanced Techniques Application",
		Description: "Apply the more advanced techniques demonstrated in the video. Take your time with these steps as they often require precision and practice.",
	},
	{
		Title:       "Final Assembly and Completion",
		Description: "Complete the final assembly steps and perform quality checks. Ensure all components are properly secured and the result matches the expected outcome.",
	},
	{
		Title:       "Quality Control and Finishing",
		Description: "Perform final quality control checks and apply any finishing touches. Clean up your workspace and properly store any remaining materials.",
	},
}

var mockTemplates = [...]entity.StepTemplate{
	{
		Title:       "Workspace Preparation",
		Description: "Set up your workspace with proper lighting and organization. Ensure all tools are clean and within reach.",
	},
	{
		Title:       "Material Gathering",
		Description: "Gather all required materials and tools. Check that everything is in good condition and properly functioning.",
	},
	{
		Title:       "Initial Setup",
		Description: "Begin the initial setup process following the demonstrated sequence. Take care with positioning and alignment.",
	},
	{
		Title:       "Main Process",
		Description: "Execute the main procedure with attention to detail. Follow the timing and technique shown in the video.",
	},
	{
		Title:       "Quality Checks",
		Description: "Perform quality control checks at each stage. Make adjustments as needed to ensure proper results.",
	},
	{
		Title:       "Final Assembly",
		Description: "Complete the final assembly and finishing steps. Clean up and organize your completed work.",
	},
}

// Synthesize picks the template for a sample by its ordinal. Ordinals past the
// end of the pool reuse the last template; total does not affect the choice.
func Synthesize(ordinal, total int) entity.StepTemplate {
	idx := ordinal
	if idx < 0 {
		idx = 0
	}
	if last := templatePoolSize() - 1; idx > last {
		idx = last
	}
	return stepTemplates[idx]
}

// MockTemplate returns the fallback template for an ordinal.
func MockTemplate(ordinal int) entity.StepTemplate {
	if ordinal >= 0 && ordinal < len(mockTemplates) {
		return mockTemplates[ordinal]
	}
	n := ordinal + 1
	return entity.StepTemplate{
		Title:       fmt.Sprintf("Step %d", n),
		Description: fmt.Sprintf("Complete step %d as demonstrated in the video.", n),
	}
}

func templatePoolSize() int {
	return len(stepTemplates)
}
