package entity

// Sample is one planned extraction point. Ordinal is 0-based.
type Sample struct {
	Ordinal    int
	FrameIndex int
}

type SamplePlan struct {
	Samples []Sample
}

func (p SamplePlan) Len() int {
	return len(p.Samples)
}
