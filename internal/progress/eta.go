package progress

import (
	"math"

	"podcastforge/internal/queue"
)

// stageSeconds is the expected wall time of each stage from its start.
var stageSeconds = map[queue.Stage]int{
	queue.StageQueued:       5,
	queue.StageDownloading:  30,
	queue.StageTranscribing: 60,
	queue.StageAnalyzing:    45,
	queue.StageGenerating:   90,
}

// StagesFor returns the non-terminal stages a task of the given modality
// passes through, in order.
func StagesFor(input queue.InputType) []queue.Stage {
	switch input {
	case queue.InputVideo:
		return []queue.Stage{queue.StageQueued, queue.StageDownloading, queue.StageTranscribing, queue.StageAnalyzing, queue.StageGenerating}
	case queue.InputArticle:
		return []queue.Stage{queue.StageQueued, queue.StageDownloading, queue.StageAnalyzing, queue.StageGenerating}
	default:
		return []queue.Stage{queue.StageQueued, queue.StageAnalyzing, queue.StageGenerating}
	}
}

// EstimateRemaining returns the seconds left for a task of the given modality
// currently at stage with the given overall percent. Terminal stages have no
// estimate.
func EstimateRemaining(input queue.InputType, stage queue.Stage, percent float64) *int {
	if stage == queue.StageCompleted || stage == queue.StageFailed {
		return nil
	}
	stages := StagesFor(input)
	idx := -1
	for i, s := range stages {
		if s == stage {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	current := float64(stageSeconds[stage]) * (1 - fractionWithin(stage, percent))
	total := current
	for _, later := range stages[idx+1:] {
		total += float64(stageSeconds[later])
	}
	seconds := int(math.Round(total))
	return &seconds
}
