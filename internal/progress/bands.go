package progress

import (
	"math"

	"podcastforge/internal/queue"
)

// Band is the percent range a stage occupies on the progress bar.
type Band struct {
	Start float64
	End   float64
}

var bands = map[queue.Stage]Band{
	queue.StageQueued:       {Start: 0, End: 0},
	queue.StageDownloading:  {Start: 0, End: 20},
	queue.StageTranscribing: {Start: 20, End: 50},
	queue.StageAnalyzing:    {Start: 50, End: 70},
	queue.StageGenerating:   {Start: 70, End: 100},
	queue.StageCompleted:    {Start: 100, End: 100},
}

// Checkpoints reported when a stage is entered.
const (
	PercentQueued             = 0
	PercentVideoFastPath      = 20
	PercentVideoDownloading   = 25
	PercentVideoTranscribing  = 40
	PercentVideoAnalyzing     = 60
	PercentArticleDownloading = 10
	PercentAnalyzing          = 50
	PercentGenerating         = 70
	PercentCompleted          = 100
)

// BandFor returns the percent band of stage.
func BandFor(stage queue.Stage) (Band, bool) {
	band, ok := bands[stage]
	return band, ok
}

// Scale maps fraction (0..1) within stage onto an overall percent.
func Scale(stage queue.Stage, fraction float64) float64 {
	band, ok := bands[stage]
	if !ok {
		return 0
	}
	if math.IsNaN(fraction) || fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return band.Start + (band.End-band.Start)*fraction
}

// fractionWithin reports how far percent has progressed through stage's band.
func fractionWithin(stage queue.Stage, percent float64) float64 {
	band, ok := bands[stage]
	if !ok || band.End <= band.Start {
		return 0
	}
	f := (percent - band.Start) / (band.End - band.Start)
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
