package aggregate

import (
	"math"

	"hanziblur/internal/textutil"
)

// Subtitle scoring thresholds. Burned-in subtitles recur across several time
// groups at a stable position; product text and scene text tend not to.
const (
	MinTimeGroups     = 2
	MaxYStdDev        = 8.0
	MaxXStdDev        = 14.0
	MinSubtitleScore  = 2.5
	earlyStartSeconds = 1.0
)

// AcceptSubtitle applies the subtitle-likelihood filter and returns the
// decision with the computed score.
func AcceptSubtitle(t Track) (bool, float64) {
	early := t.StartTime <= earlyStartSeconds
	if t.TimeGroupCount < MinTimeGroups && !early {
		return false, 0
	}
	yStd := stdDev(t.ys)
	if len(t.ys) >= 2 && yStd > MaxYStdDev {
		return false, 0
	}
	xStd := stdDev(t.xs)
	if len(t.xs) >= 2 && xStd > MaxXStdDev {
		return false, 0
	}

	score := 0.0
	switch {
	case t.TimeGroupCount >= 3:
		score += 2.0
	case t.TimeGroupCount >= 2:
		score += 1.0
	default:
		score -= 1.0
	}
	if yStd <= MaxYStdDev*0.5 {
		score += 1.5
	} else {
		score += 0.5
	}
	if xStd <= MaxXStdDev*0.5 {
		score += 1.0
	}
	if xStd > 0 && xStd <= MaxXStdDev {
		score += 0.5
	}
	switch han := textutil.CountHan(t.SampleText); {
	case han >= 2:
		score += 1.0
	case han >= 1:
		score += 0.5
	}
	if t.Frequency >= 3 {
		score += 0.5
	}
	if early && t.TimeGroupCount < MinTimeGroups {
		score += 0.5
	}
	return score >= MinSubtitleScore, score
}

func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq / float64(len(values)))
}
