package timeline

import "math"

// Round2 rounds v to two decimal places
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Clamp limits v to [lo, hi]. NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MapProgress converts driver progress into a time on an axis of the given
// duration. The result always lies in [0, duration].
func MapProgress(progress, duration float64) float64 {
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return 0
	}
	p := Clamp(progress, 0, 1)
	return Clamp(Round2(p*duration), 0, duration)
}

// ScrollProgress returns the progress through a scroll-triggered span. The
// span starts when the trigger's top edge reaches the middle of the viewport
// and ends when its bottom edge does.
func ScrollProgress(scrollTop, triggerTop, triggerHeight, viewportHeight float64) float64 {
	if triggerHeight <= 0 {
		if scrollTop+viewportHeight/2 >= triggerTop {
			return 1
		}
		return 0
	}
	anchor := scrollTop + viewportHeight/2
	return Clamp((anchor-triggerTop)/triggerHeight, 0, 1)
}

// Visible reports whether an intersection ratio counts as visible. A zero
// threshold treats any positive ratio as visible.
func Visible(ratio, threshold float64) bool {
	if threshold <= 0 {
		return ratio > 0
	}
	return ratio >= threshold
}
