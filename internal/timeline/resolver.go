package timeline

import (
	"math"
	"sort"

	"github.com/therealutkarshpriyadarshi/scrolly/pkg/models"
)

// ResolveIndex returns the index of the active region at time t, or -1 when
// t precedes every region. regions must be in store order. Start times are
// clamped to [0, duration] before comparison; a non-positive duration
// disables clamping of the upper bound.
//
// On equal start times the later region wins. A NaN time resolves to -1.
func ResolveIndex(regions []models.Region, t, duration float64) int {
	if math.IsNaN(t) {
		return -1
	}
	// upper bound on clamped starts; the predicate is monotonic because
	// clamping preserves order.
	i := sort.Search(len(regions), func(i int) bool {
		return clampStart(regions[i].StartTime, duration) > t
	})
	return i - 1
}

// Resolve returns the active region at time t
func Resolve(regions []models.Region, t, duration float64) (models.Region, bool) {
	i := ResolveIndex(regions, t, duration)
	if i < 0 {
		return models.Region{}, false
	}
	return regions[i], true
}

// EndFunc reports the explicit end of a region, if it has one
type EndFunc func(models.Region) (float64, bool)

// ActiveSet returns, in store order, every region whose interval contains t.
// A region without an explicit end lasts until the next region with a later
// start. Zero-length intervals are active only at their start.
func ActiveSet(regions []models.Region, t, duration float64, end EndFunc) []models.Region {
	var out []models.Region
	for i, r := range regions {
		start := clampStart(r.StartTime, duration)
		if start > t {
			break
		}

		stop, explicit := 0.0, false
		if end != nil {
			stop, explicit = end(r)
		}
		if explicit {
			stop = clampStart(stop, duration)
			if stop <= start {
				if t == start {
					out = append(out, r)
				}
				continue
			}
			if t < stop {
				out = append(out, r)
			}
			continue
		}

		next := nextStart(regions, i, duration)
		if next < 0 || t < next {
			out = append(out, r)
		}
	}
	return out
}

// nextStart returns the first clamped start after region i's, or -1
func nextStart(regions []models.Region, i int, duration float64) float64 {
	start := clampStart(regions[i].StartTime, duration)
	for j := i + 1; j < len(regions); j++ {
		if s := clampStart(regions[j].StartTime, duration); s > start {
			return s
		}
	}
	return -1
}

func clampStart(start, duration float64) float64 {
	if start < 0 {
		return 0
	}
	if duration > 0 && start > duration {
		return duration
	}
	return start
}
