package timeline

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/scrolly/pkg/models"
)

func TestResolvePreRoll(t *testing.T) {
	regions := []models.Region{region("first", 3), region("second", 8)}

	tests := []struct {
		t      float64
		wantOK bool
		wantID models.RegionID
	}{
		{1, false, ""},
		{3, true, "first"},
		{7.99, true, "first"},
		{8, true, "second"},
		{100, true, "second"},
	}

	for _, tt := range tests {
		r, ok := Resolve(regions, tt.t, 10)
		assert.Equal(t, tt.wantOK, ok, "t=%v", tt.t)
		if tt.wantOK {
			assert.Equal(t, tt.wantID, r.ID, "t=%v", tt.t)
		}
	}
}

func TestResolveEmpty(t *testing.T) {
	assert.Equal(t, -1, ResolveIndex(nil, 5, 10))
}

func TestResolveNaNIsPreRoll(t *testing.T) {
	regions := []models.Region{region("first", 0), region("second", 8)}
	assert.Equal(t, -1, ResolveIndex(regions, math.NaN(), 10))

	_, ok := Resolve(regions, math.NaN(), 10)
	assert.False(t, ok)
}

func TestResolveClampsPastEnd(t *testing.T) {
	// created past the end of a 10s axis, resolved as if at 10
	regions := []models.Region{region("a", 2), region("late", 14)}

	r, ok := Resolve(regions, 10, 10)
	require.True(t, ok)
	assert.Equal(t, models.RegionID("late"), r.ID)

	r, ok = Resolve(regions, 9.99, 10)
	require.True(t, ok)
	assert.Equal(t, models.RegionID("a"), r.ID)
}

func TestResolveLastWinsOnTie(t *testing.T) {
	regions := []models.Region{region("A", 5), region("B", 5), region("C", 5)}
	assert.Equal(t, 2, ResolveIndex(regions, 5, 10))
	assert.Equal(t, -1, ResolveIndex(regions, 4.99, 10))
}

func TestResolveMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 50; trial++ {
		n := rng.Intn(40) + 1
		regions := make([]models.Region, n)
		for i := range regions {
			regions[i] = region("", float64(rng.Intn(200))/10)
		}
		sort.SliceStable(regions, func(i, j int) bool { return regions[i].StartTime < regions[j].StartTime })

		samples := make([]float64, 300)
		for i := range samples {
			samples[i] = rng.Float64()*25 - 2
		}
		sort.Float64s(samples)

		prev := -1
		for _, ts := range samples {
			idx := ResolveIndex(regions, ts, 15)
			if idx < prev {
				t.Fatalf("trial %d: index regressed from %d to %d at t=%v", trial, prev, idx, ts)
			}
			prev = idx
		}
	}
}

func TestActiveSet(t *testing.T) {
	a := region("a", 1)
	b := region("b", 4)
	c := region("c", 4)
	point := region("point", 6)
	require.NoError(t, point.SetCue(models.CueData{Text: "flash", EndTime: 6}))
	cue := region("cue", 7)
	require.NoError(t, cue.SetCue(models.CueData{Text: "line", EndTime: 8}))

	regions := []models.Region{a, b, c, point, cue}
	end := func(r models.Region) (float64, bool) { return r.EndTime() }

	assert.Empty(t, ActiveSet(regions, 0.5, 10, end))
	assert.Equal(t, []models.RegionID{"a"}, ids(ActiveSet(regions, 2, 10, end)))
	assert.Equal(t, []models.RegionID{"b", "c"}, ids(ActiveSet(regions, 4.5, 10, end)))
	// open-ended regions stop where the next later region starts
	assert.Equal(t, []models.RegionID{"point"}, ids(ActiveSet(regions, 6, 10, end)))
	assert.Empty(t, ActiveSet(regions, 6.5, 10, end))
	assert.Equal(t, []models.RegionID{"cue"}, ids(ActiveSet(regions, 7.5, 10, end)))
	assert.Empty(t, ActiveSet(regions, 8, 10, end))
}
