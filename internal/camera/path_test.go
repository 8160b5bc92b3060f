package camera

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/scrolly/pkg/models"
)

func poi(t *testing.T, id string, start float64, pos [3]float64, q [4]float64, ease string) models.Region {
	t.Helper()
	r := models.NewRegion(models.RegionID(id), start, models.RegionKindCameraPOI)
	require.NoError(t, r.SetCamera(models.CameraData{Position: pos, Quaternion: q, Duration: 1, Ease: ease}))
	return r
}

var identity = [4]float64{0, 0, 0, 1}

func TestEaseLookup(t *testing.T) {
	for _, name := range []string{"", "none", "linear", "power1.inOut", "POWER2.out", "power3.in", "power4", "sine.inOut", "easeInOutCubic"} {
		fn, ok := Ease(name)
		require.True(t, ok, name)
		assert.InDelta(t, 0, fn(0), 1e-9, name)
		assert.InDelta(t, 1, fn(1), 1e-9, name)
	}

	_, ok := Ease("elastic.out")
	assert.False(t, ok)

	cubic, _ := Ease("easeInOutCubic")
	assert.InDelta(t, 0.5, cubic(0.5), 1e-9)
	assert.InDelta(t, 4*0.25*0.25*0.25, cubic(0.25), 1e-9)
}

func TestSampleHoldsEnds(t *testing.T) {
	p, err := NewPath([]models.Region{
		poi(t, "a", 1, [3]float64{0, 0, 0}, identity, "linear"),
		poi(t, "b", 3, [3]float64{10, 0, 0}, identity, "linear"),
	})
	require.NoError(t, err)

	assert.Equal(t, [3]float64{0, 0, 0}, p.Sample(0).Position)
	assert.Equal(t, [3]float64{10, 0, 0}, p.Sample(5).Position)

	_, ok := p.Active(0.5)
	assert.False(t, ok)
	i, ok := p.Active(3)
	assert.True(t, ok)
	assert.Equal(t, 1, i)
}

func TestSampleInterpolates(t *testing.T) {
	p, err := NewPath([]models.Region{
		poi(t, "a", 0, [3]float64{0, 0, 0}, identity, ""),
		poi(t, "b", 2, [3]float64{10, 20, -4}, identity, "linear"),
	})
	require.NoError(t, err)

	pose := p.Sample(1)
	assert.InDeltaSlice(t, []float64{5, 10, -2}, pose.Position[:], 1e-9)
	assert.InDeltaSlice(t, identity[:], pose.Quaternion[:], 1e-9)
}

func TestSampleSlerpsOrientation(t *testing.T) {
	half := math.Sqrt2 / 2
	quarterTurn := [4]float64{0, half, 0, half}

	p, err := NewPath([]models.Region{
		poi(t, "a", 0, [3]float64{}, identity, ""),
		poi(t, "b", 1, [3]float64{}, quarterTurn, "none"),
	})
	require.NoError(t, err)

	q := p.Sample(0.5).Quaternion
	eighth := math.Pi / 8
	assert.InDeltaSlice(t, []float64{0, math.Sin(eighth), 0, math.Cos(eighth)}, q[:], 1e-9)
}

func TestSampleUnknownEaseIsLinear(t *testing.T) {
	p, err := NewPath([]models.Region{
		poi(t, "a", 0, [3]float64{0, 0, 0}, identity, ""),
		poi(t, "b", 4, [3]float64{8, 0, 0}, identity, "bounce.out"),
	})
	require.NoError(t, err)
	assert.InDelta(t, 2, p.Sample(1).Position[0], 1e-9)
}

func TestPathFromImplicitStarts(t *testing.T) {
	var data models.CameraHelperData
	require.NoError(t, data.UnmarshalJSON([]byte(`{"pois":[
		{"position":[0,0,0],"quaternion":[0,0,0,1],"duration":1,"ease":"linear"},
		{"position":[4,0,0],"quaternion":[0,0,0,1],"duration":2,"ease":"linear"}
	]}`)))

	p, err := NewPath(data.Pois)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, 3.0, p.Duration())
	assert.InDelta(t, 2, p.Sample(0.5).Position[0], 1e-9)
}

func TestPathRejectsBadPayload(t *testing.T) {
	r := models.NewRegion("bad", 0, models.RegionKindCameraPOI)
	r.Fields["position"] = []byte(`"nowhere"`)

	_, err := NewPath([]models.Region{r})
	assert.Error(t, err)
}

func TestYAMLExport(t *testing.T) {
	p, err := NewPath([]models.Region{
		poi(t, "a", 0, [3]float64{1, 2, 3}, identity, "power2.inOut"),
		poi(t, "b", 2.5, [3]float64{4, 5, 6}, identity, ""),
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, p.Document("rec-1")))
	assert.Contains(t, buf.String(), "recordId: rec-1")
	assert.Contains(t, buf.String(), "ease: power2.inOut")

	doc, err := ReadYAML(&buf)
	require.NoError(t, err)
	assert.Equal(t, "rec-1", doc.RecordID)
	assert.Equal(t, 3.5, doc.Duration)
	require.Len(t, doc.Keyframes, 2)
	assert.Equal(t, "b", doc.Keyframes[1].ID)
	assert.Equal(t, 2.5, doc.Keyframes[1].Time)
	assert.Equal(t, [3]float64{4, 5, 6}, doc.Keyframes[1].Position)
	assert.Equal(t, "", doc.Keyframes[1].Ease)
}
