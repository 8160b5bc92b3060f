package karaoke

import (
	"fmt"
	"strings"

	"github.com/therealutkarshpriyadarshi/scrolly/internal/timeline"
	"github.com/therealutkarshpriyadarshi/scrolly/pkg/models"
)

// Highlight is the cue being sung and how far through it playback is
type Highlight struct {
	Index    int
	Cue      models.Region
	Text     string
	Progress float64
}

// Track is a parsed transcript
type Track struct {
	store *timeline.Store
}

// NewTrack parses a WebVTT transcript. ids, when it names every cue once,
// replaces the ids read from the transcript.
func NewTrack(webVTT string, ids []string) (*Track, error) {
	cues, err := ParseCues(strings.NewReader(webVTT))
	if err != nil {
		return nil, err
	}
	AssignIDs(cues, ids)
	store, err := timeline.Load(cues)
	if err != nil {
		return nil, fmt.Errorf("failed to load cues: %w", err)
	}
	return &Track{store: store}, nil
}

// Cues returns the cues in order
func (t *Track) Cues() []models.Region {
	return t.store.List()
}

// Duration returns the end of the last cue
func (t *Track) Duration() float64 {
	var end float64
	for _, c := range t.store.List() {
		if e, ok := c.EndTime(); ok && e > end {
			end = e
		}
	}
	return end
}

// At returns the cue active at time at. When cues overlap the one that
// started last wins. Between cues nothing is highlighted.
func (t *Track) At(at float64) (Highlight, bool) {
	cues := t.store.List()
	active := timeline.ActiveSet(cues, at, 0, models.Region.EndTime)
	if len(active) == 0 {
		return Highlight{}, false
	}
	cue := active[len(active)-1]

	data, err := cue.Cue()
	if err != nil {
		return Highlight{}, false
	}
	h := Highlight{Index: -1, Cue: cue, Text: data.Text}
	if span := data.EndTime - cue.StartTime; span > 0 {
		h.Progress = timeline.Clamp((at-cue.StartTime)/span, 0, 1)
	} else {
		h.Progress = 1
	}
	for i, c := range cues {
		if c.ID == cue.ID {
			h.Index = i
			break
		}
	}
	return h, true
}
