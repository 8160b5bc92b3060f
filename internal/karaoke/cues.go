// Package karaoke turns WebVTT transcripts into cue regions and tracks the
// cue being sung at a playback time.
package karaoke

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/asticode/go-astisub"
	"github.com/therealutkarshpriyadarshi/scrolly/pkg/models"
)

const emptyWebVTT = "WEBVTT\n"

// ParseCues reads a WebVTT document into cue regions in document order.
// A numeric cue identifier becomes the region id; cues without one, or
// repeating one, are left without an id.
func ParseCues(r io.Reader) ([]models.Region, error) {
	subs, err := astisub.ReadFromWebVTT(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse webvtt: %w", err)
	}

	regions := make([]models.Region, 0, len(subs.Items))
	seen := make(map[int]bool, len(subs.Items))
	for _, item := range subs.Items {
		var id models.RegionID
		if item.Index > 0 && !seen[item.Index] {
			seen[item.Index] = true
			id = models.RegionID(strconv.Itoa(item.Index))
		}
		region := models.NewRegion(id, seconds(item.StartAt), models.RegionKindCue)
		if err := region.SetCue(models.CueData{
			Text:    itemText(item),
			EndTime: seconds(item.EndAt),
		}); err != nil {
			return nil, err
		}
		regions = append(regions, region)
	}
	return regions, nil
}

// AssignIDs replaces the ids of cues, in document order, with ids. It
// reports false and leaves cues untouched when ids does not name every cue
// exactly once.
func AssignIDs(cues []models.Region, ids []string) bool {
	if len(ids) != len(cues) {
		return false
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			return false
		}
		seen[id] = true
	}
	for i := range cues {
		cues[i].ID = models.RegionID(ids[i])
	}
	return true
}

// CueIDs returns the ids of cues in order
func CueIDs(cues []models.Region) []string {
	ids := make([]string, len(cues))
	for i, c := range cues {
		ids[i] = string(c.ID)
	}
	return ids
}

// WriteWebVTT writes cue regions as a normalized WebVTT document
func WriteWebVTT(w io.Writer, cues []models.Region) error {
	if len(cues) == 0 {
		_, err := io.WriteString(w, emptyWebVTT)
		return err
	}

	subs := astisub.NewSubtitles()
	for _, r := range cues {
		cue, err := r.Cue()
		if err != nil {
			return fmt.Errorf("failed to decode cue %s: %w", r.ID, err)
		}
		item := &astisub.Item{
			StartAt: duration(r.StartTime),
			EndAt:   duration(cue.EndTime),
		}
		for _, line := range strings.Split(cue.Text, "\n") {
			item.Lines = append(item.Lines, astisub.Line{
				Items: []astisub.LineItem{{Text: line}},
			})
		}
		subs.Items = append(subs.Items, item)
	}
	if err := subs.WriteToWebVTT(w); err != nil {
		return fmt.Errorf("failed to write webvtt: %w", err)
	}
	return nil
}

func itemText(item *astisub.Item) string {
	lines := make([]string, 0, len(item.Lines))
	for _, l := range item.Lines {
		lines = append(lines, l.String())
	}
	return strings.Join(lines, "\n")
}

func seconds(d time.Duration) float64 {
	return d.Seconds()
}

func duration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
