package embed

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/therealutkarshpriyadarshi/scrolly/internal/camera"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/karaoke"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/timeline"
	"github.com/therealutkarshpriyadarshi/scrolly/pkg/models"
)

// Artefact is a file published for a record
type Artefact struct {
	Key  string
	Body []byte
}

// EmbedKey returns the object key of a record's embed payload
func EmbedKey(recordID string) string {
	return fmt.Sprintf("embeds/%s.json", recordID)
}

// PathKey returns the object key of a 3D record's camera path
func PathKey(recordID string) string {
	return fmt.Sprintf("paths/%s.yaml", recordID)
}

// CuesKey returns the object key of a karaoke record's normalized transcript
func CuesKey(recordID string) string {
	return fmt.Sprintf("cues/%s.vtt", recordID)
}

// ArtefactKeys returns every key a record of any kind may be published under
func ArtefactKeys(recordID string) []string {
	return []string{EmbedKey(recordID), PathKey(recordID), CuesKey(recordID)}
}

// Artefacts builds every file published for rec: the embed payload, plus
// the camera path of 3D records and the transcript of karaoke records.
func (b *Builder) Artefacts(rec models.Record) ([]Artefact, error) {
	payload, err := b.Build(rec)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode embed payload: %w", err)
	}
	out := []Artefact{{Key: EmbedKey(rec.ID), Body: body}}

	switch props := payload.Props.(type) {
	case ThreeModelProps:
		path, err := camera.NewPath(props.Pois)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := camera.WriteYAML(&buf, path.Document(rec.ID)); err != nil {
			return nil, err
		}
		out = append(out, Artefact{Key: PathKey(rec.ID), Body: buf.Bytes()})

	case KaraokeProps:
		var buf bytes.Buffer
		if err := karaoke.WriteWebVTT(&buf, props.Cues); err != nil {
			return nil, err
		}
		out = append(out, Artefact{Key: CuesKey(rec.ID), Body: buf.Bytes()})
	}
	return out, nil
}

// Layout is the scroll geometry of a scrollable video
type Layout struct {
	Duration       float64   `json:"duration"`
	SectionsHeight float64   `json:"sectionsHeight"`
	Offsets        []float64 `json:"offsets"`
}

// VideoLayout computes caption section offsets for a viewport height.
// Records without a known video duration use defaultDuration.
func VideoLayout(props VideoProps, viewportHeight, defaultDuration float64) Layout {
	d := props.Video.Duration
	if d <= 0 {
		d = defaultDuration
	}
	l := Layout{
		Duration:       d,
		SectionsHeight: timeline.SectionsHeight(d, props.SecondsPer100vh, viewportHeight),
		Offsets:        make([]float64, 0, len(props.Captions)),
	}
	for _, c := range props.Captions {
		l.Offsets = append(l.Offsets, timeline.SectionOffset(c.StartTime, props.SecondsPer100vh, viewportHeight))
	}
	return l
}
