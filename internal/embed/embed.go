// Package embed builds the structured payload an embed code generator
// consumes for each record kind, and the artefacts published alongside it.
package embed

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/therealutkarshpriyadarshi/scrolly/internal/karaoke"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/logging"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/timeline"
	"github.com/therealutkarshpriyadarshi/scrolly/pkg/models"
)

// Component names understood by the embed code generator
const (
	ComponentScrollableVideo = "react-scrollable-video"
	ComponentKaraoke         = "react-karaoke"
	ComponentThreeModel      = "react-three-story-controls"
)

// ErrUnsupportedKind is returned for records the builder has no payload for
var ErrUnsupportedKind = errors.New("unsupported record kind")

// Payload is the embed data of one record
type Payload struct {
	RecordID  string            `json:"recordId"`
	Kind      models.RecordKind `json:"kind"`
	Name      string            `json:"name"`
	Component string            `json:"component"`
	Props     interface{}       `json:"props"`
	// Hint is the standalone sound hint of a karaoke record
	Hint *KaraokeProps `json:"hint,omitempty"`
}

// Video locates the video of a scrollable video
type Video struct {
	Src       string  `json:"src"`
	MobileSrc string  `json:"mobileSrc,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
}

// VideoProps drives a scrollable video
type VideoProps struct {
	Video           Video           `json:"video"`
	Captions        []models.Region `json:"captions"`
	DarkMode        bool            `json:"darkMode"`
	SecondsPer100vh float64         `json:"secondsPer100vh"`
}

// KaraokeProps drives a karaoke quote, or only its sound hint when HintOnly
// is set
type KaraokeProps struct {
	ComponentTheme string          `json:"componentTheme,omitempty"`
	AudioURLs      []string        `json:"audioUrls,omitempty"`
	WebVTT         string          `json:"webVtt,omitempty"`
	QuoteBy        string          `json:"quoteBy,omitempty"`
	Cues           []models.Region `json:"cues,omitempty"`
	Duration       float64         `json:"duration,omitempty"`
	HintOnly       bool            `json:"hintOnly,omitempty"`
}

// ThreeModelProps drives a scrollable 3D model
type ThreeModelProps struct {
	ModelObjs     json.RawMessage `json:"modelObjs"`
	Pois          []models.Region `json:"pois"`
	AnimationClip json.RawMessage `json:"animationClip"`
}

// Builder builds embed payloads
type Builder struct {
	logger *logging.Logger
}

// NewBuilder creates a builder. A nil logger discards warnings.
func NewBuilder(logger *logging.Logger) *Builder {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Builder{logger: logger}
}

// Build returns the embed payload of rec
func (b *Builder) Build(rec models.Record) (*Payload, error) {
	p := &Payload{RecordID: rec.ID, Kind: rec.Kind, Name: rec.Name}

	switch rec.Kind {
	case models.RecordKindScrollableVideo:
		var v models.ScrollableVideo
		if err := decode(rec, &v); err != nil {
			return nil, err
		}
		props, err := b.videoProps(rec.ID, v)
		if err != nil {
			return nil, err
		}
		p.Component, p.Props = ComponentScrollableVideo, props

	case models.RecordKindKaraoke:
		var k models.Karaoke
		if err := decode(rec, &k); err != nil {
			return nil, err
		}
		props, err := karaokeProps(k)
		if err != nil {
			return nil, err
		}
		p.Component, p.Props = ComponentKaraoke, props
		if k.MuteHint {
			p.Hint = &KaraokeProps{HintOnly: true}
		}

	case models.RecordKindThreeModel:
		var m models.ThreeModel
		if err := decode(rec, &m); err != nil {
			return nil, err
		}
		props, err := threeModelProps(m)
		if err != nil {
			return nil, err
		}
		p.Component, p.Props = ComponentThreeModel, props

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, rec.Kind)
	}
	return p, nil
}

func (b *Builder) videoProps(recordID string, v models.ScrollableVideo) (VideoProps, error) {
	v.Normalize()

	store, err := timeline.Load(v.EditorState.Captions)
	if err != nil {
		return VideoProps{}, fmt.Errorf("failed to order captions: %w", err)
	}
	captions := store.List()
	for i := range captions {
		captions[i] = b.checkStyle(recordID, captions[i])
	}

	return VideoProps{
		Video: Video{
			Src:       v.EditorState.VideoSrc,
			MobileSrc: v.MobileVideoSrc,
			Duration:  v.EditorState.VideoDuration,
		},
		Captions:        captions,
		DarkMode:        v.Theme == models.ThemeDarkMode,
		SecondsPer100vh: v.SecondsPer100vh,
	}, nil
}

// checkStyle drops custom css that does not parse so the rest of the
// caption still renders
func (b *Builder) checkStyle(recordID string, r models.Region) models.Region {
	c, err := r.Caption()
	if err != nil || c.CustomCSS == "" {
		return r
	}
	if err := validateCSS(c.CustomCSS); err != nil {
		b.logger.WithRecordID(recordID).WithRegionID(string(r.ID)).WarnWithErr("omitting caption custom css", err)
		c.CustomCSS = ""
		if err := r.SetCaption(c); err != nil {
			return r
		}
	}
	return r
}

func karaokeProps(k models.Karaoke) (KaraokeProps, error) {
	k.Normalize()

	props := KaraokeProps{
		ComponentTheme: k.Theme,
		WebVTT:         k.WebVTT,
		QuoteBy:        k.QuoteBy,
	}
	if k.AudioURL != "" {
		props.AudioURLs = []string{k.AudioURL}
	}
	if k.WebVTT != "" {
		track, err := karaoke.NewTrack(k.WebVTT, k.CueIDs)
		if err != nil {
			return KaraokeProps{}, err
		}
		props.Cues = track.Cues()
		props.Duration = track.Duration()
	}
	return props, nil
}

func threeModelProps(m models.ThreeModel) (ThreeModelProps, error) {
	if err := m.Normalize(); err != nil {
		return ThreeModelProps{}, err
	}
	data := m.CameraHelperData

	store, err := timeline.Load(data.Pois)
	if err != nil {
		return ThreeModelProps{}, fmt.Errorf("failed to order points of interest: %w", err)
	}
	pois := store.List()
	for i := range pois {
		pois[i] = pois[i].WithoutImage()
	}

	props := ThreeModelProps{
		ModelObjs:     data.ModelObjs,
		Pois:          pois,
		AnimationClip: data.AnimationClip,
	}
	if len(props.ModelObjs) == 0 {
		props.ModelObjs = json.RawMessage("[]")
	}
	if len(props.AnimationClip) == 0 {
		props.AnimationClip = json.RawMessage("null")
	}
	return props, nil
}

func decode(rec models.Record, dst interface{}) error {
	if len(rec.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(rec.Data, dst); err != nil {
		return fmt.Errorf("failed to decode %s record %s: %w", rec.Kind, rec.ID, err)
	}
	return nil
}
