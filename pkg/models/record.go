package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// RecordKind identifies the CMS list a record belongs to
type RecordKind string

// RecordKind constants
const (
	RecordKindScrollableVideo RecordKind = "scrollable_video"
	RecordKindKaraoke         RecordKind = "karaoke"
	RecordKindThreeModel      RecordKind = "scrollable_three_model"
)

// Valid reports whether k is a known record kind
func (k RecordKind) Valid() bool {
	switch k {
	case RecordKindScrollableVideo, RecordKindKaraoke, RecordKindThreeModel:
		return true
	}
	return false
}

// Theme constants
const (
	ThemeDarkMode  = "dark_mode"
	ThemeLightMode = "light_mode"

	KaraokeThemeTwreporter = "twreporter"
	KaraokeThemeKids       = "kids"
)

// DefaultSecondsPer100vh is how many seconds of video one viewport height scrolls through
const DefaultSecondsPer100vh = 1.5

// Record is a CMS record as stored. Data holds the kind-specific body.
type Record struct {
	ID        string          `json:"id" db:"id"`
	Kind      RecordKind      `json:"kind" db:"kind"`
	Name      string          `json:"name" db:"name"`
	Data      json.RawMessage `json:"data" db:"data"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// ScrollableVideo is the body of a scrollable video record
type ScrollableVideo struct {
	VideoSrc        string      `json:"videoSrc"`
	MobileVideoSrc  string      `json:"mobileVideoSrc,omitempty"`
	Theme           string      `json:"theme,omitempty"`
	SecondsPer100vh float64     `json:"secondsPer100vh,omitempty"`
	EditorState     EditorState `json:"editorState"`
}

// Normalize fills defaults and copies the media source into the editor state
func (v *ScrollableVideo) Normalize() {
	if v.Theme == "" {
		v.Theme = ThemeLightMode
	}
	if v.SecondsPer100vh <= 0 {
		v.SecondsPer100vh = DefaultSecondsPer100vh
	}
	if v.VideoSrc != "" {
		v.EditorState.VideoSrc = v.VideoSrc
	}
}

// EditorState is the caption editor blob of a scrollable video
type EditorState struct {
	Captions      []Region
	VideoSrc      string
	VideoDuration float64
	Extra         map[string]json.RawMessage
}

const (
	keyCaptions      = "captions"
	keyVideoSrc      = "videoSrc"
	keyVideoDuration = "videoDuration"
)

// UnmarshalJSON implements json.Unmarshaler
func (e *EditorState) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return fmt.Errorf("failed to decode editor state: %w", err)
	}

	*e = EditorState{Captions: []Region{}}
	if v, ok := take(raw, keyCaptions); ok {
		if err := json.Unmarshal(v, &e.Captions); err != nil {
			return fmt.Errorf("failed to decode captions: %w", err)
		}
		if e.Captions == nil {
			e.Captions = []Region{}
		}
		for i := range e.Captions {
			e.Captions[i].Kind = RegionKindCaption
		}
	}
	if v, ok := take(raw, keyVideoSrc); ok {
		if err := json.Unmarshal(v, &e.VideoSrc); err != nil {
			return fmt.Errorf("failed to decode videoSrc: %w", err)
		}
	}
	if v, ok := take(raw, keyVideoDuration); ok {
		if err := json.Unmarshal(v, &e.VideoDuration); err != nil {
			return fmt.Errorf("failed to decode videoDuration: %w", err)
		}
	}
	e.Extra = raw
	return nil
}

// MarshalJSON implements json.Marshaler
func (e EditorState) MarshalJSON() ([]byte, error) {
	out := copyExtra(e.Extra)
	captions := e.Captions
	if captions == nil {
		captions = []Region{}
	}
	if err := put(out, keyCaptions, captions); err != nil {
		return nil, err
	}
	if err := put(out, keyVideoSrc, e.VideoSrc); err != nil {
		return nil, err
	}
	if err := put(out, keyVideoDuration, e.VideoDuration); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// Karaoke is the body of a karaoke record. CueIDs names the cues of WebVTT
// in order; it is written once the cues have been edited.
type Karaoke struct {
	WebVTT   string   `json:"webVtt"`
	CueIDs   []string `json:"cueIds,omitempty"`
	Quote    string   `json:"quote,omitempty"`
	QuoteBy  string   `json:"quoteBy,omitempty"`
	AudioURL string   `json:"audioUrl,omitempty"`
	MuteHint bool     `json:"muteHint"`
	Theme    string   `json:"theme,omitempty"`
}

// Normalize fills defaults
func (k *Karaoke) Normalize() {
	if k.Theme == "" {
		k.Theme = KaraokeThemeTwreporter
	}
}

// ThreeModel is the body of a scrollable 3D model record
type ThreeModel struct {
	ModelSrc         string           `json:"modelSrc"`
	CameraHelperData CameraHelperData `json:"cameraHelperData"`
}

// Normalize points the model objects at ModelSrc when it is set
func (m *ThreeModel) Normalize() error {
	if m.ModelSrc == "" {
		return nil
	}
	objs, err := json.Marshal([]map[string]string{{"url": m.ModelSrc}})
	if err != nil {
		return fmt.Errorf("failed to encode model objects: %w", err)
	}
	m.CameraHelperData.ModelObjs = objs
	return nil
}

// CameraHelperData is the camera path blob of a 3D model record
type CameraHelperData struct {
	ModelObjs     json.RawMessage
	Pois          []Region
	AnimationClip json.RawMessage
	Extra         map[string]json.RawMessage
}

const (
	keyModelObjs     = "modelObjs"
	keyPois          = "pois"
	keyAnimationClip = "animationClip"
)

// UnmarshalJSON implements json.Unmarshaler. Points of interest persisted
// without a startTime are placed at their index.
func (c *CameraHelperData) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return fmt.Errorf("failed to decode camera helper data: %w", err)
	}

	*c = CameraHelperData{Pois: []Region{}}
	if v, ok := take(raw, keyModelObjs); ok {
		c.ModelObjs = v
	}
	if v, ok := take(raw, keyAnimationClip); ok {
		c.AnimationClip = v
	}
	if v, ok := take(raw, keyPois); ok {
		var items []json.RawMessage
		if err := json.Unmarshal(v, &items); err != nil {
			return fmt.Errorf("failed to decode pois: %w", err)
		}
		for i, item := range items {
			var keys map[string]json.RawMessage
			if err := json.Unmarshal(item, &keys); err != nil {
				return fmt.Errorf("failed to decode poi %d: %w", i, err)
			}
			var poi Region
			if err := json.Unmarshal(item, &poi); err != nil {
				return fmt.Errorf("failed to decode poi %d: %w", i, err)
			}
			poi.Kind = RegionKindCameraPOI
			if _, ok := keys[keyStartTime]; !ok {
				poi.SetImplicitStart(float64(i))
			}
			c.Pois = append(c.Pois, poi)
		}
	}
	c.Extra = raw
	return nil
}

// MarshalJSON implements json.Marshaler
func (c CameraHelperData) MarshalJSON() ([]byte, error) {
	out := copyExtra(c.Extra)
	if len(c.ModelObjs) > 0 {
		out[keyModelObjs] = c.ModelObjs
	}
	pois := c.Pois
	if pois == nil {
		pois = []Region{}
	}
	if err := put(out, keyPois, pois); err != nil {
		return nil, err
	}
	if len(c.AnimationClip) > 0 {
		out[keyAnimationClip] = c.AnimationClip
	}
	return json.Marshal(out)
}

func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	raw := make(map[string]json.RawMessage)
	if string(data) == "null" {
		return raw, nil
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		raw = make(map[string]json.RawMessage)
	}
	return raw, nil
}

func take(raw map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	v, ok := raw[key]
	if ok {
		delete(raw, key)
	}
	return v, ok
}

func put(out map[string]json.RawMessage, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	out[key] = data
	return nil
}

func copyExtra(extra map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(extra)+3)
	for k, v := range extra {
		out[k] = v
	}
	return out
}
