package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// RegionKind tags the payload carried by a region
type RegionKind string

// RegionKind constants
const (
	RegionKindCaption   RegionKind = "caption"
	RegionKindCameraPOI RegionKind = "camera_poi"
	RegionKindCue       RegionKind = "cue"
)

// RegionID is the opaque identifier of a region
type RegionID string

// Region is a timed point on a content axis bound to authored content.
//
// Fields holds every persisted key other than id and startTime, so keys the
// engine does not understand are written back untouched.
type Region struct {
	ID        RegionID
	StartTime float64
	Kind      RegionKind
	Fields    map[string]json.RawMessage

	numericID     bool
	transientID   bool
	implicitStart *float64
}

const (
	keyID        = "id"
	keyStartTime = "startTime"
)

// NewRegion creates a region with an empty payload
func NewRegion(id RegionID, startTime float64, kind RegionKind) Region {
	return Region{
		ID:        id,
		StartTime: startTime,
		Kind:      kind,
		Fields:    make(map[string]json.RawMessage),
	}
}

// Clone returns a deep copy of the region
func (r Region) Clone() Region {
	out := r
	if r.Fields != nil {
		out.Fields = make(map[string]json.RawMessage, len(r.Fields))
		for k, v := range r.Fields {
			out.Fields[k] = append(json.RawMessage(nil), v...)
		}
	}
	if r.implicitStart != nil {
		v := *r.implicitStart
		out.implicitStart = &v
	}
	return out
}

// SetImplicitStart marks StartTime as derived rather than persisted. The
// startTime key is omitted on save while StartTime still equals v.
func (r *Region) SetImplicitStart(v float64) {
	r.StartTime = v
	r.implicitStart = &v
}

// AssignTransientID gives an unidentified region an id for the lifetime of
// an editing session. The id is not written back on save.
func (r *Region) AssignTransientID(id RegionID) {
	r.ID = id
	r.transientID = true
	r.numericID = false
}

// HasTransientID reports whether the id is dropped on save
func (r Region) HasTransientID() bool {
	return r.transientID
}

// PersistID makes a transient id part of the saved region
func (r *Region) PersistID() {
	r.transientID = false
}

// Field decodes a single payload field into dst. It reports false when the
// field is absent.
func (r Region) Field(key string, dst interface{}) (bool, error) {
	raw, ok := r.Fields[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("failed to decode field %s: %w", key, err)
	}
	return true, nil
}

// SetField encodes v into the payload under key
func (r *Region) SetField(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode field %s: %w", key, err)
	}
	if r.Fields == nil {
		r.Fields = make(map[string]json.RawMessage)
	}
	r.Fields[key] = data
	return nil
}

// UnmarshalJSON implements json.Unmarshaler
func (r *Region) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode region: %w", err)
	}

	kind := r.Kind
	*r = Region{Kind: kind, Fields: make(map[string]json.RawMessage, len(raw))}

	if idRaw, ok := raw[keyID]; ok {
		delete(raw, keyID)
		idRaw = bytes.TrimSpace(idRaw)
		switch {
		case len(idRaw) > 0 && idRaw[0] == '"':
			var s string
			if err := json.Unmarshal(idRaw, &s); err != nil {
				return fmt.Errorf("failed to decode region id: %w", err)
			}
			r.ID = RegionID(s)
		case bytes.Equal(idRaw, []byte("null")):
		default:
			var n json.Number
			if err := json.Unmarshal(idRaw, &n); err != nil {
				return fmt.Errorf("failed to decode region id: %w", err)
			}
			r.ID = RegionID(n.String())
			r.numericID = true
		}
	}

	if startRaw, ok := raw[keyStartTime]; ok {
		delete(raw, keyStartTime)
		if err := json.Unmarshal(startRaw, &r.StartTime); err != nil {
			return fmt.Errorf("failed to decode region startTime: %w", err)
		}
	}

	for k, v := range raw {
		r.Fields[k] = v
	}
	return nil
}

// MarshalJSON implements json.Marshaler. Keys are written as id, startTime,
// then the remaining fields in lexical order.
func (r Region) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	writeKey := func(k string) {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		kb, _ := json.Marshal(k)
		buf.Write(kb)
		buf.WriteByte(':')
	}

	if r.ID != "" && !r.transientID {
		writeKey(keyID)
		if r.numericID && isJSONNumber(string(r.ID)) {
			buf.WriteString(string(r.ID))
		} else {
			idb, _ := json.Marshal(string(r.ID))
			buf.Write(idb)
		}
	}

	if r.implicitStart == nil || *r.implicitStart != r.StartTime {
		writeKey(keyStartTime)
		sb, err := json.Marshal(r.StartTime)
		if err != nil {
			return nil, fmt.Errorf("failed to encode region startTime: %w", err)
		}
		buf.Write(sb)
	}

	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		if k == keyID || k == keyStartTime {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		writeKey(k)
		v := r.Fields[k]
		if len(v) == 0 {
			buf.WriteString("null")
			continue
		}
		if err := json.Compact(&buf, v); err != nil {
			return nil, fmt.Errorf("failed to encode field %s: %w", k, err)
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func isJSONNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil && json.Valid([]byte(s))
}

// Caption payload keys
const (
	fieldRawContentState = "rawContentState"
	fieldAlignment       = "alignment"
	fieldWidth           = "width"
	fieldCustomCSS       = "customCss"
)

// CaptionData is the payload of a caption region
type CaptionData struct {
	RawContentState json.RawMessage `json:"rawContentState,omitempty"`
	Alignment       string          `json:"alignment,omitempty"`
	Width           string          `json:"width,omitempty"`
	CustomCSS       string          `json:"customCss,omitempty"`
}

// Caption alignment values
const (
	AlignmentLeft   = "left"
	AlignmentCenter = "center"
	AlignmentRight  = "right"
)

// Caption decodes the caption payload
func (r Region) Caption() (CaptionData, error) {
	var c CaptionData
	if _, err := r.Field(fieldRawContentState, &c.RawContentState); err != nil {
		return c, err
	}
	if _, err := r.Field(fieldAlignment, &c.Alignment); err != nil {
		return c, err
	}
	if _, err := r.Field(fieldWidth, &c.Width); err != nil {
		return c, err
	}
	if _, err := r.Field(fieldCustomCSS, &c.CustomCSS); err != nil {
		return c, err
	}
	return c, nil
}

// SetCaption writes the caption payload. Empty members are removed.
func (r *Region) SetCaption(c CaptionData) error {
	r.Kind = RegionKindCaption
	if len(c.RawContentState) > 0 {
		if !json.Valid(c.RawContentState) {
			return fmt.Errorf("invalid rawContentState")
		}
		r.setRaw(fieldRawContentState, c.RawContentState)
	} else {
		delete(r.Fields, fieldRawContentState)
	}
	for key, val := range map[string]string{
		fieldAlignment: c.Alignment,
		fieldWidth:     c.Width,
		fieldCustomCSS: c.CustomCSS,
	} {
		if val == "" {
			delete(r.Fields, key)
			continue
		}
		if err := r.SetField(key, val); err != nil {
			return err
		}
	}
	return nil
}

func (r *Region) setRaw(key string, v json.RawMessage) {
	if r.Fields == nil {
		r.Fields = make(map[string]json.RawMessage)
	}
	r.Fields[key] = append(json.RawMessage(nil), v...)
}

// Camera payload keys
const (
	fieldPosition   = "position"
	fieldQuaternion = "quaternion"
	fieldDuration   = "duration"
	fieldEase       = "ease"
	fieldImage      = "image"
)

// CameraData is the payload of a camera point of interest
type CameraData struct {
	Position   [3]float64 `json:"position"`
	Quaternion [4]float64 `json:"quaternion"`
	Duration   float64    `json:"duration"`
	Ease       string     `json:"ease"`
}

// Camera decodes the camera payload. A missing quaternion defaults to identity.
func (r Region) Camera() (CameraData, error) {
	c := CameraData{Quaternion: [4]float64{0, 0, 0, 1}}
	if _, err := r.Field(fieldPosition, &c.Position); err != nil {
		return c, err
	}
	if _, err := r.Field(fieldQuaternion, &c.Quaternion); err != nil {
		return c, err
	}
	if _, err := r.Field(fieldDuration, &c.Duration); err != nil {
		return c, err
	}
	if _, err := r.Field(fieldEase, &c.Ease); err != nil {
		return c, err
	}
	return c, nil
}

// SetCamera writes the camera payload
func (r *Region) SetCamera(c CameraData) error {
	r.Kind = RegionKindCameraPOI
	if err := r.SetField(fieldPosition, c.Position); err != nil {
		return err
	}
	if err := r.SetField(fieldQuaternion, c.Quaternion); err != nil {
		return err
	}
	if err := r.SetField(fieldDuration, c.Duration); err != nil {
		return err
	}
	if c.Ease == "" {
		delete(r.Fields, fieldEase)
		return nil
	}
	return r.SetField(fieldEase, c.Ease)
}

// WithoutImage returns a copy of a camera region with its preview image removed
func (r Region) WithoutImage() Region {
	out := r.Clone()
	delete(out.Fields, fieldImage)
	return out
}

// Cue payload keys
const (
	fieldText    = "text"
	fieldEndTime = "endTime"
)

// CueData is the payload of a karaoke cue
type CueData struct {
	Text    string  `json:"text"`
	EndTime float64 `json:"endTime"`
}

// Cue decodes the cue payload
func (r Region) Cue() (CueData, error) {
	var c CueData
	if _, err := r.Field(fieldText, &c.Text); err != nil {
		return c, err
	}
	if _, err := r.Field(fieldEndTime, &c.EndTime); err != nil {
		return c, err
	}
	return c, nil
}

// SetCue writes the cue payload
func (r *Region) SetCue(c CueData) error {
	r.Kind = RegionKindCue
	if err := r.SetField(fieldText, c.Text); err != nil {
		return err
	}
	return r.SetField(fieldEndTime, c.EndTime)
}

// EndTime returns the explicit end of a region, if its payload carries one
func (r Region) EndTime() (float64, bool) {
	var end float64
	ok, err := r.Field(fieldEndTime, &end)
	if !ok || err != nil {
		return 0, false
	}
	return end, true
}
