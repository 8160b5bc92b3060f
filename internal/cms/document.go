package cms

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/therealutkarshpriyadarshi/scrolly/internal/camera"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/karaoke"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/logging"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/timeline"
	"github.com/therealutkarshpriyadarshi/scrolly/pkg/models"
)

// ErrUnknownKind is returned for records of a kind the service cannot edit
var ErrUnknownKind = errors.New("unknown record kind")

// ErrInvalidRecord is returned when a record body cannot be decoded
var ErrInvalidRecord = errors.New("invalid record")

const (
	keyEditorState      = "editorState"
	keyCameraHelperData = "cameraHelperData"
	keyWebVTT           = "webVtt"
	keyCueIDs           = "cueIds"
)

// Document is a record opened for editing: its regions live in a store
// driven by a marker editor. Methods are safe for concurrent use.
type Document struct {
	mu     sync.Mutex
	record models.Record
	kind   models.RegionKind
	raw    map[string]json.RawMessage
	video  models.ScrollableVideo
	model  models.ThreeModel
	song   models.Karaoke
	store  *timeline.Store
	editor *timeline.Editor
	// edited is set once a region changes; only then are ids written back
	// and the transcript rewritten
	edited bool
}

// NewDocument decodes rec and loads its regions
func NewDocument(rec models.Record, logger *logging.Logger) (*Document, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	d := &Document{record: rec, raw: make(map[string]json.RawMessage)}

	data := rec.Data
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("{}")
	}
	if err := json.Unmarshal(data, &d.raw); err != nil {
		return nil, fmt.Errorf("record %s: %v: %w", rec.ID, err, ErrInvalidRecord)
	}
	if d.raw == nil {
		d.raw = make(map[string]json.RawMessage)
	}

	var regions []models.Region
	switch rec.Kind {
	case models.RecordKindScrollableVideo:
		d.kind = models.RegionKindCaption
		if err := json.Unmarshal(data, &d.video); err != nil {
			return nil, fmt.Errorf("record %s: %v: %w", rec.ID, err, ErrInvalidRecord)
		}
		regions = d.video.EditorState.Captions
	case models.RecordKindThreeModel:
		d.kind = models.RegionKindCameraPOI
		if err := json.Unmarshal(data, &d.model); err != nil {
			return nil, fmt.Errorf("record %s: %v: %w", rec.ID, err, ErrInvalidRecord)
		}
		regions = d.model.CameraHelperData.Pois
	case models.RecordKindKaraoke:
		d.kind = models.RegionKindCue
		if err := json.Unmarshal(data, &d.song); err != nil {
			return nil, fmt.Errorf("record %s: %v: %w", rec.ID, err, ErrInvalidRecord)
		}
		if strings.TrimSpace(d.song.WebVTT) != "" {
			cues, err := karaoke.ParseCues(strings.NewReader(d.song.WebVTT))
			if err != nil {
				return nil, fmt.Errorf("record %s: %v: %w", rec.ID, err, ErrInvalidRecord)
			}
			if len(d.song.CueIDs) > 0 && !karaoke.AssignIDs(cues, d.song.CueIDs) {
				logger.WithRecordID(rec.ID).Warnf("ignoring %d cue ids for %d cues", len(d.song.CueIDs), len(cues))
			}
			regions = cues
		}
	default:
		return nil, fmt.Errorf("%q: %w", rec.Kind, ErrUnknownKind)
	}

	store, err := timeline.Load(regions)
	if err != nil {
		return nil, fmt.Errorf("failed to load regions of record %s: %w", rec.ID, err)
	}
	d.store = store
	d.editor = timeline.NewEditor(store, logger.WithRecordID(rec.ID))
	return d, nil
}

// ID returns the record id
func (d *Document) ID() string {
	return d.record.ID
}

// Kind returns the record kind
func (d *Document) Kind() models.RecordKind {
	return d.record.Kind
}

// RegionKind returns the kind of region the record carries
func (d *Document) RegionKind() models.RegionKind {
	return d.kind
}

// Regions returns the regions in order
func (d *Document) Regions() []models.Region {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.store.List()
}

// Duration returns the content axis length known from the record, or 0
func (d *Document) Duration() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.duration()
}

func (d *Document) duration() float64 {
	regions := d.store.List()
	switch d.record.Kind {
	case models.RecordKindScrollableVideo:
		return d.video.EditorState.VideoDuration
	case models.RecordKindThreeModel:
		path, err := camera.NewPath(regions)
		if err != nil {
			return 0
		}
		return path.Duration()
	case models.RecordKindKaraoke:
		var end float64
		for _, r := range regions {
			if e, ok := r.EndTime(); ok && e > end {
				end = e
			}
		}
		return end
	}
	return 0
}

// Insert adds a region. An empty kind takes the record's region kind.
func (d *Document) Insert(r models.Region) (models.Region, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if r.Kind == "" {
		r.Kind = d.kind
	}
	if r.Kind != d.kind {
		return models.Region{}, fmt.Errorf("%s region in %s record: %w", r.Kind, d.record.Kind, timeline.ErrInvalidRegion)
	}
	inserted, err := d.store.Insert(r)
	if err != nil {
		return models.Region{}, err
	}
	d.edited = true
	return inserted, nil
}

// AddAt inserts an empty region at the clock's current time
func (d *Document) AddAt(clock timeline.Clock) (models.Region, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, err := d.editor.AddAtCurrentTime(clock, d.kind)
	if err != nil {
		return models.Region{}, err
	}
	d.edited = true
	return r, nil
}

// Patch edits a region through the marker editor
func (d *Document) Patch(id models.RegionID, p timeline.Patch) (models.Region, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.editor.Activate(id); err != nil {
		return models.Region{}, err
	}
	if err := d.editor.BeginEdit(id); err != nil {
		return models.Region{}, err
	}
	r, err := d.editor.ConfirmEdit(id, p)
	if err != nil {
		_ = d.editor.Cancel(id)
		return models.Region{}, err
	}
	d.edited = true
	return r, nil
}

// Remove deletes a region through the marker editor
func (d *Document) Remove(id models.RegionID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.editor.Activate(id); err != nil {
		return err
	}
	if err := d.editor.BeginDelete(id); err != nil {
		return err
	}
	if err := d.editor.ConfirmDelete(id); err != nil {
		return err
	}
	d.edited = true
	return nil
}

// Edited reports whether a region has changed since the record was opened
func (d *Document) Edited() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.edited
}

// Resolve returns the region active at t. Index is -1 when none is.
func (d *Document) Resolve(t, fallbackDuration float64) (int, models.Region, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	duration := d.duration()
	if duration <= 0 {
		duration = fallbackDuration
	}
	regions := d.store.List()
	i := timeline.ResolveIndex(regions, t, duration)
	if i < 0 {
		return -1, models.Region{}, false
	}
	return i, regions[i], true
}

// Encode writes the regions back into the record body. Keys the document
// does not own are carried over untouched. After an edit, ids assigned at
// load are persisted; a karaoke transcript is only rewritten after an edit.
func (d *Document) Encode() (models.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[string]json.RawMessage, len(d.raw)+2)
	for k, v := range d.raw {
		out[k] = v
	}

	if d.edited {
		d.store.PersistIDs()
	}
	regions := d.store.List()
	var (
		key  string
		blob interface{}
	)
	switch d.record.Kind {
	case models.RecordKindScrollableVideo:
		d.video.EditorState.Captions = regions
		d.video.Normalize()
		key, blob = keyEditorState, d.video.EditorState
	case models.RecordKindThreeModel:
		d.model.CameraHelperData.Pois = regions
		if err := d.model.Normalize(); err != nil {
			return models.Record{}, err
		}
		key, blob = keyCameraHelperData, d.model.CameraHelperData
	case models.RecordKindKaraoke:
		if !d.edited {
			rec := d.record
			if len(bytes.TrimSpace(rec.Data)) == 0 {
				rec.Data = json.RawMessage("{}")
			}
			return rec, nil
		}
		var buf bytes.Buffer
		if err := karaoke.WriteWebVTT(&buf, regions); err != nil {
			return models.Record{}, err
		}
		d.song.WebVTT = buf.String()
		d.song.CueIDs = karaoke.CueIDs(regions)

		ids, err := json.Marshal(d.song.CueIDs)
		if err != nil {
			return models.Record{}, fmt.Errorf("failed to encode %s: %w", keyCueIDs, err)
		}
		out[keyCueIDs] = ids
		key, blob = keyWebVTT, d.song.WebVTT
	}

	encoded, err := json.Marshal(blob)
	if err != nil {
		return models.Record{}, fmt.Errorf("failed to encode %s: %w", key, err)
	}
	out[key] = encoded

	data, err := json.Marshal(out)
	if err != nil {
		return models.Record{}, fmt.Errorf("failed to encode record %s: %w", d.record.ID, err)
	}

	rec := d.record
	rec.Data = data
	return rec, nil
}
