// Package cms opens CMS records for region editing, saves them back and
// announces saves to downstream publishers.
package cms

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/therealutkarshpriyadarshi/scrolly/internal/embed"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/logging"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/metrics"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/playback"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/timeline"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/tracing"
	"github.com/therealutkarshpriyadarshi/scrolly/pkg/models"
)

// Repository persists records
type Repository interface {
	CreateRecord(ctx context.Context, record *models.Record) error
	GetRecord(ctx context.Context, id string) (*models.Record, error)
	UpdateRecord(ctx context.Context, record *models.Record) error
	ListRecords(ctx context.Context, kind models.RecordKind, limit, offset int) ([]*models.Record, error)
	DeleteRecord(ctx context.Context, id string) error
}

// Cache holds recently read records. GetRecord returns nil, nil on a miss.
type Cache interface {
	GetRecord(ctx context.Context, id string) (*models.Record, error)
	SetRecord(ctx context.Context, record *models.Record, ttl time.Duration) error
	DeleteRecord(ctx context.Context, id string) error
}

// Publisher announces saved records
type Publisher interface {
	PublishRecordSaved(ctx context.Context, event *models.RecordSavedEvent) error
}

// ErrBusy is returned when a record stays locked by another writer
var ErrBusy = errors.New("record is being edited")

const (
	editLockTTL   = 10 * time.Second
	editLockWait  = 5 * time.Second
	editLockRetry = 25 * time.Millisecond
)

// Locker serializes region edits of one record across API instances
type Locker interface {
	AcquireLock(ctx context.Context, resource string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, resource string) error
}

// Options tunes a Service
type Options struct {
	DefaultDuration float64
	RecordTTL       time.Duration
	// MuteStore backs shared audio sessions; nil keeps them in memory
	MuteStore playback.MuteStore
	// Locks serializes region edits; nil serializes them within the process
	Locks Locker
}

// Resolution is the region active at a time
type Resolution struct {
	Time   float64        `json:"time"`
	Index  int            `json:"index"`
	Region *models.Region `json:"region"`
}

// Service edits records. Cache and Publisher are optional.
type Service struct {
	repo      Repository
	cache     Cache
	publisher Publisher
	builder   *embed.Builder
	opts      Options
	logger    *logging.Logger
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*playback.AudioSession

	editMu sync.Mutex
}

// NewService creates a record service
func NewService(repo Repository, cache Cache, publisher Publisher, opts Options, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if opts.MuteStore == nil {
		opts.MuteStore = playback.NewMemoryMuteStore()
	}
	return &Service{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		builder:   embed.NewBuilder(logger),
		opts:      opts,
		logger:    logger,
		now:       time.Now,
		sessions:  make(map[string]*playback.AudioSession),
	}
}

// Records

// Create validates and stores a new record
func (s *Service) Create(ctx context.Context, rec *models.Record) (*models.Record, error) {
	span, ctx := tracing.StartSpan(ctx, "cms.create")
	defer tracing.FinishSpan(span)
	tracing.SetTag(span, "kind", string(rec.Kind))

	normalized, err := s.normalize(*rec)
	if err != nil {
		tracing.LogError(span, err)
		return nil, err
	}
	if err := s.repo.CreateRecord(ctx, &normalized); err != nil {
		tracing.LogError(span, err)
		return nil, err
	}

	s.logger.LogRecordEvent(normalized.ID, "created", nil)
	s.cacheRecord(ctx, &normalized)
	s.announce(ctx, &normalized)
	return &normalized, nil
}

// Get returns a record, reading through the cache
func (s *Service) Get(ctx context.Context, id string) (*models.Record, error) {
	if s.cache != nil {
		cached, err := s.cache.GetRecord(ctx, id)
		if err != nil {
			s.logger.WithRecordID(id).WarnWithErr("failed to read record cache", err)
		}
		if cached != nil {
			return cached, nil
		}
	}

	rec, err := s.repo.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheRecord(ctx, rec)
	return rec, nil
}

// List returns records newest first. An empty kind lists every kind.
func (s *Service) List(ctx context.Context, kind models.RecordKind, limit, offset int) ([]*models.Record, error) {
	if kind != "" && !kind.Valid() {
		return nil, fmt.Errorf("%q: %w", kind, ErrUnknownKind)
	}
	return s.repo.ListRecords(ctx, kind, limit, offset)
}

// Update replaces a record's name and body
func (s *Service) Update(ctx context.Context, rec *models.Record) (*models.Record, error) {
	span, ctx := tracing.StartSpan(ctx, "cms.update")
	defer tracing.FinishSpan(span)
	tracing.SetTag(span, "record_id", rec.ID)

	current, err := s.Get(ctx, rec.ID)
	if err != nil {
		tracing.LogError(span, err)
		return nil, err
	}

	next := *current
	next.Name = rec.Name
	next.Data = rec.Data
	normalized, err := s.normalize(next)
	if err != nil {
		tracing.LogError(span, err)
		return nil, err
	}
	if err := s.write(ctx, &normalized); err != nil {
		tracing.LogError(span, err)
		return nil, err
	}
	return &normalized, nil
}

// Delete removes a record
func (s *Service) Delete(ctx context.Context, id string) error {
	span, ctx := tracing.StartSpan(ctx, "cms.delete")
	defer tracing.FinishSpan(span)
	tracing.SetTag(span, "record_id", id)

	if err := s.repo.DeleteRecord(ctx, id); err != nil {
		tracing.LogError(span, err)
		return err
	}
	s.evict(ctx, id)
	s.logger.LogRecordEvent(id, "deleted", nil)
	return nil
}

// Documents

// Open loads a record for editing
func (s *Service) Open(ctx context.Context, id string) (*Document, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewDocument(*rec, s.logger)
}

// Save writes an edited document back
func (s *Service) Save(ctx context.Context, doc *Document) (*models.Record, error) {
	span, ctx := tracing.StartSpan(ctx, "cms.save")
	defer tracing.FinishSpan(span)
	tracing.SetTag(span, "record_id", doc.ID())

	rec, err := doc.Encode()
	if err != nil {
		tracing.LogError(span, err)
		return nil, err
	}
	if err := s.write(ctx, &rec); err != nil {
		tracing.LogError(span, err)
		return nil, err
	}
	return &rec, nil
}

// Regions returns the ordered regions of a record
func (s *Service) Regions(ctx context.Context, id string) ([]models.Region, error) {
	doc, err := s.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc.Regions(), nil
}

// InsertRegion adds a region to a record and saves it
func (s *Service) InsertRegion(ctx context.Context, id string, r models.Region) (models.Region, error) {
	var inserted models.Region
	err := s.mutate(ctx, id, "insert", func(doc *Document) error {
		var err error
		inserted, err = doc.Insert(r)
		return err
	})
	return inserted, err
}

// PatchRegion edits a region of a record and saves it
func (s *Service) PatchRegion(ctx context.Context, id string, regionID models.RegionID, p timeline.Patch) (models.Region, error) {
	var patched models.Region
	err := s.mutate(ctx, id, "update", func(doc *Document) error {
		var err error
		patched, err = doc.Patch(regionID, p)
		return err
	})
	return patched, err
}

// RemoveRegion deletes a region of a record and saves it
func (s *Service) RemoveRegion(ctx context.Context, id string, regionID models.RegionID) error {
	return s.mutate(ctx, id, "remove", func(doc *Document) error {
		return doc.Remove(regionID)
	})
}

// Resolve returns the region of a record active at t
func (s *Service) Resolve(ctx context.Context, id string, t float64) (*Resolution, error) {
	doc, err := s.Open(ctx, id)
	if err != nil {
		return nil, err
	}

	res := &Resolution{Time: t, Index: -1}
	if i, r, ok := doc.Resolve(t, s.opts.DefaultDuration); ok {
		res.Index = i
		res.Region = &r
	}
	return res, nil
}

// Map returns the content time reached at progress through a record
func (s *Service) Map(ctx context.Context, id string, progress float64) (float64, error) {
	doc, err := s.Open(ctx, id)
	if err != nil {
		return 0, err
	}
	duration := doc.Duration()
	if duration <= 0 {
		duration = s.opts.DefaultDuration
	}
	return timeline.MapProgress(progress, duration), nil
}

// Embed builds the embed payload of a record
func (s *Service) Embed(ctx context.Context, id string) (*embed.Payload, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.builder.Build(*rec)
}

// Sessions

// Session returns the shared audio session with the given id
func (s *Service) Session(id string) *playback.AudioSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		session = playback.NewAudioSession(id, s.opts.MuteStore, s.logger)
		s.sessions[id] = session
	}
	return session
}

// Muted reports the shared muted flag of a session
func (s *Service) Muted(ctx context.Context, sessionID string) bool {
	return s.Session(sessionID).Muted(ctx)
}

// SetMuted writes the shared muted flag of a session
func (s *Service) SetMuted(ctx context.Context, sessionID string, muted bool) error {
	if err := s.Session(sessionID).SetMuted(ctx, muted); err != nil {
		return fmt.Errorf("failed to set muted flag: %w", err)
	}
	return nil
}

// mutate runs fn against the stored record under the record's edit lock
// and saves the result. The record is read from the repository, not the
// cache, so a stale cache entry cannot undo an earlier edit.
func (s *Service) mutate(ctx context.Context, id, op string, fn func(*Document) error) error {
	span, ctx := tracing.StartSpan(ctx, "cms.region."+op)
	defer tracing.FinishSpan(span)
	tracing.SetTag(span, "record_id", id)

	unlock, err := s.lock(ctx, id)
	if err != nil {
		tracing.LogError(span, err)
		return err
	}
	defer unlock()

	rec, err := s.repo.GetRecord(ctx, id)
	if err != nil {
		tracing.LogError(span, err)
		return err
	}
	doc, err := NewDocument(*rec, s.logger)
	if err != nil {
		tracing.LogError(span, err)
		return err
	}

	err = fn(doc)
	metrics.RecordRegionMutation(op, err)
	if err != nil {
		tracing.LogError(span, err)
		return err
	}

	if _, err := s.Save(ctx, doc); err != nil {
		return err
	}
	metrics.RecordRegionsPerRecord(len(doc.Regions()))
	return nil
}

func (s *Service) lock(ctx context.Context, id string) (func(), error) {
	if s.opts.Locks == nil {
		s.editMu.Lock()
		return s.editMu.Unlock, nil
	}

	resource := "edit:" + id
	deadline := time.NewTimer(editLockWait)
	defer deadline.Stop()

	for {
		acquired, err := s.opts.Locks.AcquireLock(ctx, resource, editLockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire edit lock: %w", err)
		}
		if acquired {
			return func() {
				if err := s.opts.Locks.ReleaseLock(context.Background(), resource); err != nil {
					s.logger.WithRecordID(id).WarnWithErr("failed to release edit lock", err)
				}
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("record %s: %w", id, ErrBusy)
		case <-deadline.C:
			return nil, fmt.Errorf("record %s: %w", id, ErrBusy)
		case <-time.After(editLockRetry):
		}
	}
}

func (s *Service) normalize(rec models.Record) (models.Record, error) {
	if !rec.Kind.Valid() {
		return models.Record{}, fmt.Errorf("%q: %w", rec.Kind, ErrUnknownKind)
	}
	doc, err := NewDocument(rec, s.logger)
	if err != nil {
		return models.Record{}, err
	}
	return doc.Encode()
}

func (s *Service) write(ctx context.Context, rec *models.Record) error {
	if err := s.repo.UpdateRecord(ctx, rec); err != nil {
		return err
	}
	s.logger.LogRecordEvent(rec.ID, "saved", nil)
	s.cacheRecord(ctx, rec)
	s.announce(ctx, rec)
	return nil
}

func (s *Service) cacheRecord(ctx context.Context, rec *models.Record) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetRecord(ctx, rec, s.opts.RecordTTL); err != nil {
		s.logger.WithRecordID(rec.ID).WarnWithErr("failed to cache record", err)
	}
}

func (s *Service) evict(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteRecord(ctx, id); err != nil {
		s.logger.WithRecordID(id).WarnWithErr("failed to evict record", err)
	}
}

// announce publishes a save event. The record is already stored, so a
// failed publish is logged and counted rather than returned.
func (s *Service) announce(ctx context.Context, rec *models.Record) {
	if s.publisher == nil {
		return
	}
	event := &models.RecordSavedEvent{RecordID: rec.ID, Kind: rec.Kind, SavedAt: s.now().UTC()}
	if err := s.publisher.PublishRecordSaved(ctx, event); err != nil {
		metrics.RecordError("cms", "publish")
		s.logger.WithRecordID(rec.ID).WarnWithErr("failed to publish record saved event", err)
	}
}

