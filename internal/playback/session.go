package playback

import (
	"context"
	"errors"
	"sync"

	"github.com/therealutkarshpriyadarshi/scrolly/internal/logging"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/metrics"
)

// MuteStore persists the shared muted flag of an audio session
type MuteStore interface {
	// GetMuted reports the flag and whether it has been set
	GetMuted(ctx context.Context, sessionID string) (muted bool, ok bool, err error)
	SetMuted(ctx context.Context, sessionID string, muted bool) error
}

// MemoryMuteStore keeps muted flags for the lifetime of the process
type MemoryMuteStore struct {
	mu     sync.RWMutex
	values map[string]bool
}

// NewMemoryMuteStore creates an empty in-memory store
func NewMemoryMuteStore() *MemoryMuteStore {
	return &MemoryMuteStore{values: make(map[string]bool)}
}

// GetMuted implements MuteStore
func (m *MemoryMuteStore) GetMuted(_ context.Context, sessionID string) (bool, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[sessionID]
	return v, ok, nil
}

// SetMuted implements MuteStore
func (m *MemoryMuteStore) SetMuted(_ context.Context, sessionID string, muted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[sessionID] = muted
	return nil
}

// AudioSession is the sound on/off state shared by every player on a page.
// Players are registered with the session so that the first user
// interaction can unlock playback for all of them.
type AudioSession struct {
	id     string
	store  MuteStore
	logger *logging.Logger

	mu      sync.Mutex
	subs    map[int]func(bool)
	nextSub int
	members []*member
}

type member struct {
	media  Media
	played bool
}

// NewAudioSession creates a session backed by store. A nil store keeps the
// flag in memory.
func NewAudioSession(id string, store MuteStore, logger *logging.Logger) *AudioSession {
	if store == nil {
		store = NewMemoryMuteStore()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &AudioSession{
		id:     id,
		store:  store,
		logger: logger.WithSessionID(id),
		subs:   make(map[int]func(bool)),
	}
}

// ID returns the session identifier
func (s *AudioSession) ID() string {
	return s.id
}

// Muted returns the shared flag. An unset flag is initialised to true.
// Store failures are logged and read as muted.
func (s *AudioSession) Muted(ctx context.Context) bool {
	muted, ok, err := s.store.GetMuted(ctx, s.id)
	if err != nil {
		s.logger.WarnWithErr("failed to read muted flag", err)
		return true
	}
	if ok {
		return muted
	}
	if err := s.store.SetMuted(ctx, s.id, true); err != nil {
		s.logger.WarnWithErr("failed to initialise muted flag", err)
	}
	return true
}

// SetMuted writes the shared flag, applies it to registered media and
// notifies subscribers.
func (s *AudioSession) SetMuted(ctx context.Context, muted bool) error {
	if err := s.store.SetMuted(ctx, s.id, muted); err != nil {
		return err
	}
	metrics.RecordMuteToggle(muted)

	s.mu.Lock()
	subs := make([]func(bool), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	media := make([]Media, 0, len(s.members))
	for _, m := range s.members {
		media = append(media, m.media)
	}
	s.mu.Unlock()

	for _, m := range media {
		if mu, ok := m.(Muter); ok {
			mu.SetMuted(muted)
		}
	}
	for _, fn := range subs {
		fn(muted)
	}
	return nil
}

// Subscribe registers fn to be called after every SetMuted. The returned
// function removes the subscription.
func (s *AudioSession) Subscribe(fn func(muted bool)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Register adds a player to the session. The returned function removes it.
func (s *AudioSession) Register(m Media) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.members {
		if existing.media == m {
			return func() { s.unregister(m) }
		}
	}
	s.members = append(s.members, &member{media: m})
	return func() { s.unregister(m) }
}

// MarkPlayed records that m has played, so unlocking skips it
func (s *AudioSession) MarkPlayed(m Media) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.members {
		if existing.media == m {
			existing.played = true
		}
	}
}

// UnlockPlayback plays and immediately pauses every registered player that
// has not played yet. Failures are logged and otherwise ignored; a player is
// attempted at most once. It returns the number of players that unlocked.
func (s *AudioSession) UnlockPlayback(ctx context.Context) int {
	s.mu.Lock()
	var pending []*member
	for _, m := range s.members {
		if !m.played {
			m.played = true
			pending = append(pending, m)
		}
	}
	s.mu.Unlock()

	unlocked := 0
	for _, m := range pending {
		err := m.media.Play(ctx)
		m.media.Pause()

		switch {
		case err == nil:
			unlocked++
			metrics.RecordAutoplayUnlock("unlocked")
		case errors.Is(err, ErrPlaybackPermissionDenied):
			metrics.RecordAutoplayUnlock("denied")
			s.logger.WarnWithErr("autoplay unlock refused", err)
		default:
			metrics.RecordAutoplayUnlock("failed")
			s.logger.WarnWithErr("autoplay unlock failed", err)
		}
	}
	return unlocked
}

// Members returns the number of registered players
func (s *AudioSession) Members() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members)
}

func (s *AudioSession) unregister(m Media) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.members {
		if existing.media == m {
			s.members = append(s.members[:i], s.members[i+1:]...)
			return
		}
	}
}
