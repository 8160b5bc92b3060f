package playback

import (
	"context"
	"time"

	"github.com/therealutkarshpriyadarshi/scrolly/internal/logging"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/metrics"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/timeline"
	"github.com/therealutkarshpriyadarshi/scrolly/pkg/models"
)

// DefaultDebounce is the quiescence window for resize and scroll bursts
const DefaultDebounce = 300 * time.Millisecond

// Config tunes a Synchronizer
type Config struct {
	ResizeDebounce      time.Duration
	ProgressDebounce    time.Duration
	FrameInterval       time.Duration
	VisibilityThreshold float64
}

// DefaultConfig returns the default tuning
func DefaultConfig() Config {
	return Config{
		ResizeDebounce:   DefaultDebounce,
		ProgressDebounce: DefaultDebounce,
		FrameInterval:    DefaultFrameInterval,
	}
}

// RegionLister provides the ordered regions to resolve against
type RegionLister interface {
	List() []models.Region
}

// ActiveChange describes a change of the active region. Index is -1 and
// OK false when no region is active.
type ActiveChange struct {
	Index  int
	Region models.Region
	OK     bool
	Time   float64
}

// Options wires a Synchronizer to its collaborators. All fields are optional.
type Options struct {
	Session        *AudioSession
	Logger         *logging.Logger
	OnActiveChange func(ActiveChange)
	OnResize       func(width, height int)
	OnFrame        func(currentTime float64)
}

// Synchronizer keeps one media element at the time mapped from driver
// progress, and reports which region is active at that time.
//
// Handle* methods are not safe for concurrent use; Run calls them from a
// single goroutine.
type Synchronizer struct {
	media   Media
	regions RegionLister
	cfg     Config
	opts    Options
	session *AudioSession
	logger  *logging.Logger

	duration float64
	ready    bool

	pending    bool
	pendingP   float64
	lastP      float64
	target     float64
	active     int
	activeID   models.RegionID
	visible    bool
	mutedSeen  bool
	interacted bool

	unregister func()
	resize     *Debouncer
	progress   *Debouncer
	frames     *FrameLoop
	lastWidth  int
	lastHeight int
}

// NewSynchronizer creates a synchronizer for media resolving against
// regions. When the media already reports a duration the axis is ready
// immediately.
func NewSynchronizer(media Media, regions RegionLister, cfg Config, opts Options) *Synchronizer {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	session := opts.Session
	if session == nil {
		session = NewAudioSession("", nil, logger)
	}

	s := &Synchronizer{
		media:    media,
		regions:  regions,
		cfg:      cfg,
		opts:     opts,
		session:  session,
		logger:   logger,
		active:   -1,
		resize:   NewDebouncer(cfg.ResizeDebounce),
		progress: NewDebouncer(cfg.ProgressDebounce),
	}
	s.unregister = session.Register(media)

	if d := media.Duration(); validDuration(d) {
		s.duration = d
		s.ready = true
	}
	return s
}

// CurrentTime returns the media's playback position
func (s *Synchronizer) CurrentTime() float64 {
	return s.media.CurrentTime()
}

// Duration returns the axis duration, or ErrMetadataUnavailable before
// metadata has arrived.
func (s *Synchronizer) Duration() (float64, error) {
	if !s.ready {
		return 0, ErrMetadataUnavailable
	}
	return s.duration, nil
}

// Target returns the last mapped time
func (s *Synchronizer) Target() float64 {
	return s.target
}

// ActiveIndex returns the index of the active region, or -1
func (s *Synchronizer) ActiveIndex() int {
	return s.active
}

// Session returns the audio session the media is registered with
func (s *Synchronizer) Session() *AudioSession {
	return s.session
}

// HandleProgress maps progress onto the axis, seeks the media and
// re-resolves the active region. Before metadata is ready the latest
// progress is held and applied once metadata arrives.
func (s *Synchronizer) HandleProgress(progress float64) {
	s.lastP = progress
	if !s.ready {
		s.pending = true
		s.pendingP = progress
		return
	}
	s.apply(progress)
}

// HandleMetadataReady fixes the axis duration. Later calls are ignored.
func (s *Synchronizer) HandleMetadataReady(duration float64) {
	if s.ready {
		return
	}
	if !validDuration(duration) {
		duration = s.media.Duration()
		if !validDuration(duration) {
			s.logger.Warnf("metadata reported unusable duration %v", duration)
			return
		}
	}

	s.duration = duration
	s.ready = true
	if s.pending {
		s.pending = false
		s.apply(s.pendingP)
	}
}

// HandleInteraction unlocks playback for every player sharing the session
// on the first user interaction.
func (s *Synchronizer) HandleInteraction(ctx context.Context) {
	if s.interacted {
		return
	}
	s.interacted = true
	s.session.UnlockPlayback(ctx)
}

// HandleVisibility plays the media while it is visible and the session is
// unmuted, and pauses it otherwise.
func (s *Synchronizer) HandleVisibility(ctx context.Context, ratio float64) {
	visible := timeline.Visible(ratio, s.cfg.VisibilityThreshold)
	if visible == s.visible {
		return
	}
	s.visible = visible
	s.syncAudible(ctx)
}

// HandleResize forwards a settled viewport size to the host
func (s *Synchronizer) HandleResize(width, height int) {
	s.lastWidth, s.lastHeight = width, height
	if s.opts.OnResize != nil {
		s.opts.OnResize(width, height)
	}
}

// Refresh re-resolves the active region against the current target, for
// use after the region store changed.
func (s *Synchronizer) Refresh() {
	if !s.ready {
		return
	}
	s.resolve(s.target)
}

// Run consumes events from src until ctx ends or src is closed. Resize
// and progress bursts are debounced; all handlers run on the calling
// goroutine. A positive FrameInterval also runs a frame loop. Pending
// debounced work and the frame loop are cancelled on return.
func (s *Synchronizer) Run(ctx context.Context, src Source) error {
	defer s.Close()

	var frames <-chan time.Time
	if s.cfg.FrameInterval > 0 {
		s.frames = StartFrameLoop(ctx, s.cfg.FrameInterval)
		frames = s.frames.C()
	}

	events := src.Events()
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.dispatch(ctx, ev)

		case <-s.progress.C():
			metrics.RecordDebouncedRecompute("progress")
			s.HandleProgress(s.lastP)

		case <-s.resize.C():
			metrics.RecordDebouncedRecompute("resize")
			s.HandleResize(s.lastWidth, s.lastHeight)

		case <-frames:
			s.tick(ctx)
		}
	}
}

// Close releases the timers owned by the synchronizer and leaves the
// audio session.
func (s *Synchronizer) Close() {
	s.resize.Stop()
	s.progress.Stop()
	if s.frames != nil {
		s.frames.Stop()
	}
	if s.unregister != nil {
		s.unregister()
		s.unregister = nil
	}
}

func (s *Synchronizer) dispatch(ctx context.Context, ev Event) {
	switch ev.Type {
	case ProgressUpdated:
		if s.cfg.ProgressDebounce <= 0 {
			s.HandleProgress(ev.Progress)
			return
		}
		s.lastP = ev.Progress
		s.progress.Trigger()
	case MetadataReady:
		s.HandleMetadataReady(ev.Duration)
	case InteractionOccurred:
		s.HandleInteraction(ctx)
	case Resized:
		s.lastWidth, s.lastHeight = ev.Width, ev.Height
		if s.cfg.ResizeDebounce <= 0 {
			s.HandleResize(ev.Width, ev.Height)
			return
		}
		s.resize.Trigger()
	case VisibilityChanged:
		s.HandleVisibility(ctx, ev.Ratio)
	default:
		s.logger.Debugf("ignoring event %s", ev.Type)
	}
}

// tick re-reads the shared mute flag; writers elsewhere are observed here
// at most one frame late.
func (s *Synchronizer) tick(ctx context.Context) {
	if s.visible {
		muted := s.session.Muted(ctx)
		if muted != s.mutedSeen {
			s.syncAudible(ctx)
		}
	}
	if s.opts.OnFrame != nil {
		s.opts.OnFrame(s.media.CurrentTime())
	}
}

func (s *Synchronizer) syncAudible(ctx context.Context) {
	muted := s.session.Muted(ctx)
	s.mutedSeen = muted

	if mu, ok := s.media.(Muter); ok {
		mu.SetMuted(muted)
	}
	if !s.visible || muted {
		s.media.Pause()
		return
	}
	if err := s.media.Play(ctx); err != nil {
		metrics.RecordError("playback", "play")
		s.logger.WarnWithErr("playback refused", err)
		return
	}
	s.session.MarkPlayed(s.media)
}

func (s *Synchronizer) apply(progress float64) {
	target := timeline.MapProgress(progress, s.duration)
	s.target = target
	s.seek(target)
	s.resolve(target)
}

func (s *Synchronizer) seek(target float64) {
	current := s.media.CurrentTime()

	switch {
	case s.media.Seeking():
		metrics.RecordSeek(false, "seeking")
		s.logger.LogSeek(target, current, false, "seeking")
	case timeline.Round2(current) == target:
		metrics.RecordSeek(false, "unchanged")
	default:
		s.media.SetCurrentTime(target)
		metrics.RecordSeek(true, "progress")
		s.logger.LogSeek(target, current, true, "progress")
	}
}

func (s *Synchronizer) resolve(t float64) {
	if s.regions == nil {
		return
	}
	regions := s.regions.List()
	idx := timeline.ResolveIndex(regions, t, s.duration)
	var id models.RegionID
	if idx >= 0 {
		id = regions[idx].ID
	}
	if idx == s.active && id == s.activeID {
		return
	}
	s.active, s.activeID = idx, id

	change := ActiveChange{Index: idx, Time: t}
	if idx >= 0 {
		change.Region = regions[idx]
		change.OK = true
		metrics.RecordActiveRegionChange(string(change.Region.Kind))
	}
	if s.opts.OnActiveChange != nil {
		s.opts.OnActiveChange(change)
	}
}
