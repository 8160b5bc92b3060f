package playback

import (
	"context"
	"math"
	"sync"
)

type fakeMedia struct {
	mu       sync.Mutex
	current  float64
	duration float64
	seeking  bool
	muted    bool
	playErr  error
	playing  bool
	seeks    []float64
	plays    int
	pauses   int
}

func newFakeMedia(duration float64) *fakeMedia {
	return &fakeMedia{duration: duration}
}

func newUnloadedMedia() *fakeMedia {
	return &fakeMedia{duration: math.NaN()}
}

func (m *fakeMedia) CurrentTime() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *fakeMedia) SetCurrentTime(t float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = t
	m.seeks = append(m.seeks, t)
}

func (m *fakeMedia) Duration() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *fakeMedia) Seeking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seeking
}

func (m *fakeMedia) Play(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plays++
	if m.playErr != nil {
		return m.playErr
	}
	m.playing = true
	return nil
}

func (m *fakeMedia) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauses++
	m.playing = false
}

func (m *fakeMedia) SetMuted(muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted = muted
}

func (m *fakeMedia) setSeeking(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seeking = v
}

func (m *fakeMedia) seekLog() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.seeks...)
}

func (m *fakeMedia) counts() (plays, pauses int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plays, m.pauses
}

func (m *fakeMedia) isPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

func (m *fakeMedia) isMuted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}
