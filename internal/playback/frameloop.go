package playback

import (
	"context"
	"sync"
	"time"
)

// FrameLoop delivers render ticks until it is stopped or its context ends.
// At most one tick is buffered; slow consumers drop frames instead of
// queueing them.
type FrameLoop struct {
	c      chan time.Time
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// DefaultFrameInterval approximates a 60Hz display
const DefaultFrameInterval = 16 * time.Millisecond

// StartFrameLoop starts a frame loop ticking every interval
func StartFrameLoop(ctx context.Context, interval time.Duration) *FrameLoop {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	f := &FrameLoop{
		c:      make(chan time.Time, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go f.run(ctx, interval)
	return f
}

// C delivers frame timestamps
func (f *FrameLoop) C() <-chan time.Time {
	return f.c
}

// Done is closed once the loop has exited
func (f *FrameLoop) Done() <-chan struct{} {
	return f.done
}

// Stop cancels the loop and waits for it to exit
func (f *FrameLoop) Stop() {
	f.once.Do(f.cancel)
	<-f.done
}

func (f *FrameLoop) run(ctx context.Context, interval time.Duration) {
	defer close(f.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			select {
			case f.c <- now:
			default:
			}
		}
	}
}
