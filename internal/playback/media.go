// Package playback keeps an external media element in step with a scroll
// driven timeline.
package playback

import (
	"context"
	"errors"
	"math"
)

var (
	// ErrMetadataUnavailable reports that the axis duration is not known yet.
	// Work depending on it is deferred until metadata arrives.
	ErrMetadataUnavailable = errors.New("media metadata unavailable")

	// ErrPlaybackPermissionDenied is returned by Media.Play when the host
	// refuses programmatic playback.
	ErrPlaybackPermissionDenied = errors.New("playback permission denied")
)

// Media is the playback primitive being driven
type Media interface {
	CurrentTime() float64
	SetCurrentTime(t float64)
	// Duration returns NaN or a non-positive value while metadata is missing.
	Duration() float64
	Seeking() bool
	Play(ctx context.Context) error
	Pause()
}

// Muter is implemented by media that can be muted
type Muter interface {
	SetMuted(muted bool)
}

func validDuration(d float64) bool {
	return d > 0 && !math.IsNaN(d) && !math.IsInf(d, 0)
}
