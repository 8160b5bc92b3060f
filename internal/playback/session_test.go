package playback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingMuteStore struct{}

func (failingMuteStore) GetMuted(context.Context, string) (bool, bool, error) {
	return false, false, errors.New("store unavailable")
}

func (failingMuteStore) SetMuted(context.Context, string, bool) error {
	return errors.New("store unavailable")
}

func TestAudioSessionDefaultsToMuted(t *testing.T) {
	store := NewMemoryMuteStore()
	s := NewAudioSession("page-1", store, nil)
	ctx := context.Background()

	assert.True(t, s.Muted(ctx))

	muted, ok, err := store.GetMuted(ctx, "page-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, muted)
}

func TestAudioSessionSharedAcrossPlayers(t *testing.T) {
	store := NewMemoryMuteStore()
	a := NewAudioSession("page-1", store, nil)
	b := NewAudioSession("page-1", store, nil)
	other := NewAudioSession("page-2", store, nil)
	ctx := context.Background()

	require.NoError(t, a.SetMuted(ctx, false))
	assert.False(t, b.Muted(ctx))
	assert.True(t, other.Muted(ctx))
}

func TestAudioSessionNotifiesSubscribers(t *testing.T) {
	s := NewAudioSession("page", nil, nil)
	ctx := context.Background()

	var seen []bool
	unsubscribe := s.Subscribe(func(muted bool) { seen = append(seen, muted) })

	require.NoError(t, s.SetMuted(ctx, false))
	require.NoError(t, s.SetMuted(ctx, true))
	unsubscribe()
	require.NoError(t, s.SetMuted(ctx, false))

	assert.Equal(t, []bool{false, true}, seen)
}

func TestAudioSessionAppliesToMembers(t *testing.T) {
	s := NewAudioSession("page", nil, nil)
	media := newFakeMedia(10)
	media.muted = true
	leave := s.Register(media)

	require.NoError(t, s.SetMuted(context.Background(), false))
	assert.False(t, media.isMuted())

	leave()
	require.NoError(t, s.SetMuted(context.Background(), true))
	assert.False(t, media.isMuted())
}

func TestAudioSessionStoreFailure(t *testing.T) {
	s := NewAudioSession("page", failingMuteStore{}, nil)
	ctx := context.Background()

	assert.True(t, s.Muted(ctx))
	assert.Error(t, s.SetMuted(ctx, false))
}

func TestAudioSessionRegisterIsIdempotent(t *testing.T) {
	s := NewAudioSession("page", nil, nil)
	media := newFakeMedia(10)

	s.Register(media)
	leave := s.Register(media)
	assert.Equal(t, 1, s.Members())

	leave()
	assert.Equal(t, 0, s.Members())
}

func TestUnlockPlaybackSwallowsFailures(t *testing.T) {
	s := NewAudioSession("page", nil, nil)
	ok := newFakeMedia(10)
	denied := newFakeMedia(10)
	denied.playErr = ErrPlaybackPermissionDenied
	played := newFakeMedia(10)

	s.Register(ok)
	s.Register(denied)
	s.Register(played)
	s.MarkPlayed(played)

	ctx := context.Background()
	assert.Equal(t, 1, s.UnlockPlayback(ctx))
	assert.Equal(t, 0, s.UnlockPlayback(ctx))

	plays, _ := played.counts()
	assert.Equal(t, 0, plays)
	plays, pauses := denied.counts()
	assert.Equal(t, 1, plays)
	assert.Equal(t, 1, pauses)
}
