package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncerCoalescesBurst(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	for i := 0; i < 10; i++ {
		d.Trigger()
	}
	assert.True(t, d.Pending())

	select {
	case <-d.C():
	case <-time.After(time.Second):
		t.Fatal("debouncer never fired")
	}

	select {
	case <-d.C():
		t.Fatal("burst produced more than one signal")
	case <-time.After(60 * time.Millisecond):
	}
	assert.False(t, d.Pending())
}

func TestDebouncerRestartsWindow(t *testing.T) {
	d := NewDebouncer(40 * time.Millisecond)
	defer d.Stop()

	start := time.Now()
	d.Trigger()
	time.Sleep(25 * time.Millisecond)
	d.Trigger()

	<-d.C()
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestDebouncerZeroWaitSignalsImmediately(t *testing.T) {
	d := NewDebouncer(0)
	d.Trigger()

	select {
	case <-d.C():
	default:
		t.Fatal("expected an immediate signal")
	}
}

func TestDebouncerStopCancels(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	d.Trigger()
	d.Stop()
	d.Trigger()

	require.False(t, d.Pending())
	select {
	case <-d.C():
		t.Fatal("stopped debouncer fired")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestDebouncerIgnoresStaleTimer(t *testing.T) {
	d := NewDebouncer(time.Hour)
	defer d.Stop()

	d.Trigger()
	d.Trigger()

	// a callback of the first window that lost the race with the second Trigger
	d.fire(d.gen - 1)

	select {
	case <-d.C():
		t.Fatal("stale timer signalled before the window ended")
	default:
	}
	assert.True(t, d.Pending())

	d.fire(d.gen)
	select {
	case <-d.C():
	default:
		t.Fatal("current timer did not signal")
	}
}
