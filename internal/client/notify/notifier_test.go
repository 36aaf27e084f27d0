package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeTimer captures scheduled clears so tests control when they fire.
type fakeTimer struct{ fn func() }

func (f *fakeTimer) Stop() bool { return true }

func withFakeTimers(n *Notifier) *[]*fakeTimer {
	timers := &[]*fakeTimer{}
	n.after = func(d time.Duration, fn func()) stopper {
		t := &fakeTimer{fn: fn}
		*timers = append(*timers, t)
		return t
	}
	return timers
}

func TestErrorClearsSuccess(t *testing.T) {
	n := New()

	n.SetSuccess("saved")
	require.Equal(t, "saved", n.Success())

	n.SetError("boom")
	require.Equal(t, "boom", n.Error())
	require.Empty(t, n.Success())

	n.SetSuccess("ok again")
	require.Empty(t, n.Error())
	require.Equal(t, "ok again", n.Success())
}

func TestTemporaryMessageCleared(t *testing.T) {
	n := New()
	timers := withFakeTimers(n)

	n.ShowTemporarySuccess("copied", 0)
	require.Equal(t, "copied", n.Success())
	require.Len(t, *timers, 1)

	(*timers)[0].fn()
	require.Empty(t, n.Success())
}

func TestStaleTimerDoesNotEraseNewerMessage(t *testing.T) {
	n := New()
	timers := withFakeTimers(n)

	n.ShowTemporaryError("first", 0)
	n.ShowTemporaryError("second", 0)
	require.Len(t, *timers, 2)

	// the first timer fires late; "second" must survive
	(*timers)[0].fn()
	require.Equal(t, "second", n.Error())

	(*timers)[1].fn()
	require.Empty(t, n.Error())
}

func TestClear(t *testing.T) {
	n := New()
	n.SetError("e")
	n.Clear()
	require.Empty(t, n.Error())
	require.Empty(t, n.Success())
}
