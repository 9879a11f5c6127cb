package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
	ch    chan string
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan string, 16)}
}

func (r *recorder) record(v string) {
	r.mu.Lock()
	r.calls = append(r.calls, v)
	r.mu.Unlock()
	r.ch <- v
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestDebouncerCoalesces(t *testing.T) {
	rec := newRecorder()
	d := New(20*time.Millisecond, rec.record)

	for _, v := range []string{"t", "ta", "tab", "tabe"} {
		require.NoError(t, d.Trigger(v))
	}

	select {
	case got := <-rec.ch:
		assert.Equal(t, "tabe", got)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for debounced call")
	}

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

func TestDebouncerFlush(t *testing.T) {
	rec := newRecorder()
	d := New(time.Hour, rec.record)

	assert.False(t, d.Flush())
	require.NoError(t, d.Trigger("kore"))
	assert.True(t, d.Flush())
	assert.Equal(t, "kore", <-rec.ch)
	assert.False(t, d.Flush())
	assert.Equal(t, 1, rec.count())
}

func TestDebouncerStop(t *testing.T) {
	rec := newRecorder()
	d := New(10*time.Millisecond, rec.record)

	require.NoError(t, d.Trigger("x"))
	d.Stop()
	time.Sleep(40 * time.Millisecond)
	assert.Zero(t, rec.count())

	assert.ErrorIs(t, d.Trigger("y"), ErrStopped)
	assert.False(t, d.Flush())
}

func TestDebouncerDefaultDelay(t *testing.T) {
	d := New(0, func(string) {})
	assert.Equal(t, DefaultDelay, d.delay)
}
