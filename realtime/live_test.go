package realtime

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveRefreshKeepsStateOnError(t *testing.T) {
	var calls atomic.Int32
	fail := errors.New("boom")
	l := NewLive(func(ctx context.Context) ([]string, error) {
		switch calls.Add(1) {
		case 1:
			return []string{"a"}, nil
		case 2:
			return nil, fail
		}
		return []string{"a", "b"}, nil
	})

	_, ok := l.Current()
	assert.False(t, ok)

	got, err := l.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got)

	got, err = l.Refresh(context.Background())
	assert.ErrorIs(t, err, fail)
	assert.Equal(t, []string{"a"}, got)
	assert.ErrorIs(t, l.Err(), fail)

	got, err = l.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.NoError(t, l.Err())
	cur, ok := l.Current()
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, cur)
}

func TestLiveRunRefetchesPerEvent(t *testing.T) {
	var n atomic.Int32
	l := NewLive(func(ctx context.Context) (int32, error) {
		return n.Add(1), nil
	})
	events := make(chan Event, 2)
	updates := make(chan int32, 4)

	done := make(chan error, 1)
	go func() {
		done <- l.Run(context.Background(), events, func(v int32) { updates <- v }, nil)
	}()

	assert.Equal(t, int32(1), <-updates)
	events <- Event{Table: "orders", Kind: Insert}
	assert.Equal(t, int32(2), <-updates)
	events <- Event{Table: "orders", Kind: Update}
	assert.Equal(t, int32(3), <-updates)

	close(events)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after events closed")
	}
}

func TestLiveRunReportsErrorsAndStopsOnCancel(t *testing.T) {
	l := NewLive(func(ctx context.Context) (string, error) {
		return "", errors.New("unavailable")
	})
	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	done := make(chan error, 1)
	go func() {
		done <- l.Run(ctx, make(chan Event), func(string) { t.Error("unexpected update") }, func(err error) { errs <- err })
	}()

	require.Error(t, <-errs)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
