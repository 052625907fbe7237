package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestRunFiresImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int32
	done := make(chan struct{})
	go func() {
		_ = Run(ctx, time.Hour, func(context.Context) error {
			if atomic.AddInt32(&calls, 1) == 1 {
				cancel()
			}
			return nil
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestRunStopsOnTaskError(t *testing.T) {
	sentinel := errors.New("boom")
	var calls int32

	err := Run(context.Background(), time.Millisecond, func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return sentinel
	})

	require.ErrorIs(t, err, sentinel)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestRunRespectsCancellationBetweenTicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32

	errCh := make(chan error, 1)
	go func() {
		errCh <- Run(ctx, 5*time.Millisecond, func(context.Context) error {
			atomic.AddInt32(&calls, 1)
			return nil
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not honor cancellation")
	}
	require.Greater(t, atomic.LoadInt32(&calls), int32(1))
}
