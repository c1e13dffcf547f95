package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerExecutesTriggeredTask(t *testing.T) {
	var runs atomic.Int32
	done := make(chan struct{}, 1)
	r := NewRunner("test", func(ctx context.Context) error {
		runs.Add(1)
		done <- struct{}{}
		return nil
	}, RunnerConfig{})

	r.Start(context.Background())
	defer r.Stop()

	require.NoError(t, r.Trigger())
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not run")
	}
	assert.Equal(t, int32(1), runs.Load())
}

func TestRunnerRejectsTriggerBeforeStart(t *testing.T) {
	r := NewRunner("test", func(ctx context.Context) error { return nil }, RunnerConfig{})
	assert.Error(t, r.Trigger())
}

func TestRunnerRetriesFailedTask(t *testing.T) {
	var runs atomic.Int32
	done := make(chan struct{}, 1)
	r := NewRunner("test", func(ctx context.Context) error {
		if runs.Add(1) < 2 {
			return errors.New("transient")
		}
		done <- struct{}{}
		return nil
	}, RunnerConfig{RetryDelay: time.Millisecond})

	r.Start(context.Background())
	defer r.Stop()

	require.NoError(t, r.Trigger())
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task was not retried")
	}
	assert.Equal(t, int32(2), runs.Load())
}

func TestRunnerStopWaitsForWorker(t *testing.T) {
	r := NewRunner("test", func(ctx context.Context) error { return nil }, RunnerConfig{})
	r.Start(context.Background())
	r.Stop()

	// a second Stop is a no-op
	r.Stop()
}
