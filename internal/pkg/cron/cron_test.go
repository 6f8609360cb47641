package cron

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunOnStartFiresImmediately(t *testing.T) {
	s := New()
	var runs atomic.Int32
	s.Register(Job{
		Name:       "drain",
		Interval:   time.Hour,
		RunOnStart: true,
		Fn: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	assert.Eventually(t, func() bool {
		return runs.Load() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestManualRunByName(t *testing.T) {
	s := New()
	var runs atomic.Int32
	s.Register(Job{
		Name:     "drain",
		Interval: time.Hour,
		Fn: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	require.NoError(t, s.Run(context.Background(), "drain"))
	assert.Eventually(t, func() bool {
		return runs.Load() == 1
	}, time.Second, 10*time.Millisecond)

	assert.Error(t, s.Run(context.Background(), "missing"))
}

func TestNoOverlappingRuns(t *testing.T) {
	s := New()
	var active, maxActive atomic.Int32
	release := make(chan struct{})
	s.Register(Job{
		Name:     "slow",
		Interval: time.Hour,
		Fn: func(ctx context.Context) error {
			cur := active.Add(1)
			if cur > maxActive.Load() {
				maxActive.Store(cur)
			}
			<-release
			active.Add(-1)
			return nil
		},
	})

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Run(context.Background(), "slow"))
	}
	time.Sleep(50 * time.Millisecond)
	close(release)

	assert.Eventually(t, func() bool {
		return active.Load() == 0
	}, time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 1, maxActive.Load())
}

func TestListReflectsOutcome(t *testing.T) {
	s := New()
	s.Register(Job{
		Name:     "ok",
		Interval: time.Hour,
		Fn:       func(ctx context.Context) error { return nil },
	})
	s.Register(Job{
		Name:     "bad",
		Interval: time.Hour,
		Fn:       func(ctx context.Context) error { return assert.AnError },
	})

	require.NoError(t, s.Run(context.Background(), "ok"))
	require.NoError(t, s.Run(context.Background(), "bad"))

	assert.Eventually(t, func() bool {
		byName := map[string]JobStatus{}
		for _, item := range s.List() {
			byName[item.Name] = item.Status
		}
		return byName["ok"] == StatusFulfill && byName["bad"] == StatusReject
	}, time.Second, 10*time.Millisecond)
}
