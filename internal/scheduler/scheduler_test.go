package scheduler

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesseract-hub/kwentura-service/internal/redis"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestNormalizeSchedule(t *testing.T) {
	assert.Equal(t, "0 0 0 * * *", normalizeSchedule("0 0 * * *"))
	assert.Equal(t, "*/5 * * * * *", normalizeSchedule("*/5 * * * * *"))
}

func TestAddValidatesJobs(t *testing.T) {
	s := NewScheduler(time.UTC, nil, testLogger())
	noop := func(ctx context.Context) error { return nil }

	require.NoError(t, s.Add(Job{Name: "retention", Schedule: "0 0 * * *", Run: noop}))
	assert.Error(t, s.Add(Job{Name: "retention", Schedule: "0 0 * * *", Run: noop}), "duplicate name")
	assert.Error(t, s.Add(Job{Name: "bad", Schedule: "every day", Run: noop}))
	assert.Error(t, s.Add(Job{Name: "", Schedule: "0 0 * * *", Run: noop}))
}

func TestRunNowRecordsStats(t *testing.T) {
	s := NewScheduler(time.UTC, nil, testLogger())
	var calls int32
	require.NoError(t, s.Add(Job{Name: "retention", Schedule: "0 0 * * *", Run: func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}}))
	require.NoError(t, s.Add(Job{Name: "reconcile", Schedule: "0 * * * *", Run: func(ctx context.Context) error {
		return errors.New("identity store unavailable")
	}}))

	require.NoError(t, s.RunNow("retention"))
	assert.Error(t, s.RunNow("reconcile"))
	assert.Error(t, s.RunNow("missing"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	stats := s.GetStats()
	jobs := stats["jobs"].(map[string]interface{})
	retention := jobs["retention"].(map[string]interface{})
	assert.Equal(t, 1, retention["runs"])
	assert.Equal(t, 0, retention["failures"])
	assert.Contains(t, retention, "last_run")

	reconcile := jobs["reconcile"].(map[string]interface{})
	assert.Equal(t, 1, reconcile["failures"])
	assert.Equal(t, "identity store unavailable", reconcile["last_error"])
}

func TestSharedLockSkipsSecondReplica(t *testing.T) {
	locker := redis.NewLocalLocker()
	var calls int32
	job := Job{Name: "retention", Schedule: "0 0 * * *", Run: func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}}

	first := NewScheduler(time.UTC, locker, testLogger())
	second := NewScheduler(time.UTC, locker, testLogger())
	require.NoError(t, first.Add(job))
	require.NoError(t, second.Add(job))

	require.NoError(t, first.RunNow("retention"))
	require.NoError(t, second.RunNow("retention"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	jobs := second.GetStats()["jobs"].(map[string]interface{})
	assert.Equal(t, 1, jobs["retention"].(map[string]interface{})["skipped"])
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(time.UTC, nil, testLogger())
	require.NoError(t, s.Add(Job{Name: "tick", Schedule: "0 0 * * *", Run: func(ctx context.Context) error { return nil }}))

	s.Start()
	stats := s.GetStats()
	assert.Equal(t, true, stats["running"])
	tick := stats["jobs"].(map[string]interface{})["tick"].(map[string]interface{})
	assert.Contains(t, tick, "next_run")

	s.Stop()
	assert.Equal(t, false, s.GetStats()["running"])
}
