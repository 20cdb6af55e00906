package helpers

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"market-pulse/src/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	max := time.Second

	assert.Equal(t, base, CalculateBackoff(0, base, max))
	assert.Equal(t, 200*time.Millisecond, CalculateBackoff(1, base, max))
	assert.Equal(t, 800*time.Millisecond, CalculateBackoff(3, base, max))
	assert.Equal(t, max, CalculateBackoff(4, base, max))
	assert.Equal(t, max, CalculateBackoff(100, base, max))
	assert.Equal(t, base, CalculateBackoff(-1, base, max))
}

func TestRetryWithBackoff_SucceedsAfterFailures(t *testing.T) {
	log := logger.NewLoggerWithWriter(&bytes.Buffer{}, "ERROR", "test")
	calls := 0

	err := RetryWithBackoff(context.Background(), log, "op", 5, time.Millisecond, 2*time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_GivesUp(t *testing.T) {
	log := logger.NewLoggerWithWriter(&bytes.Buffer{}, "ERROR", "test")
	cause := errors.New("refused")

	err := RetryWithBackoff(context.Background(), log, "dial", 2, time.Millisecond, time.Millisecond, func() error {
		return cause
	})

	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.ErrorIs(t, err, cause)
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	log := logger.NewLoggerWithWriter(&bytes.Buffer{}, "ERROR", "test")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, log, "dial", 0, time.Hour, time.Hour, func() error {
		return errors.New("refused")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "", StatusText(nil))
	assert.Equal(t, "no data", StatusText(NewTransportAckError("request_history", "no data", nil)))
	assert.Equal(t, "request_history failed (ack timeout)", StatusText(NewTransportAckError("request_history", "", ErrAckTimeout)))
	assert.Equal(t, "plain", StatusText(errors.New("plain")))
}

func TestErrorTypesUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := NewDatabaseError("save failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "save failed: disk full", err.Error())

	var dbErr *DatabaseError
	assert.True(t, errors.As(error(err), &dbErr))
}

func TestErrorHandler_RaceIsDebugOnly(t *testing.T) {
	var buf bytes.Buffer
	h := NewErrorHandler(logger.NewLoggerWithWriter(&buf, "INFO", "test"))

	h.Handle(nil, "noop")
	h.Handle(NewLifecycleRaceError("late history"), "history")
	assert.Equal(t, 0, h.ErrorCount)
	assert.Empty(t, buf.String())

	h.Handle(errors.New("boom"), "commit")
	assert.Equal(t, 1, h.ErrorCount)
	assert.Contains(t, buf.String(), "[ErrorHandler] ERROR: Error in commit: boom")
}

func TestRecommendedMemoryLimit(t *testing.T) {
	assert.Equal(t, 512, RecommendedMemoryLimit(0))
	assert.Equal(t, 256, RecommendedMemoryLimit(256))
	assert.Equal(t, 512, RecommendedMemoryLimit(600))
	assert.Equal(t, 6144, RecommendedMemoryLimit(8192))
}

func TestCollectRuntimeStats(t *testing.T) {
	stats := CollectRuntimeStats()
	assert.Positive(t, stats.Goroutines)
	assert.GreaterOrEqual(t, stats.RecommendedLimitMB, 1)
}
