package helpers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"market-pulse/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type MarketPulseError struct {
	Message string
	Cause   error
}

func (e *MarketPulseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *MarketPulseError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As checks
type ConfigurationError struct{ MarketPulseError }
type NetworkError struct{ MarketPulseError }
type DatabaseError struct{ MarketPulseError }

// TransportAckError: an acknowledgment came back with status != ok, or never came.
// Surfaced to the view as a status string, never retried.
type TransportAckError struct {
	MarketPulseError
	Event string
}

// MalformedDataError: a payload field was missing or not numeric.
// Recovered locally by coercion, never returned from the core.
type MalformedDataError struct{ MarketPulseError }

// LifecycleRaceError: a deferred result arrived after its owner was released.
type LifecycleRaceError struct{ MarketPulseError }

// -----------------------------------------------------------------------------

// ErrAckTimeout is the cause of a TransportAckError when no ack arrived in time
var ErrAckTimeout = errors.New("ack timeout")

// ErrDisconnected is the cause of a TransportAckError when the connection dropped first
var ErrDisconnected = errors.New("transport disconnected")

// -----------------------------------------------------------------------------

func NewTransportAckError(event string, message string, cause error) *TransportAckError {
	if message == "" {
		message = fmt.Sprintf("%s failed", event)
	}
	return &TransportAckError{MarketPulseError: MarketPulseError{Message: message, Cause: cause}, Event: event}
}

func NewMalformedDataError(message string, cause error) *MalformedDataError {
	return &MalformedDataError{MarketPulseError{Message: message, Cause: cause}}
}

func NewLifecycleRaceError(message string) *LifecycleRaceError {
	return &LifecycleRaceError{MarketPulseError{Message: message}}
}

func NewDatabaseError(message string, cause error) *DatabaseError {
	return &DatabaseError{MarketPulseError{Message: message, Cause: cause}}
}

func NewConfigurationError(message string, cause error) *ConfigurationError {
	return &ConfigurationError{MarketPulseError{Message: message, Cause: cause}}
}

func NewNetworkError(message string, cause error) *NetworkError {
	return &NetworkError{MarketPulseError{Message: message, Cause: cause}}
}

// -----------------------------------------------------------------------------

// StatusText renders an error the way a view shows it in its status line
func StatusText(err error) string {
	var ackErr *TransportAckError
	if errors.As(err, &ackErr) {
		if ackErr.Cause != nil {
			return fmt.Sprintf("%s (%v)", ackErr.Message, ackErr.Cause)
		}
		return ackErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// CalculateBackoff returns base * 2^attempt capped at max
func CalculateBackoff(attempt int, base, max time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		return max
	}
	delay := base * time.Duration(1<<attempt)
	if delay > max || delay <= 0 {
		return max
	}
	return delay
}

// -----------------------------------------------------------------------------

// RetryWithBackoff runs fn until it succeeds, ctx is cancelled or maxRetries is
// reached (maxRetries <= 0 retries forever).
func RetryWithBackoff(ctx context.Context, log *logger.Logger, operation string, maxRetries int, base, max time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 0; maxRetries <= 0 || attempt < maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if maxRetries > 0 && attempt == maxRetries-1 {
			break
		}

		delay := CalculateBackoff(attempt, base, max)
		log.Warning("Attempt %d failed for %s: %v. Retrying in %v", attempt+1, operation, err, delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return &NetworkError{MarketPulseError{Message: fmt.Sprintf("%s failed after %d attempts", operation, maxRetries), Cause: lastErr}}
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

type ErrorHandler struct {
	Logger     *logger.Logger
	ErrorCount int
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	return &ErrorHandler{
		Logger: log.Named("ErrorHandler"),
	}
}

// -----------------------------------------------------------------------------

// Handle logs err under the given context. Lifecycle races are expected and
// only show up at debug level.
func (e *ErrorHandler) Handle(err error, context string) {
	if err == nil {
		return
	}

	var race *LifecycleRaceError
	if errors.As(err, &race) {
		e.Logger.Debug("Dropped in %s: %v", context, err)
		return
	}

	e.ErrorCount++
	e.Logger.Error("Error in %s: %v", context, err)
}
