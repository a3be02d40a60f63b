package circuit

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestNewBreaker(t *testing.T) {
	config := DefaultConfig()
	breaker := NewBreaker("smtp", config, nil)

	if breaker.State() != StateClosed {
		t.Errorf("Expected initial state CLOSED, got %s", breaker.State().String())
	}

	if breaker.IsOpen() {
		t.Error("Expected breaker to not be open initially")
	}
}

func TestBreaker_TransitionToOpen(t *testing.T) {
	config := Config{
		Threshold:        3,
		Timeout:          1 * time.Second,
		SuccessThreshold: 2,
		MaxHalfOpen:      2,
	}
	breaker := NewBreaker("smtp", config, zap.NewNop())

	for i := 0; i < 3; i++ {
		breaker.Record(errors.New("relay unreachable"))
	}

	if breaker.State() != StateOpen {
		t.Errorf("Expected state OPEN after %d failures, got %s", config.Threshold, breaker.State().String())
	}

	if err := breaker.Allow(); err != ErrCircuitOpen {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
}

func TestBreaker_TransitionToHalfOpen(t *testing.T) {
	config := Config{
		Threshold:        2,
		Timeout:          100 * time.Millisecond,
		SuccessThreshold: 2,
		MaxHalfOpen:      2,
	}
	breaker := NewBreaker("smtp", config, zap.NewNop())

	breaker.Record(errors.New("error 1"))
	breaker.Record(errors.New("error 2"))

	if breaker.State() != StateOpen {
		t.Fatalf("Expected state OPEN, got %s", breaker.State().String())
	}

	time.Sleep(150 * time.Millisecond)

	if err := breaker.Allow(); err != nil {
		t.Errorf("Expected Allow() to succeed after timeout, got %v", err)
	}

	if breaker.State() != StateHalfOpen {
		t.Errorf("Expected state HALF_OPEN, got %s", breaker.State().String())
	}
}

func TestBreaker_TransitionToClosed(t *testing.T) {
	config := Config{
		Threshold:        2,
		Timeout:          50 * time.Millisecond,
		SuccessThreshold: 2,
		MaxHalfOpen:      5,
	}
	breaker := NewBreaker("smtp", config, zap.NewNop())

	breaker.Record(errors.New("error"))
	breaker.Record(errors.New("error"))

	time.Sleep(60 * time.Millisecond)

	breaker.Allow()

	breaker.Record(nil)
	breaker.Record(nil)

	if breaker.State() != StateClosed {
		t.Errorf("Expected state CLOSED after successes, got %s", breaker.State().String())
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	config := Config{
		Threshold:        2,
		Timeout:          50 * time.Millisecond,
		SuccessThreshold: 2,
		MaxHalfOpen:      5,
	}
	breaker := NewBreaker("smtp", config, zap.NewNop())

	breaker.Record(errors.New("error"))
	breaker.Record(errors.New("error"))

	time.Sleep(60 * time.Millisecond)
	breaker.Allow()

	breaker.Record(errors.New("still failing"))

	if breaker.State() != StateOpen {
		t.Errorf("Expected state OPEN after half-open failure, got %s", breaker.State().String())
	}
}

func TestBreaker_Execute(t *testing.T) {
	config := Config{
		Threshold:        1,
		Timeout:          time.Minute,
		SuccessThreshold: 1,
		MaxHalfOpen:      1,
	}
	breaker := NewBreaker("smtp", config, zap.NewNop())

	sendErr := errors.New("send failed")
	if err := breaker.Execute(func() error { return sendErr }); err != sendErr {
		t.Errorf("Expected underlying error, got %v", err)
	}

	// Threshold of one failure opens the circuit; next call fails fast.
	called := false
	err := breaker.Execute(func() error {
		called = true
		return nil
	})
	if err != ErrCircuitOpen {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("Expected wrapped function to be skipped while open")
	}
}

func TestBreaker_Reset(t *testing.T) {
	config := Config{
		Threshold:        1,
		Timeout:          time.Minute,
		SuccessThreshold: 1,
		MaxHalfOpen:      1,
	}
	breaker := NewBreaker("smtp", config, zap.NewNop())

	breaker.Record(errors.New("error"))
	if breaker.State() != StateOpen {
		t.Fatalf("Expected state OPEN, got %s", breaker.State().String())
	}

	breaker.Reset()
	if breaker.State() != StateClosed {
		t.Errorf("Expected state CLOSED after reset, got %s", breaker.State().String())
	}
}
