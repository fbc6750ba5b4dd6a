package utils

import (
	"testing"
	"time"
)

func TestConstantBackoff(t *testing.T) {
	cb := NewConstantBackoff(100 * time.Millisecond)
	for attempt := 0; attempt < 5; attempt++ {
		if got := cb.NextDelay(attempt); got != 100*time.Millisecond {
			t.Fatalf("expected constant 100ms, got %v at attempt %d", got, attempt)
		}
	}
}

func TestExponentialBackoff(t *testing.T) {
	eb := NewExponentialBackoff(100*time.Millisecond, 1*time.Second, 2.0, false)

	if got := eb.NextDelay(0); got != 100*time.Millisecond {
		t.Fatalf("expected 100ms at attempt 0, got %v", got)
	}
	if got := eb.NextDelay(1); got != 200*time.Millisecond {
		t.Fatalf("expected 200ms at attempt 1, got %v", got)
	}
	// Capped at MaxDelay.
	if got := eb.NextDelay(10); got != 1*time.Second {
		t.Fatalf("expected cap at 1s, got %v", got)
	}
}

func TestExponentialBackoffJitter(t *testing.T) {
	eb := NewExponentialBackoff(100*time.Millisecond, 10*time.Second, 2.0, true)
	for attempt := 0; attempt < 5; attempt++ {
		delay := eb.NextDelay(attempt)
		base := float64(100*time.Millisecond) * float64(int(1)<<uint(attempt))
		if float64(delay) < 0.5*base || float64(delay) > 1.5*base {
			t.Fatalf("jittered delay %v outside [0.5, 1.5] x base at attempt %d", delay, attempt)
		}
	}
}

func TestBackoffFromConfig(t *testing.T) {
	if _, ok := BackoffFromConfig("constant", 100, 0).(*ConstantBackoff); !ok {
		t.Fatalf("expected ConstantBackoff")
	}
	if _, ok := BackoffFromConfig("exponential", 100, 0).(*ExponentialBackoff); !ok {
		t.Fatalf("expected ExponentialBackoff")
	}
	// Unknown types fall back to exponential.
	if _, ok := BackoffFromConfig("bogus", 100, 0).(*ExponentialBackoff); !ok {
		t.Fatalf("expected ExponentialBackoff fallback")
	}
}
