package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestGateFirstCallDoesNotBlock(t *testing.T) {
	gate := NewGate(time.Second)

	start := time.Now()
	if err := gate.Wait(context.Background(), "listing"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("first call should not block, waited %v", elapsed)
	}
}

func TestGateEnforcesDelayPerProvider(t *testing.T) {
	gate := NewGate(50 * time.Millisecond)
	ctx := context.Background()

	if err := gate.Wait(ctx, "listing"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	start := time.Now()
	if err := gate.Wait(ctx, "listing"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("second call to the same provider returned too early: %v", elapsed)
	}

	// A different provider key has its own window.
	start = time.Now()
	if err := gate.Wait(ctx, "enrichment"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 40*time.Millisecond {
		t.Fatalf("different provider should not block, waited %v", elapsed)
	}
}

func TestGateCancelledWhileWaiting(t *testing.T) {
	gate := NewGate(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	if err := gate.Wait(ctx, "listing"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cancel()
	if err := gate.Wait(ctx, "listing"); err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestNilGateIsNoop(t *testing.T) {
	var gate *Gate
	if err := gate.Wait(context.Background(), "listing"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
