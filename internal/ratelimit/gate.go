// Package ratelimit provides a shared throttling gate for outbound provider
// calls. Every pipeline component that talks to a rate-limited API (listing
// fetch, scoring, contact enrichment) passes through the same gate, so the
// aggregate request rate stays within provider limits regardless of how many
// workers run.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JuliusShade/FD-Lead-Gen/internal/util"
)

// Gate enforces a minimum delay between consecutive requests to the same
// provider.
type Gate struct {
	mu       sync.Mutex
	lastCall map[string]time.Time
	minDelay time.Duration
}

// NewGate creates a gate that enforces minDelay between consecutive requests
// per provider key.
func NewGate(minDelay time.Duration) *Gate {
	return &Gate{
		lastCall: make(map[string]time.Time),
		minDelay: minDelay,
	}
}

// Wait blocks until enough time has passed since the last request to the
// given provider. Returns an error if the context is cancelled while waiting.
func (g *Gate) Wait(ctx context.Context, provider string) error {
	if g == nil || g.minDelay <= 0 {
		return nil
	}

	g.mu.Lock()
	last, ok := g.lastCall[provider]
	now := time.Now()

	if !ok || now.Sub(last) >= g.minDelay {
		g.lastCall[provider] = now
		g.mu.Unlock()
		return nil
	}

	remaining := g.minDelay - now.Sub(last)
	g.mu.Unlock()

	if err := util.WaitFor(ctx, remaining); err != nil {
		return fmt.Errorf("rate gate wait for %s: %w", provider, err)
	}

	g.mu.Lock()
	g.lastCall[provider] = time.Now()
	g.mu.Unlock()

	return nil
}
