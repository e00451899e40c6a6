// Package poll implements the interval polling loop that keeps a client view
// synchronized with the order API without a push channel. A Poller fetches a
// full snapshot every tick, diffs it against the previous one and hands both to a
// single callback, so consumers always re-render from a consistent snapshot
// rather than a partial patch.
package poll

import (
	"context"
	"errors"
	"net"
	"net/url"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// Poller periodically fetches snapshots of type S and reports deltas of type
// D. Start and Stop are idempotent; a snapshot fetched before Stop (or before
// a later Start) that completes afterwards is discarded.
type Poller[S, D any] struct {
	// Fetch retrieves the current snapshot. Required.
	Fetch func(ctx context.Context) (S, error)
	// Diff compares the previous snapshot to the next. hasPrev is false on
	// the first successful fetch. Required.
	Diff func(prev S, hasPrev bool, next S) D
	// OnUpdate receives every fetched snapshot together with its delta.
	OnUpdate func(snap S, delta D)

	// Interval between ticks. Cooldown is how long to pause after a
	// connectivity failure before resuming; zero means 3×Interval.
	Interval time.Duration
	Cooldown time.Duration

	// IsTransient classifies an error as a dropped-connectivity failure
	// (pause and resume) rather than a generic one (log, stay on schedule).
	// Nil means the built-in network classifier.
	IsTransient func(error) bool

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	gen     uint64
	prev    S
	hasPrev bool
}

// Start launches the polling loop. Calling Start while running is a no-op.
func (p *Poller[S, D]) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	p.gen++
	gen := p.gen
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	done := make(chan struct{})
	p.done = done
	go p.run(ctx, gen, done)
}

// Stop cancels the loop and waits for the current tick to wind down. Safe to
// call multiple times and before Start.
func (p *Poller[S, D]) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the loop is active.
func (p *Poller[S, D]) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller[S, D]) run(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	interval := p.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	cooldown := p.Cooldown
	if cooldown <= 0 {
		cooldown = 3 * interval
	}

	// first tick fires immediately so views are not blank for a full interval
	if !p.tick(ctx, gen) {
		if !sleep(ctx, cooldown) {
			return
		}
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !p.tick(ctx, gen) {
				// connectivity dropped: pause, then resume on schedule
				if !sleep(ctx, cooldown) {
					return
				}
			}
		}
	}
}

// tick fetches and applies one snapshot. It returns false only for
// connectivity failures, which the loop answers with a cooldown.
func (p *Poller[S, D]) tick(ctx context.Context, gen uint64) bool {
	snap, err := p.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		if p.transient(err) {
			log.Warn().Err(err).Msg("poll: connectivity lost, cooling down")
			return false
		}
		log.Error().Err(err).Msg("poll: fetch failed")
		return true
	}

	p.mu.Lock()
	if p.gen != gen || p.cancel == nil {
		// stopped or restarted while this fetch was in flight
		p.mu.Unlock()
		return true
	}
	delta := p.Diff(p.prev, p.hasPrev, snap)
	p.prev = snap
	p.hasPrev = true
	p.mu.Unlock()

	if p.OnUpdate != nil {
		p.OnUpdate(snap, delta)
	}
	return true
}

func (p *Poller[S, D]) transient(err error) bool {
	if p.IsTransient != nil {
		return p.IsTransient(err)
	}
	return IsConnectivityError(err)
}

// IsConnectivityError reports whether err looks like dropped connectivity
// rather than a server-side failure.
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, context.DeadlineExceeded)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
