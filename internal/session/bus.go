// Package session implements the correlation bus that lets a
// synchronous-looking request/response interaction happen across goroutines
// that only communicate by publishing under an opaque session id.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Kind distinguishes the response slots a session can carry.
type Kind string

const (
	KindSearch  Kind = "search"
	KindGeocode Kind = "geocode"
	KindPOI     Kind = "poi"
)

var (
	ErrDuplicateSession = errors.New("session: duplicate session id")
	ErrSessionNotFound  = errors.New("session: not found")

	// ErrAwaitTimeout is a degraded outcome, not a hard failure: callers
	// proceed with whatever partial data AwaitCount returned.
	ErrAwaitTimeout = errors.New("session: await timed out")
)

type state struct {
	values    map[Kind][]any
	createdAt time.Time
}

// Bus is a mutex-guarded session map with a polling rendezvous. Producers
// Publish, consumers Await*; there is no shared wake-up primitive, so waits
// poll at a fixed interval (latency bounded by the interval).
type Bus struct {
	mu       sync.Mutex
	sessions map[string]*state

	poll time.Duration
	ttl  time.Duration

	stop chan struct{}
	once sync.Once
}

// NewBus creates a bus polling at poll (clamped to 500ms max) and evicting
// sessions older than ttl in a background sweep. ttl <= 0 disables the sweep.
func NewBus(poll, ttl time.Duration) *Bus {
	if poll <= 0 || poll > 500*time.Millisecond {
		poll = 250 * time.Millisecond
	}
	b := &Bus{
		sessions: make(map[string]*state),
		poll:     poll,
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	if ttl > 0 {
		go b.sweep()
	}
	return b
}

// Close stops the eviction sweep. Idempotent.
func (b *Bus) Close() {
	b.once.Do(func() { close(b.stop) })
}

func (b *Bus) sweep() {
	t := time.NewTicker(b.ttl / 2)
	defer t.Stop()
	for {
		select {
		case <-b.stop:
			return
		case <-t.C:
			cutoff := time.Now().Add(-b.ttl)
			b.mu.Lock()
			for id, s := range b.sessions {
				if s.createdAt.Before(cutoff) {
					delete(b.sessions, id)
					log.Warn().Str("session", id).Msg("session evicted by ttl sweep")
				}
			}
			b.mu.Unlock()
		}
	}
}

// Begin registers an empty slot for the session.
func (b *Bus) Begin(sessionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.sessions[sessionID]; ok {
		return ErrDuplicateSession
	}
	b.sessions[sessionID] = &state{
		values:    make(map[Kind][]any),
		createdAt: time.Now(),
	}
	return nil
}

// Publish stores value under kind for the session. Publishing to a session
// that was already cleaned up is expected when the waiter timed out and moved
// on; it is logged and dropped.
func (b *Bus) Publish(sessionID string, kind Kind, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[sessionID]
	if !ok {
		log.Debug().Str("session", sessionID).Str("kind", string(kind)).
			Msg("publish to missing session dropped")
		return
	}
	s.values[kind] = append(s.values[kind], value)
}

// Received reports how many values have arrived for kind.
func (b *Bus) Received(sessionID string, kind Kind) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.sessions[sessionID]; ok {
		return len(s.values[kind])
	}
	return 0
}

// AwaitResult polls until the first value for kind is present, the timeout
// elapses, or ctx is done.
func (b *Bus) AwaitResult(ctx context.Context, sessionID string, kind Kind, timeout time.Duration) (any, error) {
	vs, err := b.AwaitCount(ctx, sessionID, kind, 1, timeout)
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

// AwaitCount polls until at least expected values for kind have arrived. On
// timeout it returns whatever arrived alongside ErrAwaitTimeout, so callers
// can degrade to partial data.
func (b *Bus) AwaitCount(ctx context.Context, sessionID string, kind Kind, expected int, timeout time.Duration) ([]any, error) {
	deadline := time.Now().Add(timeout)
	t := time.NewTicker(b.poll)
	defer t.Stop()
	for {
		vs, ok := b.snapshot(sessionID, kind)
		if !ok {
			return nil, ErrSessionNotFound
		}
		if len(vs) >= expected {
			return vs, nil
		}
		if time.Now().After(deadline) {
			return vs, ErrAwaitTimeout
		}
		select {
		case <-ctx.Done():
			return vs, ctx.Err()
		case <-t.C:
		}
	}
}

func (b *Bus) snapshot(sessionID string, kind Kind) ([]any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[sessionID]
	if !ok {
		return nil, false
	}
	vs := make([]any, len(s.values[kind]))
	copy(vs, s.values[kind])
	return vs, true
}

// End removes all state for the session. Idempotent.
func (b *Bus) End(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, sessionID)
}
