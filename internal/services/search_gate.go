package services

import (
	"context"
	"sync"
)

// SearchGate tracks the latest search per client session. Starting a search
// cancels the one still running for the same session, and a result whose
// generation is no longer the latest is reported stale.
type SearchGate struct {
	mu       sync.Mutex
	next     uint64
	sessions map[string]*gateEntry
}

type gateEntry struct {
	gen    uint64
	cancel context.CancelFunc
}

func NewSearchGate() *SearchGate {
	return &SearchGate{sessions: make(map[string]*gateEntry)}
}

// Begin registers a new search for session and returns its context along with
// a finish function. finish must be called once the result is ready; it
// returns ErrStaleSearch when a newer search started in the meantime. An empty
// session is never gated.
func (g *SearchGate) Begin(ctx context.Context, session string) (context.Context, func() error) {
	if session == "" {
		return ctx, func() error { return nil }
	}
	ctx, cancel := context.WithCancel(ctx)

	g.mu.Lock()
	e, ok := g.sessions[session]
	if !ok {
		e = &gateEntry{}
		g.sessions[session] = e
	} else if e.cancel != nil {
		e.cancel()
	}
	g.next++
	e.gen = g.next
	gen := e.gen
	e.cancel = cancel
	g.mu.Unlock()

	return ctx, func() error {
		defer cancel()
		g.mu.Lock()
		defer g.mu.Unlock()
		cur, ok := g.sessions[session]
		if !ok || cur.gen != gen {
			return ErrStaleSearch
		}
		delete(g.sessions, session)
		return nil
	}
}

// Active reports how many sessions have a search in flight.
func (g *SearchGate) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sessions)
}
