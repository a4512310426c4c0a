package service

import (
	"context"
	"sync"
)

// ExportedSaveGuard is an exported alias so _test packages can test the guard.
type ExportedSaveGuard = saveGuard

// ─────────────────────────────────────────────────────────────
// saveGuard: one in-flight save per editor session
// ─────────────────────────────────────────────────────────────

// saveGuard ensures only one save for a given key runs at a time and lets
// shutdown wait for the saves still in flight.
type saveGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
	wg       sync.WaitGroup
}

// TryLock attempts to mark key as saving. Returns false if a save for key
// is already running.
func (g *saveGuard) TryLock(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight == nil {
		g.inFlight = make(map[string]struct{})
	}
	if _, ok := g.inFlight[key]; ok {
		return false
	}
	g.inFlight[key] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock releases key. Must be called after TryLock returns true.
func (g *saveGuard) Unlock(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, key)
	g.wg.Done()
}

// Busy reports whether a save for key is running.
func (g *saveGuard) Busy(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.inFlight[key]
	return ok
}

// WaitAll blocks until every in-flight save completes or ctx is cancelled.
func (g *saveGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
