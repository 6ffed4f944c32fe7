package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Skotchmaster/mlm_storefront/internal/cart"
)

type entry struct {
	store   *cart.Store
	touched time.Time
}

// Registry holds one in-memory cart per buyer session.
// Nothing here is persisted; a restart empties every cart.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	now      func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*entry),
		now:      time.Now,
	}
}

// Get returns the buyer's store, creating an empty one on first use.
func (r *Registry) Get(buyerID string) *cart.Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[buyerID]
	if !ok {
		e = &entry{store: cart.NewStore()}
		// Holding r.mu while subscribing is safe only because nobody else
		// has seen this store yet.
		e.store.Subscribe(func(*cart.View) { r.touch(e) })
		r.sessions[buyerID] = e
	}
	e.touched = r.now()
	return e.store
}

// touch runs on every cart change, so a store held by a long request still
// counts as active.
func (r *Registry) touch(e *entry) {
	r.mu.Lock()
	e.touched = r.now()
	r.mu.Unlock()
}

// Drop ends the buyer's session and discards the cart.
func (r *Registry) Drop(buyerID string) {
	r.mu.Lock()
	e, ok := r.sessions[buyerID]
	delete(r.sessions, buyerID)
	r.mu.Unlock()

	if ok {
		e.store.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions untouched for longer than maxIdle and returns how
// many were dropped.
func (r *Registry) Sweep(now time.Time, maxIdle time.Duration) int {
	r.mu.Lock()
	var stale []*entry
	for id, e := range r.sessions {
		if now.Sub(e.touched) > maxIdle {
			stale = append(stale, e)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, e := range stale {
		e.store.Close()
	}
	return len(stale)
}

func (r *Registry) Run(ctx context.Context, interval, maxIdle time.Duration, l *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			if n := r.Sweep(t, maxIdle); n > 0 {
				l.Info("idle_sessions_dropped", "count", n, "remaining", r.Len())
			}
		}
	}
}
