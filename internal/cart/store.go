package cart

import (
	"context"
	"errors"
	"sync"
)

// View is the memoized read model handed to consumers.
type View struct {
	Cart   *Cart
	Totals Totals
}

// Store owns one cart for a session. All mutation goes through Dispatch.
type Store struct {
	mu     sync.Mutex
	cart   *Cart
	view   *View
	closed bool

	subs   map[int]func(*View)
	nextID int

	keyCart *Cart
	key     string
}

func NewStore() *Store {
	c := Empty()
	return &Store{
		cart: c,
		view: &View{Cart: c, Totals: Summarize(c)},
		subs: make(map[int]func(*View)),
	}
}

// Dispatch applies actions in order and returns the resulting cart.
// A closed store ignores actions.
func (s *Store) Dispatch(actions ...Action) *Cart {
	v, _ := s.Apply(actions...)
	return v.Cart
}

// Apply is Dispatch that also reports, under the same lock, whether the
// cart changed and which view resulted.
func (s *Store) Apply(actions ...Action) (*View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.view, false
	}

	changed := false
	for _, a := range actions {
		next := Reduce(s.cart, a)
		if next == s.cart {
			continue
		}
		changed = true
		s.cart = next
		s.view = &View{Cart: next, Totals: Summarize(next)}
		for _, fn := range s.subs {
			fn(s.view)
		}
	}
	return s.view, changed
}

// CheckoutKey returns the current cart with its checkout idempotency key.
// The key is generated once and kept until the cart changes, so retries of
// the same cart reuse it.
func (s *Store) CheckoutKey(gen func() string) (*Cart, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key == "" || s.keyCart != s.cart {
		s.key = gen()
		s.keyCart = s.cart
	}
	return s.cart, s.key
}

func (s *Store) Cart() *Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart
}

// View returns the current view. The pointer changes only when the cart does.
func (s *Store) View() *View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Subscribe registers fn to be called after every change, while the store
// lock is held. fn must not call back into the store.
func (s *Store) Subscribe(fn func(*View)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Close discards the store. Later dispatches become no-ops.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = make(map[int]func(*View))
}

func (s *Store) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

var ErrNoStore = errors.New("cart: no store in context")

type ctxKey struct{}

func IntoContext(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the store attached by IntoContext. A missing store is
// a wiring bug, reported as ErrNoStore rather than an empty cart.
func FromContext(ctx context.Context) (*Store, error) {
	if s, ok := ctx.Value(ctxKey{}).(*Store); ok && s != nil {
		return s, nil
	}
	return nil, ErrNoStore
}
