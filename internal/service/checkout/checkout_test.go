package checkout

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/Skotchmaster/mlm_storefront/internal/cart"
	"github.com/Skotchmaster/mlm_storefront/internal/models"
	"github.com/Skotchmaster/mlm_storefront/pkg/orderclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOrders struct {
	resp    *orderclient.PlaceOrderResponse
	err     error
	calls   int
	lastReq orderclient.PlaceOrderRequest
	lastTok string
	lastKey string
	block   chan struct{}
	entered chan struct{}
	onCall  func()
}

func (s *stubOrders) PlaceOrder(_ context.Context, tok, key string, in orderclient.PlaceOrderRequest) (*orderclient.PlaceOrderResponse, error) {
	s.calls++
	s.lastReq = in
	s.lastTok = tok
	s.lastKey = key
	if s.entered != nil {
		close(s.entered)
	}
	if s.block != nil {
		<-s.block
	}
	if s.onCall != nil {
		s.onCall()
	}
	return s.resp, s.err
}

type stubAttempts struct {
	mu       sync.Mutex
	attempts []*models.CheckoutAttempt
}

func (s *stubAttempts) CreateAttempt(_ context.Context, a *models.CheckoutAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, a)
	return nil
}

type stubPublisher struct {
	events []map[string]any
	err    error
}

func (s *stubPublisher) PublishEvent(_ context.Context, _, _ string, event any) error {
	s.events = append(s.events, event.(map[string]any))
	return s.err
}

func filledStore() *cart.Store {
	s := cart.NewStore()
	s.Dispatch(
		cart.AddProduct{Product: cart.Product{ID: "A", Name: "Soap", Price: 100, PV: 2}},
		cart.AddProduct{Product: cart.Product{ID: "A", Name: "Soap", Price: 100, PV: 2}},
		cart.AddProduct{Product: cart.Product{ID: "B", Name: "Tea", Price: 50}},
	)
	return s
}

var validOpts = Options{StockistID: "st-7", PaymentMethod: PaymentWallet}

func TestBuildRequest(t *testing.T) {
	req, err := BuildRequest("buyer-1", filledStore().Cart(), validOpts)
	require.NoError(t, err)
	assert.Equal(t, "buyer-1", req.BuyerID)
	assert.Equal(t, "st-7", req.StockistID)
	assert.Equal(t, "wallet", req.PaymentMethod)
	assert.Equal(t, []orderclient.OrderLine{{ProductID: "A", Quantity: 2}, {ProductID: "B", Quantity: 1}}, req.LineItems)
}

func TestBuildRequest_Validation(t *testing.T) {
	_, err := BuildRequest("buyer-1", cart.Empty(), validOpts)
	require.ErrorIs(t, err, ErrEmptyCart)

	c := filledStore().Cart()
	_, err = BuildRequest("buyer-1", c, Options{PaymentMethod: PaymentCard})
	require.ErrorIs(t, err, ErrValidation)

	_, err = BuildRequest("buyer-1", c, Options{StockistID: "st", PaymentMethod: "cash"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = BuildRequest(" ", c, validOpts)
	require.ErrorIs(t, err, ErrValidation)
}

func TestCheckout_SuccessClearsCart(t *testing.T) {
	store := filledStore()
	orders := &stubOrders{resp: &orderclient.PlaceOrderResponse{Message: "Order placed successfully", OrderID: "ord-1"}}
	attempts := &stubAttempts{}
	pub := &stubPublisher{}
	svc := &Service{Orders: orders, Attempts: attempts, Publisher: pub, Topic: "cart_events"}

	res, err := svc.Checkout(context.Background(), store, Buyer{ID: "buyer-1", AccessToken: "tok"}, validOpts)
	require.NoError(t, err)
	assert.Equal(t, "Order placed successfully", res.Message)
	assert.Equal(t, "ord-1", res.OrderID)
	assert.Equal(t, 0, store.Cart().Len())

	assert.Equal(t, "tok", orders.lastTok)
	assert.NotEmpty(t, orders.lastKey)

	require.Len(t, attempts.attempts, 1)
	a := attempts.attempts[0]
	assert.Equal(t, models.CheckoutStatusPlaced, a.Status)
	assert.Equal(t, 2, a.ItemCount)
	assert.Equal(t, int64(250), a.Subtotal)
	assert.Equal(t, int64(4), a.PV)
	require.Len(t, a.Lines, 2)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "checkout_completed", pub.events[0]["type"])
}

func TestCheckout_FailureLeavesCartIntact(t *testing.T) {
	store := filledStore()
	before := store.Cart()
	orders := &stubOrders{err: &orderclient.StatusError{Status: http.StatusUnprocessableEntity, Message: "Insufficient wallet balance"}}
	attempts := &stubAttempts{}
	pub := &stubPublisher{}
	svc := &Service{Orders: orders, Attempts: attempts, Publisher: pub, Topic: "cart_events"}

	_, err := svc.Checkout(context.Background(), store, Buyer{ID: "buyer-1"}, validOpts)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Insufficient wallet balance", apiErr.Message)

	assert.Same(t, before, store.Cart())
	assert.True(t, before.Equal(store.Cart()))

	require.Len(t, attempts.attempts, 1)
	assert.Equal(t, models.CheckoutStatusFailed, attempts.attempts[0].Status)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "checkout_failed", pub.events[0]["type"])
}

func TestCheckout_NetworkErrorLeavesCart(t *testing.T) {
	store := filledStore()
	svc := &Service{Orders: &stubOrders{err: errors.New("dial tcp: connection refused")}}

	_, err := svc.Checkout(context.Background(), store, Buyer{ID: "buyer-1"}, validOpts)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSessionExpired))
	assert.Equal(t, 2, store.Cart().Len())
}

func TestCheckout_SessionExpired(t *testing.T) {
	store := filledStore()
	attempts := &stubAttempts{}
	svc := &Service{Orders: &stubOrders{err: orderclient.ErrUnauthorized}, Attempts: attempts}

	_, err := svc.Checkout(context.Background(), store, Buyer{ID: "buyer-1"}, validOpts)
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, 2, store.Cart().Len())
	require.Len(t, attempts.attempts, 1)
	assert.Equal(t, models.CheckoutStatusSessionExpired, attempts.attempts[0].Status)
}

func TestCheckout_ValidationSkipsOrderAPI(t *testing.T) {
	orders := &stubOrders{}
	svc := &Service{Orders: orders}

	_, err := svc.Checkout(context.Background(), cart.NewStore(), Buyer{ID: "buyer-1"}, validOpts)
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, orders.calls)
}

func TestCheckout_ClosedStoreNotCleared(t *testing.T) {
	store := filledStore()
	orders := &stubOrders{
		resp:   &orderclient.PlaceOrderResponse{Message: "ok"},
		onCall: store.Close,
	}
	svc := &Service{Orders: orders}

	_, err := svc.Checkout(context.Background(), store, Buyer{ID: "buyer-1"}, validOpts)
	require.NoError(t, err)
	assert.Equal(t, 2, store.Cart().Len())
}

func TestCheckout_RejectsConcurrentCheckout(t *testing.T) {
	store := filledStore()
	orders := &stubOrders{
		resp:    &orderclient.PlaceOrderResponse{Message: "ok"},
		block:   make(chan struct{}),
		entered: make(chan struct{}),
	}
	svc := &Service{Orders: orders}

	done := make(chan error, 1)
	go func() {
		_, err := svc.Checkout(context.Background(), store, Buyer{ID: "buyer-1"}, validOpts)
		done <- err
	}()
	<-orders.entered

	_, err := svc.Checkout(context.Background(), store, Buyer{ID: "buyer-1"}, validOpts)
	require.ErrorIs(t, err, ErrInProgress)

	close(orders.block)
	require.NoError(t, <-done)
	assert.Equal(t, 0, store.Cart().Len())
}

func TestCheckout_PublishErrorDoesNotFail(t *testing.T) {
	store := filledStore()
	svc := &Service{
		Orders:    &stubOrders{resp: &orderclient.PlaceOrderResponse{Message: "ok"}},
		Publisher: &stubPublisher{err: errors.New("broker down")},
	}

	_, err := svc.Checkout(context.Background(), store, Buyer{ID: "buyer-1"}, validOpts)
	require.NoError(t, err)
}

func TestCheckout_RetryReusesIdempotencyKey(t *testing.T) {
	store := filledStore()
	orders := &stubOrders{err: errors.New("context deadline exceeded")}
	svc := &Service{Orders: orders}

	_, err := svc.Checkout(context.Background(), store, Buyer{ID: "buyer-1"}, validOpts)
	require.Error(t, err)
	first := orders.lastKey
	require.NotEmpty(t, first)

	_, err = svc.Checkout(context.Background(), store, Buyer{ID: "buyer-1"}, validOpts)
	require.Error(t, err)
	assert.Equal(t, first, orders.lastKey)

	store.Dispatch(cart.IncrementProduct{ProductID: "B"})
	_, err = svc.Checkout(context.Background(), store, Buyer{ID: "buyer-1"}, validOpts)
	require.Error(t, err)
	assert.NotEqual(t, first, orders.lastKey)
}
