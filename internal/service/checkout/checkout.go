package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Skotchmaster/mlm_storefront/internal/cart"
	"github.com/Skotchmaster/mlm_storefront/internal/logging"
	"github.com/Skotchmaster/mlm_storefront/internal/models"
	"github.com/Skotchmaster/mlm_storefront/pkg/orderclient"
	"github.com/google/uuid"
)

var (
	ErrValidation     = errors.New("validation")
	ErrEmptyCart      = errors.New("cart is empty")
	ErrSessionExpired = errors.New("session expired")
	ErrInProgress     = errors.New("checkout already in progress")
)

// APIError is any order API rejection other than an expired session.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("order rejected (%d): %s", e.Status, e.Message)
}

type PaymentMethod string

const (
	PaymentWallet       PaymentMethod = "wallet"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCard         PaymentMethod = "card"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentWallet, PaymentBankTransfer, PaymentCard:
		return true
	default:
		return false
	}
}

type Options struct {
	StockistID    string        `json:"stockist_id"`
	PaymentMethod PaymentMethod `json:"payment_method"`
}

type Buyer struct {
	ID          string
	AccessToken string
}

type Result struct {
	Message string `json:"message"`
	OrderID string `json:"order_id,omitempty"`
}

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, accessToken, idempotencyKey string, in orderclient.PlaceOrderRequest) (*orderclient.PlaceOrderResponse, error)
}

type AttemptRecorder interface {
	CreateAttempt(ctx context.Context, a *models.CheckoutAttempt) error
}

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type Service struct {
	Orders    OrderPlacer
	Attempts  AttemptRecorder
	Publisher Publisher
	Topic     string

	inflight sync.Map
}

// BuildRequest reduces the cart to product id and quantity pairs.
func BuildRequest(buyerID string, c *cart.Cart, opts Options) (orderclient.PlaceOrderRequest, error) {
	if c.Len() == 0 {
		return orderclient.PlaceOrderRequest{}, ErrEmptyCart
	}
	if strings.TrimSpace(buyerID) == "" {
		return orderclient.PlaceOrderRequest{}, fmt.Errorf("buyer id required: %w", ErrValidation)
	}
	if strings.TrimSpace(opts.StockistID) == "" {
		return orderclient.PlaceOrderRequest{}, fmt.Errorf("stockist_id required: %w", ErrValidation)
	}
	if !opts.PaymentMethod.IsValid() {
		return orderclient.PlaceOrderRequest{}, fmt.Errorf("payment_method %q not supported: %w", opts.PaymentMethod, ErrValidation)
	}

	items := c.Items()
	lines := make([]orderclient.OrderLine, len(items))
	for i, it := range items {
		lines[i] = orderclient.OrderLine{ProductID: it.ID, Quantity: it.Quantity}
	}

	return orderclient.PlaceOrderRequest{
		BuyerID:       buyerID,
		LineItems:     lines,
		StockistID:    strings.TrimSpace(opts.StockistID),
		PaymentMethod: string(opts.PaymentMethod),
	}, nil
}

// Checkout hands the store's cart to the order API. The cart is cleared only
// after the API accepts the order; on any error it is left as it was.
// Prices and stock are not re-checked here, the order API owns that.
func (s *Service) Checkout(ctx context.Context, store *cart.Store, buyer Buyer, opts Options) (*Result, error) {
	if _, busy := s.inflight.LoadOrStore(store, struct{}{}); busy {
		return nil, ErrInProgress
	}
	defer s.inflight.Delete(store)

	l := logging.FromContext(ctx).With("component", "checkout", "buyer_id", buyer.ID)

	snapshot, key := store.CheckoutKey(uuid.NewString)
	req, err := BuildRequest(buyer.ID, snapshot, opts)
	if err != nil {
		return nil, err
	}

	resp, err := s.Orders.PlaceOrder(ctx, buyer.AccessToken, key, req)
	if err != nil {
		err = classify(err)
		status := models.CheckoutStatusFailed
		if errors.Is(err, ErrSessionExpired) {
			status = models.CheckoutStatusSessionExpired
		}
		s.record(ctx, l, buyer.ID, snapshot, opts, status, err.Error(), "")
		s.publish(ctx, l, buyer.ID, map[string]any{
			"type":    "checkout_failed",
			"buyerID": buyer.ID,
			"reason":  err.Error(),
		})
		l.Warn("checkout_failed", "error", err)
		return nil, err
	}

	// A dropped session keeps its store closed, so this is a no-op then.
	store.Dispatch(cart.ClearCart{})

	s.record(ctx, l, buyer.ID, snapshot, opts, models.CheckoutStatusPlaced, resp.Message, resp.OrderID)
	s.publish(ctx, l, buyer.ID, map[string]any{
		"type":      "checkout_completed",
		"buyerID":   buyer.ID,
		"orderID":   resp.OrderID,
		"items":     req.LineItems,
		"subtotal":  cart.Summarize(snapshot).Subtotal,
		"stockist":  req.StockistID,
		"paymentBy": req.PaymentMethod,
	})
	l.Info("checkout_completed", "order_id", resp.OrderID)

	return &Result{Message: resp.Message, OrderID: resp.OrderID}, nil
}

func classify(err error) error {
	if errors.Is(err, orderclient.ErrUnauthorized) {
		return fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}
	var se *orderclient.StatusError
	if errors.As(err, &se) {
		msg := se.Message
		if msg == "" {
			msg = "order could not be placed"
		}
		return &APIError{Status: se.Status, Message: msg}
	}
	return fmt.Errorf("place order: %w", err)
}

func (s *Service) record(ctx context.Context, l *slog.Logger, buyerID string, c *cart.Cart, opts Options, status, msg, orderID string) {
	if s.Attempts == nil {
		return
	}
	tot := cart.Summarize(c)
	items := c.Items()
	lines := make([]models.CheckoutLine, len(items))
	for i, it := range items {
		lines[i] = models.CheckoutLine{ProductID: it.ID, Name: it.Name, UnitPrice: it.Price, Quantity: it.Quantity}
	}

	a := &models.CheckoutAttempt{
		BuyerID:       buyerID,
		StockistID:    opts.StockistID,
		PaymentMethod: string(opts.PaymentMethod),
		Status:        status,
		Message:       msg,
		OrderID:       orderID,
		ItemCount:     tot.ItemCount,
		Subtotal:      tot.Subtotal,
		PV:            tot.PV,
		Lines:         lines,
	}
	if err := s.Attempts.CreateAttempt(context.WithoutCancel(ctx), a); err != nil {
		l.Error("checkout_record_error", "error", err)
	}
}

func (s *Service) publish(ctx context.Context, l *slog.Logger, buyerID string, event map[string]any) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.PublishEvent(context.WithoutCancel(ctx), s.Topic, buyerID, event); err != nil {
		l.Error("kafka_publish_error", "error", err)
	}
}
