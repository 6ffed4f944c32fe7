package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Action is one of AddProduct, IncrementProduct, DecrementProduct,
// RemoveProduct or ClearCart.
type Action interface {
	Kind() string
	isAction()
}

type AddProduct struct {
	Product Product
}

type IncrementProduct struct {
	ProductID string
}

type DecrementProduct struct {
	ProductID string
}

type RemoveProduct struct {
	ProductID string
}

type ClearCart struct{}

const (
	KindAdd       = "ADD_PRODUCT"
	KindIncrement = "INCREMENT_PRODUCT"
	KindDecrement = "DECREMENT_PRODUCT"
	KindRemove    = "REMOVE_PRODUCT"
	KindClear     = "CLEAR_CART"
)

func (AddProduct) Kind() string       { return KindAdd }
func (IncrementProduct) Kind() string { return KindIncrement }
func (DecrementProduct) Kind() string { return KindDecrement }
func (RemoveProduct) Kind() string    { return KindRemove }
func (ClearCart) Kind() string        { return KindClear }

func (AddProduct) isAction()       {}
func (IncrementProduct) isAction() {}
func (DecrementProduct) isAction() {}
func (RemoveProduct) isAction()    {}
func (ClearCart) isAction()        {}

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrMissingID     = errors.New("product id required")
)

// WireAction is the tagged JSON form sent by the browser:
// {"type":"ADD_PRODUCT","product":{"id":"A","price":100}}.
type WireAction struct {
	Type    string          `json:"type"`
	Product json.RawMessage `json:"product,omitempty"`
}

// Decode turns a tagged wire action into a typed Action.
func (w WireAction) Decode() (Action, error) {
	kind := strings.ToUpper(strings.TrimSpace(w.Type))
	switch kind {
	case KindClear:
		return ClearCart{}, nil
	case KindAdd, KindIncrement, KindDecrement, KindRemove:
	default:
		return nil, fmt.Errorf("%q: %w", w.Type, ErrUnknownAction)
	}

	var p Product
	if len(w.Product) == 0 {
		return nil, fmt.Errorf("%s: %w", kind, ErrMissingID)
	}
	if err := json.Unmarshal(w.Product, &p); err != nil {
		return nil, fmt.Errorf("%s: decode product: %w", kind, err)
	}
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		return nil, fmt.Errorf("%s: %w", kind, ErrMissingID)
	}

	switch kind {
	case KindAdd:
		return AddProduct{Product: p}, nil
	case KindIncrement:
		return IncrementProduct{ProductID: p.ID}, nil
	case KindDecrement:
		return DecrementProduct{ProductID: p.ID}, nil
	default:
		return RemoveProduct{ProductID: p.ID}, nil
	}
}
