package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/mlm_storefront/internal/cart"
	"github.com/Skotchmaster/mlm_storefront/internal/logging"
	authmw "github.com/Skotchmaster/mlm_storefront/internal/middleware/auth"
	"github.com/Skotchmaster/mlm_storefront/internal/models"
	"github.com/Skotchmaster/mlm_storefront/internal/service/checkout"
	"github.com/Skotchmaster/mlm_storefront/internal/service/search"
	"github.com/Skotchmaster/mlm_storefront/internal/session"
	"github.com/Skotchmaster/mlm_storefront/internal/util"
)

type ProductLookup interface {
	GetByID(ctx context.Context, id string) (*cart.Product, error)
}

type AttemptLister interface {
	ListAttempts(ctx context.Context, buyerID string, limit, offset int) ([]models.CheckoutAttempt, int64, error)
}

type Checkouter interface {
	Checkout(ctx context.Context, store *cart.Store, buyer checkout.Buyer, opts checkout.Options) (*checkout.Result, error)
}

type CartHandler struct {
	Sessions  *session.Registry
	Checkouts Checkouter
	Catalog   ProductLookup
	Attempts  AttemptLister
	Publisher checkout.Publisher
	Topic     string

	// Logout runs when the order API reports the session expired.
	Logout func(c echo.Context)
}

func (h *CartHandler) GetCart(c echo.Context) error {
	store, err := storeFrom(c)
	if err != nil {
		return err
	}
	return render(c, store.View())
}

// AddProduct accepts a full product snapshot, or just {"id"} which is then
// resolved through the catalog once.
func (h *CartHandler) AddProduct(c echo.Context) error {
	var p cart.Product
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	p, err := h.resolveProduct(c, p)
	if err != nil {
		return err
	}
	return h.dispatch(c, cart.AddProduct{Product: p})
}

// resolveProduct completes an id-only product from the catalog and rejects
// negative amounts. Every add path goes through it.
func (h *CartHandler) resolveProduct(c echo.Context, p cart.Product) (cart.Product, error) {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		return p, echo.NewHTTPError(http.StatusBadRequest, "product id required")
	}

	if p.Name == "" {
		if h.Catalog == nil {
			return p, echo.NewHTTPError(http.StatusBadRequest, "product details required")
		}
		found, err := h.Catalog.GetByID(c.Request().Context(), p.ID)
		if errors.Is(err, search.ErrNotFound) {
			return p, echo.NewHTTPError(http.StatusNotFound, "product not found: "+p.ID)
		}
		if err != nil {
			logging.FromContext(c.Request().Context()).Error("catalog_lookup_error", "product_id", p.ID, "error", err)
			return p, echo.NewHTTPError(http.StatusBadGateway, "catalog unavailable")
		}
		p = *found
	}
	if p.Price < 0 || p.PV < 0 {
		return p, echo.NewHTTPError(http.StatusBadRequest, "price and pv must not be negative")
	}
	return p, nil
}

func (h *CartHandler) Increment(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	return h.dispatch(c, cart.IncrementProduct{ProductID: id})
}

func (h *CartHandler) Decrement(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	return h.dispatch(c, cart.DecrementProduct{ProductID: id})
}

func (h *CartHandler) Remove(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	return h.dispatch(c, cart.RemoveProduct{ProductID: id})
}

func (h *CartHandler) Clear(c echo.Context) error {
	return h.dispatch(c, cart.ClearCart{})
}

// Actions applies an ordered batch. The whole batch is decoded and every
// added product resolved first, so one bad action rejects the request with
// nothing applied.
func (h *CartHandler) Actions(c echo.Context) error {
	var req struct {
		Actions []cart.WireAction `json:"actions"`
	}
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if len(req.Actions) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "actions required")
	}

	actions := make([]cart.Action, 0, len(req.Actions))
	for i, w := range req.Actions {
		a, err := w.Decode()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "action "+strconv.Itoa(i)+": "+err.Error())
		}
		if add, ok := a.(cart.AddProduct); ok {
			if add.Product, err = h.resolveProduct(c, add.Product); err != nil {
				return err
			}
			a = add
		}
		actions = append(actions, a)
	}
	return h.dispatch(c, actions...)
}

func (h *CartHandler) Checkout(c echo.Context) error {
	store, err := storeFrom(c)
	if err != nil {
		return err
	}

	var opts checkout.Options
	if err := c.Bind(&opts); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	ctx := c.Request().Context()
	buyer := checkout.Buyer{ID: authmw.UserID(c), AccessToken: authmw.AccessToken(c)}
	res, err := h.Checkouts.Checkout(ctx, store, buyer, opts)
	if err == nil {
		return c.JSON(http.StatusOK, echo.Map{
			"message":  res.Message,
			"order_id": res.OrderID,
			"redirect": "/orders",
		})
	}

	var apiErr *checkout.APIError
	switch {
	case errors.Is(err, checkout.ErrSessionExpired):
		if h.Logout != nil {
			h.Logout(c)
		}
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"message":  "session expired, please log in again",
			"redirect": "/login",
		})
	case errors.Is(err, checkout.ErrEmptyCart), errors.Is(err, checkout.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	case errors.Is(err, checkout.ErrInProgress):
		return c.JSON(http.StatusConflict, echo.Map{"message": err.Error()})
	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status < 400 || status >= 500 {
			status = http.StatusBadGateway
		}
		return c.JSON(status, echo.Map{"message": apiErr.Message})
	default:
		logging.FromContext(ctx).Error("checkout_error", "error", err)
		return c.JSON(http.StatusBadGateway, echo.Map{"message": "order service unavailable, please try again"})
	}
}

func (h *CartHandler) History(c echo.Context) error {
	if h.Attempts == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "history unavailable")
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	offset, limit := util.Calculate(page, size)

	items, total, err := h.Attempts.ListAttempts(c.Request().Context(), authmw.UserID(c), limit, offset)
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("checkout_history_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "could not load history")
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total, "items": items})
}
