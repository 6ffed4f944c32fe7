package cart

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/mlm_storefront/internal/cart"
	"github.com/Skotchmaster/mlm_storefront/internal/logging"
	authmw "github.com/Skotchmaster/mlm_storefront/internal/middleware/auth"
)

type cartResponse struct {
	Items  []cart.LineItem `json:"items"`
	Totals cart.Totals     `json:"totals"`
}

func render(c echo.Context, v *cart.View) error {
	return c.JSON(http.StatusOK, cartResponse{Items: v.Cart.Items(), Totals: v.Totals})
}

// BindSession puts the caller's session store into the request context.
// It must run after RequireLogin.
func (h *CartHandler) BindSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := authmw.UserID(c)
		if userID == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
		}
		ctx := cart.IntoContext(c.Request().Context(), h.Sessions.Get(userID))
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// storeFrom fails loudly when a handler is mounted without BindSession.
func storeFrom(c echo.Context) (*cart.Store, error) {
	s, err := cart.FromContext(c.Request().Context())
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("cart_store_missing", "path", c.Path(), "error", err)
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "cart unavailable")
	}
	return s, nil
}

func productID(c echo.Context) (string, error) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *CartHandler) publish(c echo.Context, event map[string]any) {
	if h.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), 5*time.Second)
	defer cancel()
	key, _ := event["buyerID"].(string)
	if err := h.Publisher.PublishEvent(ctx, h.Topic, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka_publish_error", "type", event["type"], "error", err)
	}
}

// dispatch applies actions and publishes a cart_updated event when the
// cart actually changed.
func (h *CartHandler) dispatch(c echo.Context, actions ...cart.Action) error {
	store, err := storeFrom(c)
	if err != nil {
		return err
	}
	view, changed := store.Apply(actions...)
	if changed {
		kinds := make([]string, len(actions))
		for i, a := range actions {
			kinds[i] = a.Kind()
		}
		h.publish(c, map[string]any{
			"type":      "cart_updated",
			"buyerID":   authmw.UserID(c),
			"actions":   kinds,
			"itemCount": view.Totals.ItemCount,
			"subtotal":  view.Totals.Subtotal,
		})
	}
	return render(c, view)
}
