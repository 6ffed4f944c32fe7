package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/mlm_storefront/internal/cart"
	"github.com/Skotchmaster/mlm_storefront/internal/logging"
	"github.com/Skotchmaster/mlm_storefront/internal/service/search"
)

type ProductGetter interface {
	GetByID(ctx context.Context, id string) (*cart.Product, error)
}

type ProductHandler struct {
	Catalog ProductGetter
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	p, err := h.Catalog.GetByID(c.Request().Context(), id)
	if errors.Is(err, search.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("catalog_lookup_error", "product_id", id, "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "catalog unavailable")
	}
	return c.JSON(http.StatusOK, p)
}
