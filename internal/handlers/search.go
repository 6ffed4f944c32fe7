package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/mlm_storefront/internal/cart"
	"github.com/Skotchmaster/mlm_storefront/internal/logging"
	"github.com/Skotchmaster/mlm_storefront/internal/util"
)

type ProductSearcher interface {
	Search(ctx context.Context, query string, from, size int) (int64, []cart.Product, error)
}

type SearchHandler struct {
	Catalog ProductSearcher
}

func (h *SearchHandler) Search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	from, size := util.Calculate(page, size)

	total, products, err := h.Catalog.Search(c.Request().Context(), q, from, size)
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("catalog_search_error", "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "search unavailable")
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total, "products": products})
}
