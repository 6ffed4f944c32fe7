package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/mlm_storefront/internal/handlers"
	"github.com/Skotchmaster/mlm_storefront/internal/handlers/cart"
	authmw "github.com/Skotchmaster/mlm_storefront/internal/middleware/auth"
	"github.com/Skotchmaster/mlm_storefront/internal/middleware/csrf"
)

type Deps struct {
	Auth           *authmw.SessionAuth
	CSRF           csrf.Config
	AuthHandler    *handlers.AuthHandler
	CartHandler    *cart.CartHandler
	ProductHandler *handlers.ProductHandler
	SearchHandler  *handlers.SearchHandler
	Ready          func() error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(); err != nil {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": err.Error()})
			}
		}
		return c.NoContent(http.StatusOK)
	})

	v1 := e.Group("/api/v1")

	v1.POST("/logout", d.AuthHandler.LogOut, csrf.Middleware(d.CSRF))

	if d.SearchHandler != nil {
		v1.GET("/products/search", d.SearchHandler.Search)
	}
	if d.ProductHandler != nil {
		v1.GET("/products/:id", d.ProductHandler.GetProduct)
	}

	g := v1.Group("/cart", d.Auth.RequireLogin, csrf.Middleware(d.CSRF), d.CartHandler.BindSession)

	g.GET("", d.CartHandler.GetCart)
	g.DELETE("", d.CartHandler.Clear)
	g.POST("/items", d.CartHandler.AddProduct)
	g.POST("/items/:id/increment", d.CartHandler.Increment)
	g.POST("/items/:id/decrement", d.CartHandler.Decrement)
	g.DELETE("/items/:id", d.CartHandler.Remove)
	g.POST("/actions", d.CartHandler.Actions)
	g.POST("/checkout", d.CartHandler.Checkout)
	g.GET("/checkouts", d.CartHandler.History)
}
