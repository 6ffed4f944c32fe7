package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/mlm_storefront/internal/handlers"
	"github.com/Skotchmaster/mlm_storefront/internal/handlers/cart"
	authmw "github.com/Skotchmaster/mlm_storefront/internal/middleware/auth"
	"github.com/Skotchmaster/mlm_storefront/internal/middleware/csrf"
	"github.com/Skotchmaster/mlm_storefront/internal/session"
	"github.com/Skotchmaster/mlm_storefront/pkg/tokens"
)

var secret = []byte("router-secret")

func newServer() *echo.Echo {
	reg := session.NewRegistry()
	auth := authmw.NewSessionAuth(secret, false)
	e := echo.New()
	Register(e, &Deps{
		Auth:        auth,
		CSRF:        csrf.DefaultConfig(),
		AuthHandler: &handlers.AuthHandler{Sessions: reg, Auth: auth},
		CartHandler: &cart.CartHandler{Sessions: reg},
	})
	return e
}

func bearer(t *testing.T) string {
	t.Helper()
	tok, err := tokens.SignAccessToken("buyer-1", "user", time.Now().Add(time.Minute), secret)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestCartRequiresLogin(t *testing.T) {
	rec := httptest.NewRecorder()
	newServer().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCartFlowWithBearer(t *testing.T) {
	e := newServer()
	auth := bearer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"id":"A","name":"Soap","price":100}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, auth)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(echo.HeaderAuthorization, auth)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"subtotal":100`)
}

func TestCookieSessionNeedsCSRF(t *testing.T) {
	tok, err := tokens.SignAccessToken("buyer-1", "user", time.Now().Add(time.Minute), secret)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "http://example.com/api/v1/cart", nil)
	req.Header.Set("Origin", "http://example.com")
	req.AddCookie(&http.Cookie{Name: tokens.AccessCookie, Value: tok})
	rec := httptest.NewRecorder()
	newServer().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newServer().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
