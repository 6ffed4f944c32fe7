package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Skotchmaster/mlm_storefront/pkg/tokens"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-jwt-secret")

func run(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, echo.Context, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	m := NewSessionAuth(secret, false)
	err := m.RequireLogin(func(c echo.Context) error {
		return c.String(http.StatusOK, UserID(c))
	})(c)
	return rec, c, err
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := tokens.SignAccessToken("buyer-1", "user", exp, secret)
	require.NoError(t, err)
	return tok
}

func TestRequireLogin_Cookie(t *testing.T) {
	tok := signed(t, time.Now().Add(time.Minute))
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(&http.Cookie{Name: tokens.AccessCookie, Value: tok})

	rec, c, err := run(t, req)
	require.NoError(t, err)
	assert.Equal(t, "buyer-1", rec.Body.String())
	assert.Equal(t, tok, AccessToken(c))
}

func TestRequireLogin_Bearer(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+signed(t, time.Now().Add(time.Minute)))

	rec, _, err := run(t, req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireLogin_Missing(t *testing.T) {
	_, _, err := run(t, httptest.NewRequest(http.MethodGet, "/cart", nil))
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestRequireLogin_ExpiredClearsCookies(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(&http.Cookie{Name: tokens.AccessCookie, Value: signed(t, time.Now().Add(-time.Minute))})

	rec, _, err := run(t, req)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusUnauthorized, he.Code)
	assert.Len(t, rec.Result().Cookies(), 2)
}
