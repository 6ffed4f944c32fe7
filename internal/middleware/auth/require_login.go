package auth

import (
	"net/http"
	"strings"

	"github.com/Skotchmaster/mlm_storefront/pkg/tokens"
	"github.com/labstack/echo/v4"
)

const (
	CtxUserID      = "user_id"
	CtxRole        = "role"
	CtxAccessToken = "access_token"
)

type SessionAuth struct {
	JWTSecret     []byte
	SecureCookies bool
}

func NewSessionAuth(secret []byte, secureCookies bool) *SessionAuth {
	return &SessionAuth{JWTSecret: secret, SecureCookies: secureCookies}
}

// RequireLogin accepts the access token from the accessToken cookie or an
// Authorization: Bearer header.
func (m *SessionAuth) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := TokenFromRequest(c)
		if raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		claims, err := tokens.AccessClaimsFromToken(raw, m.JWTSecret)
		if err != nil || claims == nil {
			m.ClearCookies(c)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}
		if claims.Subject == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "token has no subject")
		}

		c.Set(CtxUserID, claims.Subject)
		c.Set(CtxRole, claims.Role)
		c.Set(CtxAccessToken, raw)
		return next(c)
	}
}

func (m *SessionAuth) ClearCookies(c echo.Context) {
	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/", m.SecureCookies))
	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, "/", m.SecureCookies))
}

// TokenFromRequest returns the Bearer token, or the accessToken cookie when
// there is no Authorization header.
func TokenFromRequest(c echo.Context) string {
	if raw := bearerToken(c.Request()); raw != "" {
		return raw
	}
	if ck, err := c.Cookie(tokens.AccessCookie); err == nil {
		return ck.Value
	}
	return ""
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get(echo.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func UserID(c echo.Context) string {
	s, _ := c.Get(CtxUserID).(string)
	return s
}

func AccessToken(c echo.Context) string {
	s, _ := c.Get(CtxAccessToken).(string)
	return s
}
