package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/mlm_storefront/internal/logging"
	authmw "github.com/Skotchmaster/mlm_storefront/internal/middleware/auth"
	"github.com/Skotchmaster/mlm_storefront/internal/session"
	"github.com/Skotchmaster/mlm_storefront/pkg/tokens"
)

// AuthHandler ends sessions. Credentials are issued by the order platform,
// this service only ever forgets them.
type AuthHandler struct {
	Sessions *session.Registry
	Auth     *authmw.SessionAuth
}

// LogOut accepts the token the same way RequireLogin does and also when it
// has expired; the cart is dropped whenever a signed token names a buyer.
func (h *AuthHandler) LogOut(c echo.Context) error {
	if raw := authmw.TokenFromRequest(c); raw != "" {
		sub, err := tokens.SubjectFromToken(raw, h.Auth.JWTSecret)
		switch {
		case err != nil:
			logging.FromContext(c.Request().Context()).Warn("logout_token_rejected", "error", err)
		case sub != "":
			h.Sessions.Drop(sub)
		}
	}
	h.Auth.ClearCookies(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out", "redirect": "/login"})
}

// ExpireSession is the forced logout after the order API rejected the
// caller's token.
func (h *AuthHandler) ExpireSession(c echo.Context) {
	userID := authmw.UserID(c)
	h.Sessions.Drop(userID)
	h.Auth.ClearCookies(c)
	logging.FromContext(c.Request().Context()).Info("session_expired_logout", "buyer_id", userID)
}
