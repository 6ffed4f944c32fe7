package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is what the auth service puts in the access token.
// Subject is the buyer (distributor) id.
type AccessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func AccessClaimsFromToken(TokenStr string, AccessSecret []byte) (*AccessClaims, error) {
	var claims AccessClaims
	tkn, err := jwt.ParseWithClaims(TokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return AccessSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return &claims, nil
}

// SignAccessToken issues an HS256 access token. The auth service is the real
// issuer; this exists for local tooling and tests.
func SignAccessToken(subject, role string, exp time.Time, secret []byte) (string, error) {
	claims := AccessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// SubjectFromToken returns the subject of a correctly signed token even after
// it expired. Any other validation failure is returned as is.
func SubjectFromToken(TokenStr string, AccessSecret []byte) (string, error) {
	claims, err := AccessClaimsFromToken(TokenStr, AccessSecret)
	if err == nil {
		return claims.Subject, nil
	}
	if !errors.Is(err, jwt.ErrTokenExpired) {
		return "", err
	}

	// Signature and method are still verified here, only the time checks are skipped.
	var expired AccessClaims
	_, err = jwt.ParseWithClaims(TokenStr, &expired, func(t *jwt.Token) (any, error) {
		return AccessSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		return "", err
	}
	return expired.Subject, nil
}
