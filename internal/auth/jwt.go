package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims wraps the opaque session token so cookies and bearer headers are
// tamper evident. The session itself still lives server side; a valid
// signature only proves the token was issued by this service.
type Claims struct {
	SessionToken string `json:"sid"`
	UserID       string `json:"user_id"`
	Role         string `json:"role"`
	jwt.RegisteredClaims
}

var ErrMissingSecret = errors.New("missing_session_secret")

func NewSessionToken(secret, issuer string, expiresAt time.Time, claims Claims) (string, error) {
	if secret == "" {
		return "", ErrMissingSecret
	}
	now := time.Now().UTC()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseSessionToken(secret, issuer, tokenString string) (*Claims, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithIssuer(issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SessionToken == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
