package api

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Auth issues and validates HS256 session tokens.
type Auth struct {
	secret []byte
	ttl    time.Duration
}

// NewAuth creates an Auth instance. ttl bounds token lifetime; zero or
// negative falls back to seven days, matching the web client's cookie.
func NewAuth(secret []byte, ttl time.Duration) *Auth {
	if len(secret) == 0 {
		panic("api.NewAuth: empty secret")
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Auth{secret: secret, ttl: ttl}
}

// Issue signs a token binding the session to the given account.
func (a *Auth) Issue(email string) (string, error) {
	if email == "" {
		return "", errors.New("empty identity")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": email,
		"exp": time.Now().Add(a.ttl).Unix(),
	})
	return token.SignedString(a.secret)
}

// Verify validates a token and returns the account it was issued for.
func (a *Auth) Verify(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("missing sub")
	}
	return sub, nil
}

// UserIDFromAuthHeader extracts the user identifier from an Authorization header.
func (a *Auth) UserIDFromAuthHeader(h string) (string, error) {
	if h == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("bad auth header")
	}
	if strings.Count(parts[1], ".") != 2 {
		return "", errors.New("bad auth header")
	}
	return a.Verify(parts[1])
}
