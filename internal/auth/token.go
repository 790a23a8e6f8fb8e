// Package auth issues and verifies bearer tokens and hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"fintrack/internal/core"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload. UserID duplicates the subject as a number.
type Claims struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 tokens with a shared secret.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	i.now = now
	return i
}

func (i *TokenIssuer) Issue(id core.Identity) (string, error) {
	now := i.now()
	claims := Claims{
		UserID:   id.UserID,
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature and expiry and returns the embedded identity.
// All failures wrap core.ErrInvalidToken.
func (i *TokenIssuer) Parse(token string) (core.Identity, error) {
	if token == "" {
		return core.Identity{}, fmt.Errorf("%w: missing", core.ErrInvalidToken)
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return core.Identity{}, fmt.Errorf("%w: expired", core.ErrInvalidToken)
		}
		return core.Identity{}, fmt.Errorf("%w: %v", core.ErrInvalidToken, err)
	}

	id := claims.UserID
	if id == 0 && claims.Subject != "" {
		id, _ = strconv.ParseInt(claims.Subject, 10, 64)
	}
	if id <= 0 {
		return core.Identity{}, fmt.Errorf("%w: no user id", core.ErrInvalidToken)
	}
	return core.Identity{UserID: id, Username: claims.Username}, nil
}
