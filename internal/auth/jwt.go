// Package auth issues and verifies the bearer tokens that identify callers.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"bookrental/internal/models"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims carries the user id in the standard subject claim plus the role at
// issue time. The role is informational; callers reload the user.
type Claims struct {
	Role models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Identity is what a verified token says about its bearer.
type Identity struct {
	UserID uuid.UUID
	Role   models.UserRole
}

func Issue(secret string, userID uuid.UUID, role models.UserRole, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// Parse verifies an Authorization header value ("Bearer <token>" or the bare
// token) and returns the identity it carries.
func Parse(authHeader, secret string) (Identity, error) {
	fields := strings.Fields(authHeader)
	if len(fields) > 0 && strings.EqualFold(fields[0], "bearer") {
		fields = fields[1:]
	}
	switch len(fields) {
	case 0:
		return Identity{}, ErrMissingToken
	case 1:
	default:
		return Identity{}, fmt.Errorf("%w: malformed authorization header", ErrInvalidToken)
	}
	tokenStr := fields[0]

	var claims Claims
	tok, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return Identity{}, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return Identity{UserID: userID, Role: claims.Role}, nil
}
