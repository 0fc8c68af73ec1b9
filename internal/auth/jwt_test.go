package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookrental/internal/models"
)

const secret = "test-secret"

func TestIssueParse(t *testing.T) {
	userID := uuid.New()
	token, err := Issue(secret, userID, models.UserRoleAdmin, time.Hour)
	require.NoError(t, err)

	for _, header := range []string{token, "Bearer " + token, "bearer  " + token} {
		id, err := Parse(header, secret)
		require.NoError(t, err, header)
		assert.Equal(t, userID, id.UserID)
		assert.Equal(t, models.UserRoleAdmin, id.Role)
	}
}

func TestParseRejects(t *testing.T) {
	userID := uuid.New()
	valid, err := Issue(secret, userID, models.UserRoleUser, time.Hour)
	require.NoError(t, err)
	expired, err := Issue(secret, userID, models.UserRoleUser, -time.Minute)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: userID.String(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = Parse("", secret)
	assert.ErrorIs(t, err, ErrMissingToken)
	_, err = Parse("Bearer ", secret)
	assert.ErrorIs(t, err, ErrMissingToken)

	for name, header := range map[string]string{
		"wrong secret": valid,
		"expired":      expired,
		"no expiry":    noExp,
		"bad subject":  badSubject,
		"garbage":      "Bearer not.a.token",
	} {
		key := secret
		if name == "wrong secret" {
			key = "other"
		}
		_, err := Parse(header, key)
		assert.ErrorIs(t, err, ErrInvalidToken, name)
	}
}
