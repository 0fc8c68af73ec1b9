package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookrental/internal/domain"
	"bookrental/internal/models"
	"bookrental/internal/testutil"
)

func TestUserCreate(t *testing.T) {
	svc := NewUserService(testutil.NewStore(t), discardLogger())
	ctx := context.Background()

	user, err := svc.Create(ctx, UserInput{Name: "Siti", Email: "Siti@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleUser, user.Role)
	assert.True(t, user.IsActive)
	assert.Equal(t, "siti@example.com", user.Email)

	_, err = svc.Create(ctx, UserInput{Name: "Siti again", Email: "siti@example.com"})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	_, err = svc.Create(ctx, UserInput{Name: "Bad", Email: "not-an-email"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Create(ctx, UserInput{Name: "Root", Email: "root@example.com", Role: "owner"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	users, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestUserEnsureAdmin(t *testing.T) {
	svc := NewUserService(testutil.NewStore(t), discardLogger())
	ctx := context.Background()

	admin, err := svc.EnsureAdmin(ctx, "admin@example.com", "")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
	assert.Equal(t, "Administrator", admin.Name)

	again, err := svc.EnsureAdmin(ctx, "ADMIN@example.com", "Other")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID)

	users, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestUserUpdateProfile(t *testing.T) {
	store := testutil.NewStore(t)
	svc := NewUserService(store, discardLogger())
	ctx := context.Background()

	user, err := svc.Create(ctx, UserInput{Name: "Rina", Email: "rina@example.com", Phone: "0811", Address: "Bandung"})
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, user.ID, ProfileUpdate{Name: strPtr("  Rina Putri "), Phone: strPtr("0812")})
	require.NoError(t, err)
	assert.Equal(t, "Rina Putri", updated.Name)
	assert.Equal(t, "0812", updated.Phone)
	assert.Equal(t, "Bandung", updated.Address, "nil fields are left untouched")
	assert.Equal(t, user.Email, updated.Email)
	assert.Equal(t, user.Role, updated.Role)

	cleared, err := svc.UpdateProfile(ctx, user.ID, ProfileUpdate{Address: strPtr("")})
	require.NoError(t, err)
	assert.Empty(t, cleared.Address)
	assert.Equal(t, "Rina Putri", cleared.Name)

	_, err = svc.UpdateProfile(ctx, user.ID, ProfileUpdate{Name: strPtr("   ")})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.UpdateProfile(ctx, user.ID, ProfileUpdate{Phone: strPtr(strings.Repeat("9", 51))})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.UpdateProfile(ctx, uuid.New(), ProfileUpdate{Name: strPtr("Ghost")})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	stored, err := store.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rina Putri", stored.Name)
}
