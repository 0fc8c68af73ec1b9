package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"bookrental/internal/domain"
	"bookrental/internal/models"
	"bookrental/internal/repositories"
)

type UserInput struct {
	Name    string          `json:"name" validate:"required,max=255"`
	Email   string          `json:"email" validate:"required,email,max=255"`
	Role    models.UserRole `json:"role" validate:"omitempty,oneof=user admin"`
	Phone   string          `json:"phone" validate:"max=50"`
	Address string          `json:"address"`
}

// ProfileUpdate carries the fields a user may change on their own account.
// Nil fields are left untouched.
type ProfileUpdate struct {
	Name    *string `json:"name" validate:"omitnil,required,max=255"`
	Phone   *string `json:"phone" validate:"omitnil,max=50"`
	Address *string `json:"address"`
}

func (u ProfileUpdate) apply(user *models.User) {
	if u.Name != nil {
		user.Name = strings.TrimSpace(*u.Name)
	}
	if u.Phone != nil {
		user.Phone = strings.TrimSpace(*u.Phone)
	}
	if u.Address != nil {
		user.Address = *u.Address
	}
}

// UserService manages the accounts rentals are made for.
type UserService interface {
	Create(ctx context.Context, in UserInput) (*models.User, error)
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, in ProfileUpdate) (*models.User, error)
	// EnsureAdmin returns the user registered under email, creating an active
	// administrator when there is none.
	EnsureAdmin(ctx context.Context, email, name string) (*models.User, error)
}

type userService struct {
	store    repositories.Store
	log      *slog.Logger
	validate *validator.Validate
}

func NewUserService(store repositories.Store, log *slog.Logger) UserService {
	return &userService{
		store:    store,
		log:      log.With("component", "user_service"),
		validate: newValidator(),
	}
}

func (s *userService) Create(ctx context.Context, in UserInput) (*models.User, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	user := &models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    in.Email,
		Role:     in.Role,
		Phone:    in.Phone,
		Address:  in.Address,
		IsActive: true,
	}
	if user.Role == "" {
		user.Role = models.UserRoleUser
	}

	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			err = domain.ErrDuplicateEmail
		}
		return nil, failure(s.log, "create user", err, "email", in.Email)
	}
	s.log.Info("user created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func (s *userService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, failure(s.log, "get user", orNotFound(err, domain.ErrUserNotFound), "user_id", id)
	}
	return user, nil
}

func (s *userService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.store.Users().List(ctx)
	if err != nil {
		return nil, failure(s.log, "list users", err)
	}
	return users, nil
}

func (s *userService) UpdateProfile(ctx context.Context, id uuid.UUID, in ProfileUpdate) (*models.User, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, fmt.Errorf("%w: name must not be blank", domain.ErrValidation)
	}

	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, failure(s.log, "update profile", orNotFound(err, domain.ErrUserNotFound), "user_id", id)
	}
	in.apply(user)

	if err := s.store.Users().UpdateProfile(ctx, user); err != nil {
		return nil, failure(s.log, "update profile", orNotFound(err, domain.ErrUserNotFound), "user_id", id)
	}
	s.log.Info("profile updated", "user_id", user.ID)
	return s.Get(ctx, id)
}

func (s *userService) EnsureAdmin(ctx context.Context, email, name string) (*models.User, error) {
	existing, err := s.store.Users().GetByEmail(ctx, email)
	if err == nil {
		if !existing.IsAdmin() {
			s.log.Warn("bootstrap admin email belongs to a non-admin user", "user_id", existing.ID)
		}
		return existing, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, failure(s.log, "ensure admin", err)
	}

	if name == "" {
		name = "Administrator"
	}
	return s.Create(ctx, UserInput{Name: name, Email: email, Role: models.UserRoleAdmin})
}
