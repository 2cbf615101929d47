package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"storefront/internal/auth"
	"storefront/internal/cache"
	apperrors "storefront/internal/errors"
	"storefront/internal/model"
	"storefront/internal/password"
	"storefront/internal/repository"
)

const userCacheTTL = 5 * time.Minute

// UpdateUserInput holds the fields a PUT may change. Nil fields are left alone.
type UpdateUserInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	Password  *string
	Role      *string
}

// UserService exposes account management operations.
type UserService interface {
	ListUsers(ctx context.Context) ([]model.UserSummary, error)
	GetUser(ctx context.Context, id uuid.UUID) (*model.UserSummary, error)
	UpdateUser(ctx context.Context, actor *auth.Principal, id uuid.UUID, in UpdateUserInput) (*model.UserSummary, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type userService struct {
	repo   repository.UserRepository
	hasher *password.Hasher
	cache  *cache.Client
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, hasher *password.Hasher, cache *cache.Client) UserService {
	return &userService{repo: repo, hasher: hasher, cache: cache}
}

func (s *userService) cacheKey(id uuid.UUID) string {
	return fmt.Sprintf("user:%s", id)
}

func (s *userService) ListUsers(ctx context.Context) ([]model.UserSummary, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.UserSummary, len(users))
	for i := range users {
		out[i] = users[i].Summary()
	}
	return out, nil
}

func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*model.UserSummary, error) {
	var cached model.UserSummary
	if s.cache.GetJSON(ctx, s.cacheKey(id), &cached) {
		return &cached, nil
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	summary := user.Summary()
	s.cache.SetJSON(ctx, s.cacheKey(id), summary, userCacheTTL)
	return &summary, nil
}

// UpdateUser applies in to the user. A role change is honoured only when the
// actor is an administrator; for anyone else it is silently dropped.
func (s *userService) UpdateUser(ctx context.Context, actor *auth.Principal, id uuid.UUID, in UpdateUserInput) (*model.UserSummary, error) {
	var role string
	if in.Role != nil && actor.IsAdmin() {
		role = strings.ToLower(strings.TrimSpace(*in.Role))
		if role != "" && role != model.RoleUser && role != model.RoleAdmin {
			return nil, apperrors.ErrInvalidRole
		}
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil && strings.TrimSpace(*in.FirstName) != "" {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil && strings.TrimSpace(*in.LastName) != "" {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Email != nil && model.NormalizeEmail(*in.Email) != "" {
		email := model.NormalizeEmail(*in.Email)
		if email != user.Email {
			if other, err := s.repo.FindByEmail(ctx, email); err == nil && other.ID != user.ID {
				return nil, apperrors.ErrDuplicateEmail
			} else if err != nil && !errors.Is(err, apperrors.ErrUserNotFound) {
				return nil, fmt.Errorf("check user existence: %w", err)
			}
			user.Email = email
		}
	}
	if in.Password != nil && *in.Password != "" {
		hashed, err := s.hasher.Hash(ctx, *in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hashed
	}
	if role != "" {
		user.Role = role
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))

	summary := user.Summary()
	return &summary, nil
}

func (s *userService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return nil
}
