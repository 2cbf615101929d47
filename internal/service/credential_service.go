package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"storefront/internal/auth"
	apperrors "storefront/internal/errors"
	"storefront/internal/model"
	"storefront/internal/password"
	"storefront/internal/repository"
)

// RegisterInput carries the fields of a local signup.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// ExternalProfile is the identity an external provider vouches for.
type ExternalProfile struct {
	Email       string
	DisplayName string
	Username    string
}

// AdminCredential is the configured administrator login. It has no user row.
type AdminCredential struct {
	Email    string
	Password string
}

// CredentialService verifies credentials from every supported source: local
// signup, local login (including the configured administrator), and external
// identity delegation.
type CredentialService interface {
	Register(ctx context.Context, in RegisterInput) (*model.User, error)
	Login(ctx context.Context, email, password string) (*auth.Principal, error)
	ExternalDelegate(ctx context.Context, profile ExternalProfile) (*auth.Principal, error)
}

type credentialService struct {
	users  repository.UserRepository
	hasher *password.Hasher
	admin  AdminCredential
	logger *slog.Logger
}

// NewCredentialService creates a credential service.
func NewCredentialService(users repository.UserRepository, hasher *password.Hasher, admin AdminCredential, logger *slog.Logger) CredentialService {
	return &credentialService{
		users:  users,
		hasher: hasher,
		admin:  admin,
		logger: logger.With("component", "credentials"),
	}
}

// Register creates a user with role user. The email check is advisory; the
// unique index on email decides races between concurrent signups.
func (s *credentialService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = model.NormalizeEmail(in.Email)
	if in.FirstName == "" || in.LastName == "" || in.Email == "" || in.Password == "" {
		return nil, apperrors.ErrMissingFields
	}

	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return nil, apperrors.ErrDuplicateEmail
	} else if !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	hashed, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	// Nothing has been written yet, so a cancelled request can stop here.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	user := &model.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hashed,
		Role:         model.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateEmail) {
			return nil, err
		}
		if _, findErr := s.users.FindByEmail(ctx, in.Email); findErr == nil {
			return nil, apperrors.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", slog.String("user_id", user.ID.String()))
	return user, nil
}

// Login authenticates by email and password. Unknown emails and wrong
// passwords fail with the same error after the same amount of hashing work.
func (s *credentialService) Login(ctx context.Context, email, plaintext string) (*auth.Principal, error) {
	email = model.NormalizeEmail(email)
	if email == "" || plaintext == "" {
		return nil, apperrors.ErrInvalidCredentials
	}

	if s.isAdmin(email, plaintext) {
		p := auth.AdminPrincipal(s.admin.Email)
		s.logger.Info("admin login")
		return &p, nil
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			s.hasher.Burn(ctx, plaintext)
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.HasLocalPassword() {
		s.hasher.Burn(ctx, plaintext)
		return nil, apperrors.ErrInvalidCredentials
	}

	ok, err := s.users.ValidatePassword(ctx, user, plaintext)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrInvalidCredentials
	}

	p := auth.PrincipalFromUser(user)
	return &p, nil
}

// ExternalDelegate signs in a user vouched for by an external provider,
// creating a password-less account on first sight.
func (s *credentialService) ExternalDelegate(ctx context.Context, profile ExternalProfile) (*auth.Principal, error) {
	email := model.NormalizeEmail(profile.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: profile has no email", apperrors.ErrUpstreamIdentity)
	}

	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrUserNotFound):
		user, err = s.createExternal(ctx, email, profile)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}

	p := auth.PrincipalFromUser(user)
	return &p, nil
}

func (s *credentialService) createExternal(ctx context.Context, email string, profile ExternalProfile) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	first, last := model.SplitDisplayName(profile.DisplayName, profile.Username)
	user := &model.User{
		FirstName: first,
		LastName:  last,
		Email:     email,
		Role:      model.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// Another request created the same account first.
		if existing, findErr := s.users.FindByEmail(ctx, email); findErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("user created from external identity", slog.String("user_id", user.ID.String()))
	return user, nil
}

func (s *credentialService) isAdmin(email, plaintext string) bool {
	if s.admin.Email == "" || s.admin.Password == "" {
		return false
	}
	emailMatch := subtle.ConstantTimeCompare([]byte(email), []byte(model.NormalizeEmail(s.admin.Email)))
	passwordMatch := subtle.ConstantTimeCompare([]byte(plaintext), []byte(s.admin.Password))
	return emailMatch&passwordMatch == 1
}
