// Package auth registers accounts, logs them in with a password or an OAuth
// identity, and resolves session tokens back to users.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/nusapalma/nusapalma/internal/apperr"
	"github.com/nusapalma/nusapalma/internal/lib/jwt"
	"github.com/nusapalma/nusapalma/internal/lib/password"
	"github.com/nusapalma/nusapalma/internal/lib/sl"
	"github.com/nusapalma/nusapalma/internal/models"
	"github.com/nusapalma/nusapalma/internal/plan"
	"github.com/nusapalma/nusapalma/internal/storage"
)

// User-facing messages.
const (
	MsgEmailTaken         = "Email sudah terdaftar"
	MsgBadCredentials     = "Email atau password salah"
	MsgAccountDisabled    = "Akun Anda telah dinonaktifkan"
	MsgProviderRequired   = "Provider dan email harus diisi"
	MsgInvalidProvider    = "Provider tidak valid"
	MsgWrongPassword      = "Password saat ini salah"
	MsgInvalidToken       = "Token tidak valid"
	MsgExpiredToken       = "Token sudah kadaluarsa, silakan login ulang"
	MsgUserNotFound       = "User tidak ditemukan"
	defaultOAuthName      = "User"
	resourceUser          = "User"
	providerMismatchTempl = "Email ini sudah terdaftar dengan %s. Silakan login dengan provider yang sama."
)

// UserRepository is the account storage the service needs.
type UserRepository interface {
	CreateUser(ctx context.Context, u *models.User) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateOAuth(ctx context.Context, id, provider, oauthID, picture string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate) (*models.User, error)
	UpdatePassword(ctx context.Context, id, hash string) error
}

// Session is what a successful login returns to the client.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// RegisterInput holds the fields of a password registration.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

// OAuthInput is the identity a client obtained from Google or Facebook.
type OAuthInput struct {
	Provider   string
	Email      string
	Name       string
	Picture    string
	ProviderID string
}

// Service implements account operations.
type Service struct {
	users      UserRepository
	tokens     jwt.Maker
	bcryptCost int
	log        *slog.Logger
}

// NewService creates a Service. A nil logger discards output.
func NewService(users UserRepository, tokens jwt.Maker, bcryptCost int, log *slog.Logger) *Service {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		log:        log,
	}
}

// NormalizeEmail lowercases and trims an address before lookup or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a password account on the free plan and logs it in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	const op = "auth.Register"
	email := NormalizeEmail(in.Email)

	_, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, apperr.Validation(MsgEmailTaken)
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := password.GetHash(in.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	created, err := s.users.CreateUser(ctx, &models.User{
		Name:             strings.TrimSpace(in.Name),
		Email:            email,
		PasswordHash:     &hash,
		Phone:            strings.TrimSpace(in.Phone),
		SubscriptionPlan: plan.Free,
		Role:             models.RoleUser,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, apperr.Validation(MsgEmailTaken)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("user registered", sl.Op(op), slog.String("user_id", created.ID))
	return s.session(op, created)
}

// Login checks email and password. Unknown emails, wrong passwords and
// OAuth-only accounts all yield the same message.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (*Session, error) {
	const op = "auth.Login"

	user, err := s.users.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.Unauthorized(MsgBadCredentials)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !user.IsActive {
		return nil, apperr.Unauthorized(MsgAccountDisabled)
	}
	if !user.HasPassword() {
		return nil, apperr.Unauthorized(MsgBadCredentials)
	}
	if err := password.CompareHash(*user.PasswordHash, rawPassword); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			s.log.Info("failed login", sl.Op(op), slog.String("user_id", user.ID))
			return nil, apperr.Unauthorized(MsgBadCredentials)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.session(op, user)
}

// OAuthLogin finds the account for in.Email or creates one. An account that is
// already linked to another provider is refused.
func (s *Service) OAuthLogin(ctx context.Context, in OAuthInput) (*Session, error) {
	const op = "auth.OAuthLogin"

	email := NormalizeEmail(in.Email)
	if in.Provider == "" || email == "" {
		return nil, apperr.Validation(MsgProviderRequired)
	}
	if in.Provider != models.ProviderGoogle && in.Provider != models.ProviderFacebook {
		return nil, apperr.Validation(MsgInvalidProvider)
	}
	oauthID := in.ProviderID
	if oauthID == "" {
		oauthID = email
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		name := strings.TrimSpace(in.Name)
		if name == "" {
			name = defaultOAuthName
		}
		provider := in.Provider
		user, err = s.users.CreateUser(ctx, &models.User{
			Name:             name,
			Email:            email,
			SubscriptionPlan: plan.Free,
			Role:             models.RoleUser,
			ProfilePicture:   in.Picture,
			OAuthProvider:    &provider,
			OAuthID:          &oauthID,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		s.log.Info("user registered", sl.Op(op), slog.String("user_id", user.ID), slog.String("provider", provider))
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	default:
		if user.OAuthProvider != nil && *user.OAuthProvider != in.Provider {
			return nil, apperr.Validation(fmt.Sprintf(providerMismatchTempl, providerName(*user.OAuthProvider)))
		}
		if !user.IsActive {
			return nil, apperr.Unauthorized(MsgAccountDisabled)
		}
		if user.OAuthProvider == nil || (in.Picture != "" && user.ProfilePicture == "") {
			user, err = s.users.UpdateOAuth(ctx, user.ID, in.Provider, oauthID, in.Picture)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}
	}

	return s.session(op, user)
}

// Authenticate resolves a bearer token to an active user.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	const op = "auth.Authenticate"

	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrExpiredToken) {
			return nil, apperr.Unauthorized(MsgExpiredToken)
		}
		return nil, apperr.Unauthorized(MsgInvalidToken)
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.Unauthorized(MsgUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !user.IsActive {
		return nil, apperr.Unauthorized(MsgAccountDisabled)
	}
	return user, nil
}

// GetProfile returns the account of userID.
func (s *Service) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	const op = "auth.GetProfile"

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound(resourceUser)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// UpdateProfile applies the non-nil fields of upd.
func (s *Service) UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.User, error) {
	const op = "auth.UpdateProfile"

	user, err := s.users.UpdateProfile(ctx, userID, upd)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound(resourceUser)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// ChangePassword replaces the password after checking the current one.
// OAuth-only accounts have no current password and are refused.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	const op = "auth.ChangePassword"

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if !user.HasPassword() {
		return apperr.Validation(MsgWrongPassword)
	}
	if err := password.CompareHash(*user.PasswordHash, current); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return apperr.Validation(MsgWrongPassword)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	hash, err := password.GetHash(next, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound(resourceUser)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("password changed", sl.Op(op), slog.String("user_id", userID))
	return nil
}

func (s *Service) session(op string, user *models.User) (*Session, error) {
	token, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Session{Token: token, User: user}, nil
}

func providerName(provider string) string {
	if provider == models.ProviderGoogle {
		return "Google"
	}
	return "Facebook"
}
