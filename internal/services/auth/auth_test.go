package auth_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nusapalma/nusapalma/internal/apperr"
	customjwt "github.com/nusapalma/nusapalma/internal/lib/jwt"
	"github.com/nusapalma/nusapalma/internal/lib/password"
	"github.com/nusapalma/nusapalma/internal/models"
	"github.com/nusapalma/nusapalma/internal/plan"
	"github.com/nusapalma/nusapalma/internal/services/auth"
	"github.com/nusapalma/nusapalma/internal/storage"
)

const testCost = 4

type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) UpdateOAuth(ctx context.Context, id, provider, oauthID, picture string) (*models.User, error) {
	args := m.Called(ctx, id, provider, oauthID, picture)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate) (*models.User, error) {
	args := m.Called(ctx, id, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) UpdatePassword(ctx context.Context, id, hash string) error {
	args := m.Called(ctx, id, hash)
	return args.Error(0)
}

type JwtMakerMock struct {
	mock.Mock
}

func (m *JwtMakerMock) GenerateToken(userID, role string) (string, error) {
	args := m.Called(userID, role)
	return args.String(0), args.Error(1)
}

func (m *JwtMakerMock) ParseToken(token string) (*customjwt.CustomClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customjwt.CustomClaims), args.Error(1)
}

func hashed(t *testing.T, raw string) *string {
	t.Helper()
	h, err := password.GetHash(raw, testCost)
	require.NoError(t, err)
	return &h
}

func strPtr(s string) *string { return &s }

func TestService_Register(t *testing.T) {
	tests := []struct {
		name      string
		input     auth.RegisterInput
		setup     func(r *UserRepoMock, j *JwtMakerMock)
		wantToken string
		wantErr   error
		wantMsg   string
	}{
		{
			name:  "success normalizes email",
			input: auth.RegisterInput{Name: " Budi ", Email: "  Budi@Example.COM ", Password: "rahasia123", Phone: "0812"},
			setup: func(r *UserRepoMock, j *JwtMakerMock) {
				r.On("GetUserByEmail", mock.Anything, "budi@example.com").Return(nil, storage.ErrNotFound).Once()
				r.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
					return u.Email == "budi@example.com" &&
						u.Name == "Budi" &&
						u.HasPassword() && *u.PasswordHash != "rahasia123" &&
						u.Role == models.RoleUser &&
						u.SubscriptionPlan == plan.Free
				})).Return(&models.User{ID: "u-1", Email: "budi@example.com", Role: models.RoleUser, IsActive: true}, nil).Once()
				j.On("GenerateToken", "u-1", models.RoleUser).Return("token-1", nil).Once()
			},
			wantToken: "token-1",
		},
		{
			name:  "email already registered",
			input: auth.RegisterInput{Name: "Budi", Email: "budi@example.com", Password: "rahasia123"},
			setup: func(r *UserRepoMock, _ *JwtMakerMock) {
				r.On("GetUserByEmail", mock.Anything, "budi@example.com").Return(&models.User{ID: "u-1"}, nil).Once()
			},
			wantErr: apperr.ErrValidation,
			wantMsg: auth.MsgEmailTaken,
		},
		{
			name:  "lost race on unique email",
			input: auth.RegisterInput{Name: "Budi", Email: "budi@example.com", Password: "rahasia123"},
			setup: func(r *UserRepoMock, _ *JwtMakerMock) {
				r.On("GetUserByEmail", mock.Anything, "budi@example.com").Return(nil, storage.ErrNotFound).Once()
				r.On("CreateUser", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("wrap: %w", storage.ErrAlreadyExists)).Once()
			},
			wantErr: apperr.ErrValidation,
			wantMsg: auth.MsgEmailTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			jwtMock := new(JwtMakerMock)
			tt.setup(repo, jwtMock)
			svc := auth.NewService(repo, jwtMock, testCost, nil)

			got, err := svc.Register(context.Background(), tt.input)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.wantMsg, apperr.Message(err, ""))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantToken, got.Token)
				assert.Equal(t, "u-1", got.User.ID)
			}
			repo.AssertExpectations(t)
			jwtMock.AssertExpectations(t)
		})
	}
}

func TestService_Login(t *testing.T) {
	const raw = "correctpassword"

	tests := []struct {
		name     string
		email    string
		password string
		user     *models.User
		repoErr  error
		wantErr  error
		wantMsg  string
	}{
		{name: "success", email: "Budi@example.com", password: raw, user: &models.User{ID: "u-1", Role: models.RoleUser, IsActive: true, PasswordHash: hashed(t, raw)}},
		{name: "unknown email", email: "nobody@example.com", password: raw, repoErr: storage.ErrNotFound, wantErr: apperr.ErrUnauthorized, wantMsg: auth.MsgBadCredentials},
		{name: "wrong password", email: "budi@example.com", password: "nope", user: &models.User{ID: "u-1", IsActive: true, PasswordHash: hashed(t, raw)}, wantErr: apperr.ErrUnauthorized, wantMsg: auth.MsgBadCredentials},
		{name: "oauth only account", email: "budi@example.com", password: raw, user: &models.User{ID: "u-1", IsActive: true, OAuthProvider: strPtr(models.ProviderGoogle)}, wantErr: apperr.ErrUnauthorized, wantMsg: auth.MsgBadCredentials},
		{name: "disabled account", email: "budi@example.com", password: raw, user: &models.User{ID: "u-1", IsActive: false, PasswordHash: hashed(t, raw)}, wantErr: apperr.ErrUnauthorized, wantMsg: auth.MsgAccountDisabled},
		{name: "storage failure", email: "budi@example.com", password: raw, repoErr: errors.New("db down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			jwtMock := new(JwtMakerMock)
			repo.On("GetUserByEmail", mock.Anything, auth.NormalizeEmail(tt.email)).Return(tt.user, tt.repoErr).Once()
			if tt.wantErr == nil && tt.repoErr == nil {
				jwtMock.On("GenerateToken", "u-1", models.RoleUser).Return("token-1", nil).Once()
			}
			svc := auth.NewService(repo, jwtMock, testCost, nil)

			got, err := svc.Login(context.Background(), tt.email, tt.password)
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.wantMsg, apperr.Message(err, ""))
			case tt.repoErr != nil:
				require.Error(t, err)
				assert.Equal(t, 500, apperr.HTTPStatus(err))
			default:
				require.NoError(t, err)
				assert.Equal(t, "token-1", got.Token)
			}
			repo.AssertExpectations(t)
			jwtMock.AssertExpectations(t)
		})
	}
}

func TestService_OAuthLogin(t *testing.T) {
	t.Run("creates account on first login", func(t *testing.T) {
		repo := new(UserRepoMock)
		jwtMock := new(JwtMakerMock)
		repo.On("GetUserByEmail", mock.Anything, "siti@example.com").Return(nil, storage.ErrNotFound).Once()
		repo.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
			return u.Name == "User" &&
				!u.HasPassword() &&
				*u.OAuthProvider == models.ProviderGoogle &&
				*u.OAuthID == "g-42" &&
				u.ProfilePicture == "https://img/siti.png"
		})).Return(&models.User{ID: "u-2", Role: models.RoleUser, IsActive: true}, nil).Once()
		jwtMock.On("GenerateToken", "u-2", models.RoleUser).Return("token-2", nil).Once()

		svc := auth.NewService(repo, jwtMock, testCost, nil)
		got, err := svc.OAuthLogin(context.Background(), auth.OAuthInput{
			Provider: models.ProviderGoogle, Email: "Siti@Example.com", Picture: "https://img/siti.png", ProviderID: "g-42",
		})
		require.NoError(t, err)
		assert.Equal(t, "token-2", got.Token)
		repo.AssertExpectations(t)
	})

	t.Run("links provider to password account", func(t *testing.T) {
		repo := new(UserRepoMock)
		jwtMock := new(JwtMakerMock)
		existing := &models.User{ID: "u-1", Role: models.RoleUser, IsActive: true, PasswordHash: hashed(t, "x")}
		repo.On("GetUserByEmail", mock.Anything, "budi@example.com").Return(existing, nil).Once()
		repo.On("UpdateOAuth", mock.Anything, "u-1", models.ProviderFacebook, "budi@example.com", "").
			Return(existing, nil).Once()
		jwtMock.On("GenerateToken", "u-1", models.RoleUser).Return("token-1", nil).Once()

		svc := auth.NewService(repo, jwtMock, testCost, nil)
		_, err := svc.OAuthLogin(context.Background(), auth.OAuthInput{Provider: models.ProviderFacebook, Email: "budi@example.com"})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("same provider with picture set skips update", func(t *testing.T) {
		repo := new(UserRepoMock)
		jwtMock := new(JwtMakerMock)
		existing := &models.User{ID: "u-1", Role: models.RoleUser, IsActive: true,
			OAuthProvider: strPtr(models.ProviderGoogle), ProfilePicture: "old.png"}
		repo.On("GetUserByEmail", mock.Anything, "budi@example.com").Return(existing, nil).Once()
		jwtMock.On("GenerateToken", "u-1", models.RoleUser).Return("token-1", nil).Once()

		svc := auth.NewService(repo, jwtMock, testCost, nil)
		_, err := svc.OAuthLogin(context.Background(), auth.OAuthInput{Provider: models.ProviderGoogle, Email: "budi@example.com", Picture: "new.png"})
		require.NoError(t, err)
		repo.AssertNotCalled(t, "UpdateOAuth", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("different provider is refused", func(t *testing.T) {
		repo := new(UserRepoMock)
		existing := &models.User{ID: "u-1", IsActive: true, OAuthProvider: strPtr(models.ProviderGoogle)}
		repo.On("GetUserByEmail", mock.Anything, "budi@example.com").Return(existing, nil).Once()

		svc := auth.NewService(repo, new(JwtMakerMock), testCost, nil)
		_, err := svc.OAuthLogin(context.Background(), auth.OAuthInput{Provider: models.ProviderFacebook, Email: "budi@example.com"})
		require.ErrorIs(t, err, apperr.ErrValidation)
		assert.Contains(t, apperr.Message(err, ""), "Google")
	})

	t.Run("input validation", func(t *testing.T) {
		svc := auth.NewService(new(UserRepoMock), new(JwtMakerMock), testCost, nil)

		_, err := svc.OAuthLogin(context.Background(), auth.OAuthInput{Provider: models.ProviderGoogle})
		assert.Equal(t, auth.MsgProviderRequired, apperr.Message(err, ""))

		_, err = svc.OAuthLogin(context.Background(), auth.OAuthInput{Provider: "github", Email: "a@b.c"})
		assert.Equal(t, auth.MsgInvalidProvider, apperr.Message(err, ""))
	})
}

func TestService_Authenticate(t *testing.T) {
	tests := []struct {
		name     string
		parseErr error
		user     *models.User
		repoErr  error
		wantMsg  string
	}{
		{name: "active user", user: &models.User{ID: "u-1", IsActive: true}},
		{name: "expired token", parseErr: fmt.Errorf("jwt.ParseToken: %w", customjwt.ErrExpiredToken), wantMsg: auth.MsgExpiredToken},
		{name: "bad token", parseErr: fmt.Errorf("jwt.ParseToken: %w", customjwt.ErrInvalidToken), wantMsg: auth.MsgInvalidToken},
		{name: "deleted user", repoErr: storage.ErrNotFound, wantMsg: auth.MsgUserNotFound},
		{name: "inactive user", user: &models.User{ID: "u-1", IsActive: false}, wantMsg: auth.MsgAccountDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			jwtMock := new(JwtMakerMock)
			if tt.parseErr != nil {
				jwtMock.On("ParseToken", "tok").Return(nil, tt.parseErr).Once()
			} else {
				jwtMock.On("ParseToken", "tok").Return(&customjwt.CustomClaims{UserID: "u-1", Role: models.RoleUser}, nil).Once()
				repo.On("GetUserByID", mock.Anything, "u-1").Return(tt.user, tt.repoErr).Once()
			}
			svc := auth.NewService(repo, jwtMock, testCost, nil)

			got, err := svc.Authenticate(context.Background(), "tok")
			if tt.wantMsg != "" {
				require.ErrorIs(t, err, apperr.ErrUnauthorized)
				assert.Equal(t, tt.wantMsg, apperr.Message(err, ""))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "u-1", got.ID)
		})
	}
}

func TestService_ChangePassword(t *testing.T) {
	const current = "lama123"

	t.Run("success", func(t *testing.T) {
		repo := new(UserRepoMock)
		repo.On("GetUserByID", mock.Anything, "u-1").Return(&models.User{ID: "u-1", PasswordHash: hashed(t, current)}, nil).Once()
		repo.On("UpdatePassword", mock.Anything, "u-1", mock.MatchedBy(func(h string) bool {
			return password.CompareHash(h, "baru456") == nil
		})).Return(nil).Once()

		svc := auth.NewService(repo, new(JwtMakerMock), testCost, nil)
		require.NoError(t, svc.ChangePassword(context.Background(), "u-1", current, "baru456"))
		repo.AssertExpectations(t)
	})

	t.Run("wrong current password", func(t *testing.T) {
		repo := new(UserRepoMock)
		repo.On("GetUserByID", mock.Anything, "u-1").Return(&models.User{ID: "u-1", PasswordHash: hashed(t, current)}, nil).Once()

		svc := auth.NewService(repo, new(JwtMakerMock), testCost, nil)
		err := svc.ChangePassword(context.Background(), "u-1", "salah", "baru456")
		require.ErrorIs(t, err, apperr.ErrValidation)
		assert.Equal(t, auth.MsgWrongPassword, apperr.Message(err, ""))
		repo.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown user", func(t *testing.T) {
		repo := new(UserRepoMock)
		repo.On("GetUserByID", mock.Anything, "u-9").Return(nil, storage.ErrNotFound).Once()

		svc := auth.NewService(repo, new(JwtMakerMock), testCost, nil)
		err := svc.ChangePassword(context.Background(), "u-9", current, "baru456")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestService_UpdateProfile(t *testing.T) {
	repo := new(UserRepoMock)
	name := "Budi Santoso"
	upd := models.ProfileUpdate{Name: &name}
	repo.On("UpdateProfile", mock.Anything, "u-1", upd).Return(&models.User{ID: "u-1", Name: name}, nil).Once()
	repo.On("UpdateProfile", mock.Anything, "u-9", upd).Return(nil, storage.ErrNotFound).Once()

	svc := auth.NewService(repo, new(JwtMakerMock), testCost, nil)

	got, err := svc.UpdateProfile(context.Background(), "u-1", upd)
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)

	_, err = svc.UpdateProfile(context.Background(), "u-9", upd)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
