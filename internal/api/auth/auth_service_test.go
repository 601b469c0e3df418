package auth

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/go-pedidos-api/config"
	"github.com/FACorreiaa/go-pedidos-api/internal/types"
)

type MockAuthRepo struct {
	mock.Mock
}

func (m *MockAuthRepo) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockAuthRepo) FindCaller(ctx context.Context, userID uuid.UUID) (*types.Caller, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Caller), args.Error(1)
}

func (m *MockAuthRepo) StoreRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, token, expiresAt)
	return args.Error(0)
}

func (m *MockAuthRepo) ConsumeRefreshToken(ctx context.Context, token string) (uuid.UUID, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockAuthRepo) CreateAdminIfMissing(ctx context.Context, u *types.User) (bool, error) {
	args := m.Called(ctx, u)
	return args.Bool(0), args.Error(1)
}

var testJWT = config.JWTConfig{
	SecretKey:       "test-secret",
	Issuer:          "go-pedidos-api",
	Audience:        "go-pedidos-api",
	AccessTokenTTL:  5 * time.Minute,
	RefreshTokenTTL: 24 * time.Hour,
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, testJWT, slog.Default())
		user := &types.User{ID: userID, Email: "maria@example.com", PasswordHash: hashed(t, "s3cret")}

		mockRepo.On("GetUserByEmail", mock.Anything, "maria@example.com").Return(user, nil).Once()
		mockRepo.On("StoreRefreshToken", mock.Anything, userID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
			Return(nil).Once()

		pair, err := service.Login(ctx, " maria@example.com ", "s3cret")
		require.NoError(t, err)
		assert.NotEmpty(t, pair.Access)
		assert.NotEmpty(t, pair.Refresh)

		caller := &types.Caller{UserID: userID}
		mockRepo.On("FindCaller", mock.Anything, userID).Return(caller, nil).Once()
		got, err := service.CallerFromToken(ctx, pair.Access)
		require.NoError(t, err)
		assert.Equal(t, caller, got)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Wrong password", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, testJWT, slog.Default())
		user := &types.User{ID: userID, PasswordHash: hashed(t, "s3cret")}
		mockRepo.On("GetUserByEmail", mock.Anything, "maria@example.com").Return(user, nil).Once()

		_, err := service.Login(ctx, "maria@example.com", "nope")
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
		mockRepo.AssertNotCalled(t, "StoreRefreshToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Unknown email is indistinguishable", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, testJWT, slog.Default())
		mockRepo.On("GetUserByEmail", mock.Anything, "ghost@example.com").Return(nil, types.ErrNotFound).Once()

		_, err := service.Login(ctx, "ghost@example.com", "whatever")
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
	})

	t.Run("Repository failure", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, testJWT, slog.Default())
		mockRepo.On("GetUserByEmail", mock.Anything, "maria@example.com").Return(nil, errors.New("db down")).Once()

		_, err := service.Login(ctx, "maria@example.com", "s3cret")
		require.Error(t, err)
		assert.NotErrorIs(t, err, types.ErrUnauthenticated)
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, testJWT, slog.Default())
		mockRepo.On("ConsumeRefreshToken", mock.Anything, "tok").Return(userID, nil).Once()
		mockRepo.On("FindCaller", mock.Anything, userID).Return(&types.Caller{UserID: userID}, nil).Once()

		access, err := service.Refresh(ctx, "tok")
		require.NoError(t, err)
		assert.NotEmpty(t, access)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Consumed or unknown token", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, testJWT, slog.Default())
		mockRepo.On("ConsumeRefreshToken", mock.Anything, "tok").Return(uuid.Nil, types.ErrNotFound).Once()

		_, err := service.Refresh(ctx, "tok")
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
	})

	t.Run("Deleted user", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, testJWT, slog.Default())
		mockRepo.On("ConsumeRefreshToken", mock.Anything, "tok").Return(userID, nil).Once()
		mockRepo.On("FindCaller", mock.Anything, userID).Return(nil, types.ErrNotFound).Once()

		_, err := service.Refresh(ctx, "tok")
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
	})

	t.Run("Empty token", func(t *testing.T) {
		service := NewAuthService(new(MockAuthRepo), testJWT, slog.Default())
		_, err := service.Refresh(ctx, "  ")
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
	})
}

func TestCallerFromToken(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	sign := func(t *testing.T, claims types.Claims, secret string) string {
		t.Helper()
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}
	valid := func() types.Claims {
		return types.Claims{
			UserID: userID.String(),
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    testJWT.Issuer,
				Audience:  jwt.ClaimStrings{testJWT.Audience},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
		}
	}

	t.Run("Expired", func(t *testing.T) {
		service := NewAuthService(new(MockAuthRepo), testJWT, slog.Default())
		c := valid()
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		_, err := service.CallerFromToken(ctx, sign(t, c, testJWT.SecretKey))
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
	})

	t.Run("Wrong secret", func(t *testing.T) {
		service := NewAuthService(new(MockAuthRepo), testJWT, slog.Default())
		_, err := service.CallerFromToken(ctx, sign(t, valid(), "other"))
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
	})

	t.Run("Wrong audience", func(t *testing.T) {
		service := NewAuthService(new(MockAuthRepo), testJWT, slog.Default())
		c := valid()
		c.Audience = jwt.ClaimStrings{"someone-else"}
		_, err := service.CallerFromToken(ctx, sign(t, c, testJWT.SecretKey))
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
	})

	t.Run("Garbage", func(t *testing.T) {
		service := NewAuthService(new(MockAuthRepo), testJWT, slog.Default())
		_, err := service.CallerFromToken(ctx, "not.a.jwt")
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
	})

	t.Run("User gone", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, testJWT, slog.Default())
		mockRepo.On("FindCaller", mock.Anything, userID).Return(nil, types.ErrNotFound).Once()
		_, err := service.CallerFromToken(ctx, sign(t, valid(), testJWT.SecretKey))
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
	})
}

func TestBootstrapAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("Skipped without credentials", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, testJWT, slog.Default())
		require.NoError(t, service.BootstrapAdmin(ctx, "", ""))
		mockRepo.AssertNotCalled(t, "CreateAdminIfMissing", mock.Anything, mock.Anything)
	})

	t.Run("Creates admin", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, testJWT, slog.Default())
		mockRepo.On("CreateAdminIfMissing", mock.Anything, mock.MatchedBy(func(u *types.User) bool {
			return u.Email == "root@example.com" && u.IsAdmin && u.Username == "root" &&
				bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("pw")) == nil
		})).Return(true, nil).Once()

		require.NoError(t, service.BootstrapAdmin(ctx, "root@example.com", "pw"))
		mockRepo.AssertExpectations(t)
	})
}
