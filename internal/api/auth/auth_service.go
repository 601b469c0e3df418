package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/go-pedidos-api/app/observability/metrics"
	"github.com/FACorreiaa/go-pedidos-api/config"
	"github.com/FACorreiaa/go-pedidos-api/internal/types"
)

var _ AuthService = (*AuthServiceImpl)(nil)

type AuthService interface {
	Login(ctx context.Context, email, password string) (*types.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	// CallerFromToken validates an access token and loads its user.
	CallerFromToken(ctx context.Context, accessToken string) (*types.Caller, error)
	BootstrapAdmin(ctx context.Context, email, password string) error
}

type AuthServiceImpl struct {
	logger *slog.Logger
	repo   AuthRepo
	jwtCfg config.JWTConfig
	now    func() time.Time
}

func NewAuthService(repo AuthRepo, jwtCfg config.JWTConfig, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger: logger,
		repo:   repo,
		jwtCfg: jwtCfg,
		now:    time.Now,
	}
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// compareDummy burns the same bcrypt work as a real comparison so unknown
// emails are not distinguishable by latency.
func compareDummy(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

func (s *AuthServiceImpl) recordLogin(ctx context.Context, outcome string) {
	metrics.Get().LoginAttemptsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (*types.TokenPair, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Login")
	defer span.End()
	l := s.logger.With(slog.String("method", "Login"))

	u, err := s.repo.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			compareDummy(password)
			s.recordLogin(ctx, "invalid_credentials")
			return nil, types.ErrUnauthenticated
		}
		l.ErrorContext(ctx, "Failed to load user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "user lookup failed")
		s.recordLogin(ctx, "error")
		return nil, fmt.Errorf("login: %w", err)
	}

	if err = bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.recordLogin(ctx, "invalid_credentials")
		return nil, types.ErrUnauthenticated
	}

	access, err := s.issueAccessToken(u.ID)
	if err != nil {
		s.recordLogin(ctx, "error")
		return nil, fmt.Errorf("login: %w", err)
	}

	refresh := uuid.NewString()
	if err = s.repo.StoreRefreshToken(ctx, u.ID, refresh, s.now().Add(s.jwtCfg.RefreshTokenTTL)); err != nil {
		l.ErrorContext(ctx, "Failed to store refresh token", slog.Any("error", err))
		s.recordLogin(ctx, "error")
		return nil, fmt.Errorf("login: %w", err)
	}

	s.recordLogin(ctx, "success")
	l.InfoContext(ctx, "User logged in", slog.String("user_id", u.ID.String()))
	return &types.TokenPair{Access: access, Refresh: refresh}, nil
}

func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (string, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Refresh")
	defer span.End()

	if strings.TrimSpace(refreshToken) == "" {
		return "", types.ErrUnauthenticated
	}

	userID, err := s.repo.ConsumeRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return "", types.ErrUnauthenticated
		}
		span.RecordError(err)
		return "", fmt.Errorf("refresh: %w", err)
	}

	if _, err = s.repo.FindCaller(ctx, userID); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return "", types.ErrUnauthenticated
		}
		return "", fmt.Errorf("refresh: %w", err)
	}

	access, err := s.issueAccessToken(userID)
	if err != nil {
		return "", fmt.Errorf("refresh: %w", err)
	}
	return access, nil
}

func (s *AuthServiceImpl) CallerFromToken(ctx context.Context, accessToken string) (*types.Caller, error) {
	claims, err := s.parseAccessToken(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrUnauthenticated, err)
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad user_id claim", types.ErrUnauthenticated)
	}

	caller, err := s.repo.FindCaller(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found", types.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("load caller: %w", err)
	}
	return caller, nil
}

// BootstrapAdmin seeds one administrator account when none exists with email.
func (s *AuthServiceImpl) BootstrapAdmin(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	username, _, _ := strings.Cut(email, "@")
	created, err := s.repo.CreateAdminIfMissing(ctx, &types.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CPF:          "000.000.000-00",
		RG:           "0",
		IsAdmin:      true,
	})
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		s.logger.InfoContext(ctx, "Bootstrap administrator created", slog.String("email", email))
	}
	return nil
}

func (s *AuthServiceImpl) issueAccessToken(userID uuid.UUID) (string, error) {
	now := s.now()
	claims := types.Claims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    s.jwtCfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtCfg.AccessTokenTTL)),
			ID:        uuid.NewString(),
		},
	}
	if s.jwtCfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{s.jwtCfg.Audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtCfg.SecretKey))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

func (s *AuthServiceImpl) parseAccessToken(tokenString string) (*types.Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.jwtCfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.jwtCfg.Issuer))
	}
	if s.jwtCfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(s.jwtCfg.Audience))
	}

	claims := &types.Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(s.jwtCfg.SecretKey), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
