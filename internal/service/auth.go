package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var authTracer = otel.Tracer("service/auth")

// AuthService registers users and issues access tokens.
type AuthService struct {
	users  port.UserRepository
	tokens port.TokenManager
	cost   int
	logger *zap.Logger
}

// NewAuthService creates a new auth service. cost is the bcrypt cost;
// zero means bcrypt.DefaultCost.
func NewAuthService(users port.UserRepository, tokens port.TokenManager, cost int, logger *zap.Logger) *AuthService {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &AuthService{users: users, tokens: tokens, cost: cost, logger: logger}
}

// ============================================================
// SignUp — POST /v1/auth/signup
// ============================================================

func (s *AuthService) SignUp(ctx context.Context, req *domain.SignUpRequest) (*domain.AuthResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.SignUp")
	defer span.End()

	email := normalizeEmail(req.Email)
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if existing != nil {
		return nil, &domain.ErrConflict{Message: "e-mail already registered"}
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, &domain.ErrInvalidName{Name: req.Name}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Add(ctx, domain.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return s.issue(user)
}

// ============================================================
// SignIn — POST /v1/auth/signin
// ============================================================

func (s *AuthService) SignIn(ctx context.Context, req *domain.SignInRequest) (*domain.AuthResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.SignIn")
	defer span.End()

	email := normalizeEmail(req.Email)
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, &domain.ErrUserNotFound{Email: email}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("signin: wrong password", zap.String("user_id", user.ID))
		return nil, &domain.ErrWrongPassword{}
	}

	return s.issue(user)
}

// Authenticate resolves a bearer token to its user. Tokens of users that
// no longer exist are rejected.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.TokenClaims, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Authenticate")
	defer span.End()

	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	ok, err := s.users.Exists(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if !ok {
		return nil, &domain.ErrInvalidToken{Reason: "unknown user"}
	}
	return claims, nil
}

func (s *AuthService) issue(user *domain.User) (*domain.AuthResponse, error) {
	token, err := s.tokens.Sign(domain.TokenClaims{UserID: user.ID, Email: user.Email})
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &domain.AuthResponse{
		AccessToken: token,
		ExpiresIn:   int(s.tokens.TTL().Seconds()),
		UserID:      user.ID,
		Name:        user.Name,
		Email:       user.Email,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
