// Package service provides business logic for user accounts and entitlements.
package service

import (
	"context"
	"strings"
	"time"

	"quotebuilder_backend/internal/identity/repository"
	"quotebuilder_backend/internal/identity/transport"
	"quotebuilder_backend/platform/apperr"
	"quotebuilder_backend/platform/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Defaults carries a user's quoting defaults, read once per wizard session.
type Defaults struct {
	MarkupPercent  *float64
	LaborRateCents *int64
}

// Service provides business logic for identity.
type Service struct {
	repo      *repository.Repository
	log       *logger.Logger
	jwtSecret string
	tokenTTL  time.Duration
}

// New creates a new identity service.
func New(repo *repository.Repository, log *logger.Logger, jwtSecret string, tokenTTL time.Duration) *Service {
	return &Service{repo: repo, log: log, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

// Register creates a new free-tier account.
func (s *Service) Register(ctx context.Context, req transport.RegisterRequest) (*transport.TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if existing, err := s.repo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, apperr.Conflict("an account with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}

	now := time.Now()
	user := repository.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Tier:         transport.TierFree,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, &user); err != nil {
		return nil, err
	}

	s.log.AuthEvent("register", email, true, "")
	return s.issueToken(&user)
}

// Login verifies credentials and issues an access token.
func (s *Service) Login(ctx context.Context, req transport.LoginRequest) (*transport.TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		s.log.AuthEvent("login", email, false, "unknown email")
		return nil, apperr.Unauthorized("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.log.AuthEvent("login", email, false, "wrong password")
		return nil, apperr.Unauthorized("invalid credentials")
	}

	s.log.AuthEvent("login", email, true, "")
	return s.issueToken(user)
}

// Profile returns the user's profile.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*transport.ProfileResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toProfileResponse(user), nil
}

// UpdateDefaults stores the user's quoting defaults.
func (s *Service) UpdateDefaults(ctx context.Context, userID uuid.UUID, req transport.UpdateDefaultsRequest) (*transport.ProfileResponse, error) {
	err := s.repo.UpdateDefaults(ctx, repository.UpdateDefaultsParams{
		UserID:                userID,
		DefaultMarkupPercent:  req.DefaultMarkupPercent,
		DefaultLaborRateCents: req.DefaultLaborRateCents,
	})
	if err != nil {
		return nil, err
	}
	return s.Profile(ctx, userID)
}

// UserDefaults returns the user's quoting defaults for seeding the wizard.
func (s *Service) UserDefaults(ctx context.Context, userID uuid.UUID) (Defaults, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return Defaults{}, err
	}
	return Defaults{
		MarkupPercent:  user.DefaultMarkupPercent,
		LaborRateCents: user.DefaultLaborRateCents,
	}, nil
}

// CanAccessWizard reports whether the user's tier includes the quote wizard.
func (s *Service) CanAccessWizard(ctx context.Context, userID uuid.UUID) (bool, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.Tier == transport.TierPro, nil
}

func (s *Service) issueToken(user *repository.User) (*transport.TokenResponse, error) {
	expiresAt := time.Now().Add(s.tokenTTL)
	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"tier": user.Tier,
		"type": "access",
		"exp":  expiresAt.Unix(),
		"iat":  time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to sign token", err)
	}

	return &transport.TokenResponse{AccessToken: signed, ExpiresAt: expiresAt}, nil
}

func toProfileResponse(user *repository.User) *transport.ProfileResponse {
	return &transport.ProfileResponse{
		ID:                    user.ID,
		Email:                 user.Email,
		Tier:                  user.Tier,
		DefaultMarkupPercent:  user.DefaultMarkupPercent,
		DefaultLaborRateCents: user.DefaultLaborRateCents,
		CreatedAt:             user.CreatedAt,
	}
}
