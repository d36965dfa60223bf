package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/straye-as/pipeline-api/internal/auth"
	"github.com/straye-as/pipeline-api/internal/cache"
	"github.com/straye-as/pipeline-api/internal/config"
	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/mapper"
	"github.com/straye-as/pipeline-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultTokenTTL = 24 * time.Hour

// UserService manages the territory holders that own leads
type UserService struct {
	userRepo *repository.UserRepository
	cache    cache.Cache
	authCfg  *config.AuthConfig
	logger   *zap.Logger
	now      func() time.Time
}

func NewUserService(userRepo *repository.UserRepository, cache cache.Cache, authCfg *config.AuthConfig, logger *zap.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		cache:    cache,
		authCfg:  authCfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Me returns the authenticated user. API key callers get the system user,
// which has no row in the users table.
func (s *UserService) Me(ctx context.Context) (*domain.UserDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	if userCtx.Email == auth.SystemEmail {
		return &domain.UserDTO{
			Email:    userCtx.Email,
			Name:     userCtx.DisplayName,
			Role:     userCtx.Role,
			IsActive: true,
		}, nil
	}

	user, err := s.userRepo.GetByEmail(ctx, userCtx.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

// List returns every user. Admin only.
func (s *UserService) List(ctx context.Context) ([]domain.UserDTO, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	dtos := make([]domain.UserDTO, len(users))
	for i := range users {
		dtos[i] = mapper.ToUserDTO(&users[i])
	}
	return dtos, nil
}

// Upsert creates a user or updates role, name and active flag. Admin only.
func (s *UserService) Upsert(ctx context.Context, req *domain.UpsertUserRequest) (*domain.UserDTO, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Name:     strings.TrimSpace(req.Name),
		Role:     req.Role,
		IsActive: true,
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.userRepo.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	// leaderboard rows carry owner display names
	invalidateDashboards(ctx, s.cache, s.logger)

	s.logger.Info("user saved",
		zap.String("email", user.Email),
		zap.String("role", string(user.Role)),
		zap.Bool("active", user.IsActive))

	saved, err := s.userRepo.GetByEmail(ctx, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}
	dto := mapper.ToUserDTO(saved)
	return &dto, nil
}

// IssueToken signs a bearer token for an active user. Admin only.
func (s *UserService) IssueToken(ctx context.Context, req *domain.IssueTokenRequest) (*domain.TokenDTO, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: user %s is inactive", ErrInvalidInput, user.Email)
	}

	ttl := defaultTokenTTL
	if req.TTLHours > 0 {
		ttl = time.Duration(req.TTLHours) * time.Hour
	}

	token, err := auth.IssueToken(s.authCfg, user, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &domain.TokenDTO{
		Token:     token,
		ExpiresAt: s.now().Add(ttl).UTC().Format(mapper.TimestampLayout),
	}, nil
}

func requireAdmin(ctx context.Context) error {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return ErrUnauthorized
	}
	if !userCtx.IsAdmin() {
		return ErrForbidden
	}
	return nil
}
