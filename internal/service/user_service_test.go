package service_test

import (
	"context"
	"testing"

	"github.com/straye-as/pipeline-api/internal/auth"
	"github.com/straye-as/pipeline-api/internal/cache"
	"github.com/straye-as/pipeline-api/internal/config"
	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/service"
	"github.com/straye-as/pipeline-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestUserService(t *testing.T) {
	f := newFixture(t)
	authCfg := &config.AuthConfig{JWTSecret: "test-secret", Issuer: "pipeline-api"}
	svc := service.NewUserService(f.userRepo, cache.Noop{}, authCfg, zap.NewNop())

	testutil.CreateTestUser(t, f.db, asha, domain.UserRoleSales)

	t.Run("me", func(t *testing.T) {
		me, err := svc.Me(salesCtx(asha))
		require.NoError(t, err)
		assert.Equal(t, asha, me.Email)
		assert.Equal(t, domain.UserRoleSales, me.Role)

		system, err := svc.Me(auth.WithUserContext(context.Background(), auth.SystemUser()))
		require.NoError(t, err)
		assert.Equal(t, auth.SystemEmail, system.Email)
		assert.Equal(t, domain.UserRoleAdmin, system.Role)

		_, err = svc.Me(salesCtx("ghost@example.com"))
		assert.ErrorIs(t, err, service.ErrUserNotFound)
	})

	t.Run("upsert is admin only", func(t *testing.T) {
		_, err := svc.Upsert(salesCtx(asha), &domain.UpsertUserRequest{Email: ravi, Role: domain.UserRoleSales})
		assert.ErrorIs(t, err, service.ErrForbidden)
	})

	t.Run("upsert creates then updates", func(t *testing.T) {
		created, err := svc.Upsert(adminCtx(), &domain.UpsertUserRequest{Email: " Ravi@Example.com ", Name: "Ravi Kumar", Role: domain.UserRoleSales})
		require.NoError(t, err)
		assert.Equal(t, ravi, created.Email)
		assert.True(t, created.IsActive)

		updated, err := svc.Upsert(adminCtx(), &domain.UpsertUserRequest{Email: ravi, Role: domain.UserRoleAdmin, IsActive: boolPtr(false)})
		require.NoError(t, err)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, "Ravi Kumar", updated.Name, "empty name keeps the stored one")
		assert.Equal(t, domain.UserRoleAdmin, updated.Role)
		assert.False(t, updated.IsActive)
	})

	t.Run("list", func(t *testing.T) {
		users, err := svc.List(adminCtx())
		require.NoError(t, err)
		assert.Len(t, users, 2)

		_, err = svc.List(salesCtx(asha))
		assert.ErrorIs(t, err, service.ErrForbidden)
	})

	t.Run("issue token", func(t *testing.T) {
		token, err := svc.IssueToken(adminCtx(), &domain.IssueTokenRequest{Email: asha, TTLHours: 2})
		require.NoError(t, err)
		assert.NotEmpty(t, token.ExpiresAt)

		userCtx, err := auth.NewJWTValidator(authCfg).ValidateToken(token.Token)
		require.NoError(t, err)
		assert.Equal(t, asha, userCtx.Email)

		_, err = svc.IssueToken(adminCtx(), &domain.IssueTokenRequest{Email: ravi})
		assert.ErrorIs(t, err, service.ErrInvalidInput, "inactive users get no token")

		_, err = svc.IssueToken(adminCtx(), &domain.IssueTokenRequest{Email: "ghost@example.com"})
		assert.ErrorIs(t, err, service.ErrUserNotFound)
	})
}

func TestUserService_UpsertRefreshesLeaderboardNames(t *testing.T) {
	redisCache, mr := newRedisCache(t)
	f := newFixtureWithCache(t, redisCache)
	seedPipeline(t, f)
	svc := service.NewUserService(f.userRepo, redisCache, &config.AuthConfig{JWTSecret: "test-secret"}, zap.NewNop())

	before, err := f.analytics.Leaderboard(adminCtx())
	require.NoError(t, err)
	require.NotEmpty(t, before)
	assert.Equal(t, "User "+asha, before[0].OwnerName)
	require.True(t, mr.Exists("pipeline:dashboard:all"))

	_, err = svc.Upsert(adminCtx(), &domain.UpsertUserRequest{Email: asha, Name: "Asha Rao", Role: domain.UserRoleSales})
	require.NoError(t, err)
	assert.False(t, mr.Exists("pipeline:dashboard:all"))

	after, err := f.analytics.Leaderboard(adminCtx())
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", after[0].OwnerName)
}
