package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/straye-as/pipeline-api/internal/auth"
	"github.com/straye-as/pipeline-api/internal/cache"
	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/repository"
	"github.com/straye-as/pipeline-api/internal/service"
	"github.com/straye-as/pipeline-api/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	asha = "asha@example.com"
	ravi = "ravi@example.com"
)

type fixture struct {
	db           *gorm.DB
	leadRepo     *repository.LeadRepository
	activityRepo *repository.ActivityRepository
	userRepo     *repository.UserRepository
	cache        cache.Cache
	leads        *service.LeadService
	activities   *service.ActivityService
	analytics    *service.AnalyticsService
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithCache(t, cache.Noop{})
}

func newFixtureWithCache(t *testing.T, c cache.Cache) *fixture {
	t.Helper()

	logger := zap.NewNop()
	db := testutil.SetupTestDB(t)
	leadRepo := repository.NewLeadRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	userRepo := repository.NewUserRepository(db)

	leads := service.NewLeadService(leadRepo, activityRepo, c, logger)
	return &fixture{
		db:           db,
		leadRepo:     leadRepo,
		activityRepo: activityRepo,
		userRepo:     userRepo,
		cache:        c,
		leads:        leads,
		activities:   service.NewActivityService(activityRepo, leadRepo, leads, logger),
		analytics:    service.NewAnalyticsService(leadRepo, userRepo, c, logger),
	}
}

func newRedisCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewRedisCache(client, time.Minute), mr
}

func salesCtx(email string) context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		Email:       email,
		DisplayName: email,
		Role:        domain.UserRoleSales,
	})
}

func adminCtx() context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		Email:       "admin@example.com",
		DisplayName: "Admin",
		Role:        domain.UserRoleAdmin,
	})
}

func intPtr(v int) *int {
	return &v
}

func boolPtr(v bool) *bool {
	return &v
}
