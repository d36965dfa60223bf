package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/pipeline-api/internal/auth"
	"github.com/straye-as/pipeline-api/internal/cache"
	"github.com/straye-as/pipeline-api/internal/config"
	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/http/handler"
	"github.com/straye-as/pipeline-api/internal/mail"
	"github.com/straye-as/pipeline-api/internal/repository"
	"github.com/straye-as/pipeline-api/internal/service"
	"github.com/straye-as/pipeline-api/internal/storage"
	"github.com/straye-as/pipeline-api/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	asha = "asha@example.com"
	ravi = "ravi@example.com"
)

type handlers struct {
	db           *gorm.DB
	leads        *handler.LeadHandler
	activities   *handler.ActivityHandler
	dashboard    *handler.DashboardHandler
	auth         *handler.AuthHandler
	spreadsheets *handler.SpreadsheetHandler
	followUps    *handler.FollowUpHandler
}

func setupHandlers(t *testing.T) *handlers {
	t.Helper()

	logger := zap.NewNop()
	db := testutil.SetupTestDB(t)

	leadRepo := repository.NewLeadRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	userRepo := repository.NewUserRepository(db)

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	leadService := service.NewLeadService(leadRepo, activityRepo, cache.Noop{}, logger)
	analytics := service.NewAnalyticsService(leadRepo, userRepo, cache.Noop{}, logger)
	authCfg := &config.AuthConfig{JWTSecret: "handler-secret", Issuer: "pipeline-api"}

	return &handlers{
		db:           db,
		leads:        handler.NewLeadHandler(leadService, logger),
		activities:   handler.NewActivityHandler(service.NewActivityService(activityRepo, leadRepo, leadService, logger), logger),
		dashboard:    handler.NewDashboardHandler(analytics, logger),
		auth:         handler.NewAuthHandler(service.NewUserService(userRepo, cache.Noop{}, authCfg, logger), logger),
		spreadsheets: handler.NewSpreadsheetHandler(service.NewSpreadsheetService(leadRepo, analytics, store, cache.Noop{}, logger), 1, logger),
		followUps:    handler.NewFollowUpHandler(service.NewEmailDraftService(leadRepo, activityRepo, nil, mail.Disabled{}, logger), logger),
	}
}

func salesUser(email string) *auth.UserContext {
	return &auth.UserContext{Email: email, DisplayName: email, Role: domain.UserRoleSales}
}

func adminUser() *auth.UserContext {
	return &auth.UserContext{Email: "admin@example.com", DisplayName: "Admin", Role: domain.UserRoleAdmin}
}

// newRequest builds a request carrying the user and the chi {id} parameter
func newRequest(method, target string, body io.Reader, user *auth.UserContext, id string) *http.Request {
	req := httptest.NewRequest(method, target, body)
	ctx := req.Context()
	if user != nil {
		ctx = auth.WithUserContext(ctx, user)
	}
	if id != "" {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", id)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}
