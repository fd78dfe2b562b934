package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/defense-scheduler-api/internal/handler"
	"github.com/noah-isme/defense-scheduler-api/internal/models"
	"github.com/noah-isme/defense-scheduler-api/internal/service"
	"github.com/noah-isme/defense-scheduler-api/pkg/config"
)

type emptyLoader struct{}

func (emptyLoader) Snapshot(context.Context) (models.AvailabilitySnapshot, error) {
	return models.AvailabilitySnapshot{}, nil
}

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

func testRouter(t *testing.T, authEnabled bool) (*gin.Engine, *service.TokenValidator) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Env:       config.EnvProduction,
		APIPrefix: "/api",
		Auth:      config.AuthConfig{Enabled: authEnabled, Secret: "s3cret", RunRoles: []string{"ADMIN", "COORDINATOR"}},
	}
	metrics := service.NewMetricsService()
	svc := service.NewDefenseSchedulerService(emptyLoader{}, nil, nil, nil, metrics, nil, zap.NewNop(), service.DefenseSchedulerConfig{})
	tokens := service.NewTokenValidator(cfg.Auth.Secret)
	return newRouter(routerDeps{
		cfg:     cfg,
		logger:  zap.NewNop(),
		metrics: metrics,
		tokens:  tokens,
		defense: handler.NewDefenseHandler(svc),
		probes:  handler.NewMetricsHandler(metrics, okPinger{}),
	}), tokens
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouterProbes(t *testing.T) {
	r, _ := testRouter(t, false)

	assert.Equal(t, http.StatusOK, get(r, "/health", "").Code)
	assert.Equal(t, http.StatusOK, get(r, "/ready", "").Code)
	metrics := get(r, "/metrics", "")
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "defense_")
	assert.Equal(t, http.StatusNotFound, get(r, "/docs/index.html", "").Code)
}

func TestRouterRunWithoutAuth(t *testing.T) {
	r, _ := testRouter(t, false)

	w := get(r, "/api/asignaciones?dryRun=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"nothingToSchedule":true`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouterRunRequiresRole(t *testing.T) {
	r, tokens := testRouter(t, true)

	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/asignaciones?dryRun=true", "").Code)

	student, err := tokens.Issue("u-student", models.RoleStudent, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, get(r, "/api/asignaciones?dryRun=true", student).Code)

	coordinator, err := tokens.Issue("u-coord", models.RoleCoordinator, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, get(r, "/api/asignaciones?dryRun=true", coordinator).Code)
}
