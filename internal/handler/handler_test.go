package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/dushixiang/pika-alert/internal/alertstate"
	"github.com/dushixiang/pika-alert/internal/config"
	"github.com/dushixiang/pika-alert/internal/migrate"
	"github.com/dushixiang/pika-alert/internal/models"
	"github.com/dushixiang/pika-alert/internal/protocol"
	"github.com/dushixiang/pika-alert/internal/service"
	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testEnv struct {
	echo   *echo.Echo
	agents *service.AgentService
	alerts *service.AlertService
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "handler.db")), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, migrate.Migrate(zap.NewNop(), db))
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	db := openTestDB(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	agents := service.NewAgentService(logger, db, nil)
	alerts := service.NewAlertService(logger, db, alertstate.NewMemoryStore(time.Hour, time.Minute), nil)
	metrics := service.NewMetricService(logger, db, nil, nil)
	auth := service.NewAuthService(logger, config.AuthConfig{
		JWT:   config.JWTConfig{Secret: "test-secret", ExpiresHours: 1},
		Users: map[string]string{"admin": string(hash)},
	})

	e := echo.New()
	e.Validator = NewValidator()

	agentHandler := NewAgentHandler(logger, agents)
	metricHandler := NewMetricHandler(logger, metrics)
	alertHandler := NewAlertHandler(logger, alerts)
	authHandler := NewAuthHandler(logger, auth)

	e.POST("/api/login", authHandler.Login)
	e.POST("/api/agents/register", agentHandler.Register)
	e.POST("/api/agents/:id/heartbeat", agentHandler.Heartbeat)
	e.GET("/api/agents", agentHandler.List)
	e.GET("/api/agents/:id", agentHandler.Get)
	e.DELETE("/api/agents/:id", agentHandler.Delete)
	e.POST("/api/agents/:id/metrics", metricHandler.Store)
	e.GET("/api/agents/:id/metrics", metricHandler.History)
	e.GET("/api/agents/:id/metrics/latest", metricHandler.Latest)
	e.GET("/api/agents/:id/alert-configs", alertHandler.ListConfigs)
	e.POST("/api/agents/:id/alert-configs", alertHandler.CreateConfig)
	e.GET("/api/alert-configs/:id", alertHandler.GetConfig)
	e.PUT("/api/alert-configs/:id", alertHandler.UpdateConfig)
	e.DELETE("/api/alert-configs/:id", alertHandler.DeleteConfig)
	e.GET("/api/alert-records", alertHandler.ListRecords)
	e.DELETE("/api/alert-records", alertHandler.ClearRecords)

	return &testEnv{echo: e, agents: agents, alerts: alerts}
}

func (env *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func (env *testEnv) registerAgent(t *testing.T) string {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/agents/register", protocol.AgentInfo{Hostname: "web-1", OS: "linux"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[protocol.RegisterResponse](t, rec)
	require.NotEmpty(t, resp.ID)
	return resp.ID
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/login", map[string]string{"username": "admin", "password": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[service.LoginResponse](t, rec).Token)

	rec = env.do(t, http.MethodPost, "/api/login", map[string]string{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/login", map[string]string{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAgentLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/agents/register", protocol.AgentInfo{})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "缺少主机名应返回 400")

	agentID := env.registerAgent(t)

	rec = env.do(t, http.MethodPost, "/api/agents/"+agentID+"/heartbeat", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/agents/unknown/heartbeat", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/agents", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Agent](t, rec), 1)

	rec = env.do(t, http.MethodGet, "/api/agents/"+agentID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "web-1", decode[models.Agent](t, rec).Hostname)

	rec = env.do(t, http.MethodDelete, "/api/agents/"+agentID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/agents/"+agentID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricEndpoints(t *testing.T) {
	env := newTestEnv(t)
	agentID := env.registerAgent(t)

	rec := env.do(t, http.MethodGet, "/api/agents/"+agentID+"/metrics/latest", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	cpu, err := json.Marshal(protocol.CPUData{UsagePercent: 55})
	require.NoError(t, err)
	batch := protocol.MetricBatch{Metrics: []protocol.MetricItem{{Type: protocol.MetricTypeCPU, Data: cpu}}}

	rec = env.do(t, http.MethodPost, "/api/agents/"+agentID+"/metrics", batch)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[service.StoreResult](t, rec).Count)

	rec = env.do(t, http.MethodPost, "/api/agents/unknown/metrics", batch)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/agents/"+agentID+"/metrics/latest", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	latest := decode[service.LatestMetrics](t, rec)
	require.NotNil(t, latest.Snapshot.CPU)
	assert.Equal(t, 55.0, *latest.Snapshot.CPU)

	rec = env.do(t, http.MethodGet, "/api/agents/"+agentID+"/metrics?type=cpu&range=1h", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/agents/"+agentID+"/metrics?type=cpu&range=2y", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/agents/"+agentID+"/metrics", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAlertConfigCRUD(t *testing.T) {
	env := newTestEnv(t)
	agentID := env.registerAgent(t)

	invalid := alertConfigRequest{
		Name:    "bad",
		Enabled: true,
		Rules:   models.AlertRules{CPUEnabled: true, CPUThreshold: 120, CPUDuration: 60},
	}
	rec := env.do(t, http.MethodPost, "/api/agents/"+agentID+"/alert-configs", invalid)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := alertConfigRequest{
		Name:    "cpu",
		Enabled: true,
		Rules:   models.AlertRules{CPUEnabled: true, CPUThreshold: 80, CPUDuration: 60},
	}
	rec = env.do(t, http.MethodPost, "/api/agents/"+agentID+"/alert-configs", req)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[models.AlertConfig](t, rec)
	assert.Equal(t, agentID, created.AgentID)
	require.NotEmpty(t, created.ID)

	rec = env.do(t, http.MethodGet, "/api/agents/"+agentID+"/alert-configs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.AlertConfig](t, rec), 1)

	req.Rules.CPUThreshold = 90
	rec = env.do(t, http.MethodPut, "/api/alert-configs/"+created.ID, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 90.0, decode[models.AlertConfig](t, rec).Rules.CPUThreshold)

	rec = env.do(t, http.MethodGet, "/api/alert-configs/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, agentID, decode[models.AlertConfig](t, rec).AgentID)

	rec = env.do(t, http.MethodDelete, "/api/alert-configs/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/alert-configs/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateAlertConfigForUnknownAgent(t *testing.T) {
	env := newTestEnv(t)

	req := alertConfigRequest{
		Name:    "cpu",
		Enabled: true,
		Rules:   models.AlertRules{CPUEnabled: true, CPUThreshold: 80, CPUDuration: 60},
	}
	rec := env.do(t, http.MethodPost, "/api/agents/missing/alert-configs", req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/agents/missing/alert-configs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]models.AlertConfig](t, rec))
}

func TestAlertRecords(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	agentID := env.registerAgent(t)

	alertConfig := &models.AlertConfig{
		AgentID: agentID,
		Name:    "cpu",
		Enabled: true,
		Rules:   models.AlertRules{CPUEnabled: true, CPUThreshold: 80, CPUDuration: 1},
	}
	require.NoError(t, env.alerts.CreateConfig(ctx, alertConfig))

	high := 95.0
	snapshot := models.MetricSnapshot{CPU: &high}
	now := time.Now().UnixMilli()
	require.NoError(t, env.alerts.CheckMetrics(ctx, agentID, snapshot, now))
	require.NoError(t, env.alerts.CheckMetrics(ctx, agentID, snapshot, now+2000))

	rec := env.do(t, http.MethodGet, "/api/alert-records?agentId="+agentID+"&limit=500", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[service.AlertRecordPage](t, rec)
	assert.EqualValues(t, 1, page.Total)
	assert.Equal(t, 100, page.Limit)
	require.Len(t, page.Records, 1)
	assert.Equal(t, models.AlertStatusFiring, page.Records[0].Status)

	rec = env.do(t, http.MethodDelete, "/api/alert-records", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/alert-records", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decode[service.AlertRecordPage](t, rec).Total)
}
