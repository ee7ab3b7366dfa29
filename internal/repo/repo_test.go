package repo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dushixiang/pika-alert/internal/migrate"
	"github.com/dushixiang/pika-alert/internal/models"
	"github.com/dushixiang/pika-alert/internal/protocol"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "repo.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migrate.Migrate(zap.NewNop(), db))
	return db
}

func TestAgentRepoHeartbeat(t *testing.T) {
	ctx := context.Background()
	r := NewAgentRepo(openTestDB(t))

	require.NoError(t, r.Create(ctx, &models.Agent{ID: "a1", Name: "web-1", Status: models.AgentStatusOffline, LastSeenAt: 100}))

	found, err := r.UpdateHeartbeat(ctx, "a1", 5000)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = r.UpdateHeartbeat(ctx, "missing", 5000)
	require.NoError(t, err)
	assert.False(t, found)

	agent, err := r.FindById(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, models.AgentStatusOnline, agent.Status)
	assert.Equal(t, int64(5000), agent.LastSeenAt)

	stale, err := r.FindStaleOnlineAgents(ctx, 6000)
	require.NoError(t, err)
	require.Len(t, stale, 1)

	require.NoError(t, r.UpdateStatus(ctx, "a1", models.AgentStatusOffline, 7000))
	stale, err = r.FindStaleOnlineAgents(ctx, 6000)
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestAlertConfigRepoFindEnabled(t *testing.T) {
	ctx := context.Background()
	r := NewAlertConfigRepo(openTestDB(t))

	require.NoError(t, r.Create(ctx, &models.AlertConfig{ID: "c1", AgentID: "a1", Name: "on", Enabled: true, CreatedAt: 1,
		Rules: models.AlertRules{CPUEnabled: true, CPUThreshold: 80, CPUDuration: 60}}))
	require.NoError(t, r.Create(ctx, &models.AlertConfig{ID: "c2", AgentID: "a1", Name: "off", Enabled: false, CreatedAt: 2}))
	require.NoError(t, r.Create(ctx, &models.AlertConfig{ID: "c3", AgentID: "a2", Name: "other", Enabled: true, CreatedAt: 3}))

	enabled, err := r.FindEnabledByAgentID(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "c1", enabled[0].ID)
	assert.Equal(t, 80.0, enabled[0].Rules.CPUThreshold)
	assert.Equal(t, 60, enabled[0].Rules.CPUDuration)

	all, err := r.FindByAgentID(ctx, "a1")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAlertRecordRepo(t *testing.T) {
	ctx := context.Background()
	r := NewAlertRecordRepo(openTestDB(t))

	first := &models.AlertRecord{AgentID: "a1", ConfigID: "c1", AlertType: models.AlertTypeCPU, Status: models.AlertStatusFiring, FiredAt: 1000}
	require.NoError(t, r.CreateAlertRecord(ctx, first))
	assert.NotZero(t, first.ID)

	second := &models.AlertRecord{AgentID: "a1", ConfigID: "c1", AlertType: models.AlertTypeDisk, Status: models.AlertStatusFiring, FiredAt: 2000}
	require.NoError(t, r.CreateAlertRecord(ctx, second))
	require.NoError(t, r.CreateAlertRecord(ctx, &models.AlertRecord{AgentID: "a2", Status: models.AlertStatusFiring, FiredAt: 3000}))

	missing, err := r.GetAlertRecordByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	first.Status = models.AlertStatusResolved
	first.ResolvedAt = 1500
	first.ActualValue = 42
	require.NoError(t, r.UpdateAlertRecord(ctx, first))

	got, err := r.GetAlertRecordByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.AlertStatusResolved, got.Status)
	assert.Equal(t, int64(1500), got.ResolvedAt)
	assert.Equal(t, 42.0, got.ActualValue)

	records, total, err := r.ListAlertRecords(ctx, "a1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, records, 2)
	assert.Equal(t, second.ID, records[0].ID, "按触发时间倒序")

	records, total, err = r.ListAlertRecords(ctx, "", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, records, 1)
	assert.Equal(t, second.ID, records[0].ID)

	deleted, err := r.DeleteResolvedBefore(ctx, 2000)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	require.NoError(t, r.Clear(ctx))
	_, total, err = r.ListAlertRecords(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestAlertStateRepoUpsertAndExpiry(t *testing.T) {
	ctx := context.Background()
	r := NewAlertStateRepo(openTestDB(t))

	key := "alert_state:a1:c1:cpu"
	require.NoError(t, r.SaveAlertState(ctx, &models.AlertState{ID: key, StartTime: 100, ExpiresAt: 10_000}))
	require.NoError(t, r.SaveAlertState(ctx, &models.AlertState{ID: key, StartTime: 100, IsFiring: true, LastRecordID: 7, ExpiresAt: 20_000}))

	state, err := r.GetAlertState(ctx, key, 15_000)
	require.NoError(t, err)
	assert.True(t, state.IsFiring)
	assert.Equal(t, int64(7), state.LastRecordID)

	_, err = r.GetAlertState(ctx, key, 20_000)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	n, err := r.DeleteExpired(ctx, 20_000)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMetricRepoQuery(t *testing.T) {
	ctx := context.Background()
	r := NewMetricRepo(openTestDB(t))

	require.NoError(t, r.SaveCPUMetric(ctx, &models.CPUMetric{AgentID: "a1", UsagePercent: 10, Timestamp: 100}))
	require.NoError(t, r.SaveCPUMetric(ctx, &models.CPUMetric{AgentID: "a1", UsagePercent: 20, Timestamp: 200}))
	require.NoError(t, r.SaveCPUMetric(ctx, &models.CPUMetric{AgentID: "a2", UsagePercent: 30, Timestamp: 200}))

	result, err := r.QueryMetrics(ctx, "a1", protocol.MetricTypeCPU, 150)
	require.NoError(t, err)
	cpu := *result.(*[]models.CPUMetric)
	require.Len(t, cpu, 1)
	assert.Equal(t, 20.0, cpu[0].UsagePercent)

	_, err = r.QueryMetrics(ctx, "a1", protocol.MetricType("gpu"), 0)
	assert.Error(t, err)

	require.NoError(t, r.DeleteAgentMetrics(ctx, "a1"))
	result, err = r.QueryMetrics(ctx, "a1", protocol.MetricTypeCPU, 0)
	require.NoError(t, err)
	assert.Empty(t, *result.(*[]models.CPUMetric))
}
