package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dushixiang/pika-alert/internal/alertstate"
	"github.com/dushixiang/pika-alert/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestValidateAlertConfig(t *testing.T) {
	valid := models.AlertConfig{
		Name:  "ok",
		Rules: models.AlertRules{CPUEnabled: true, CPUThreshold: 80, CPUDuration: 60},
	}
	assert.NoError(t, ValidateAlertConfig(&valid))

	noName := valid
	noName.Name = ""
	assert.True(t, IsValidationError(ValidateAlertConfig(&noName)))

	longName := valid
	longName.Name = strings.Repeat("a", 256)
	assert.True(t, IsValidationError(ValidateAlertConfig(&longName)))

	badThreshold := valid
	badThreshold.Rules.DiskThreshold = 101
	assert.True(t, IsValidationError(ValidateAlertConfig(&badThreshold)))

	noDuration := valid
	noDuration.Rules.CPUDuration = 0
	assert.True(t, IsValidationError(ValidateAlertConfig(&noDuration)))

	// 未启用的规则不校验持续时间
	disabled := valid
	disabled.Rules.MemoryEnabled = false
	disabled.Rules.MemoryDuration = 0
	assert.NoError(t, ValidateAlertConfig(&disabled))
}

func TestAlertConfigCRUD(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestAlertService(t)

	config := createCPUConfig(t, s, 80, 60)
	assert.NotEmpty(t, config.ID)
	assert.NotZero(t, config.CreatedAt)

	got, err := s.GetConfig(ctx, config.ID)
	require.NoError(t, err)
	assert.Equal(t, "CPU 过高", got.Name)

	updated, err := s.UpdateConfig(ctx, config.ID, &models.AlertConfig{
		AgentID: "someone-else",
		Name:    "内存",
		Enabled: true,
		Rules:   models.AlertRules{MemoryEnabled: true, MemoryThreshold: 90, MemoryDuration: 30},
	})
	require.NoError(t, err)
	assert.Equal(t, testAgentID, updated.AgentID)
	assert.Equal(t, config.CreatedAt, updated.CreatedAt)
	assert.False(t, updated.Rules.CPUEnabled)

	configs, err := s.ListConfigsByAgent(ctx, testAgentID)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, "内存", configs[0].Name)

	require.NoError(t, s.DeleteConfig(ctx, config.ID))
	_, err = s.GetConfig(ctx, config.ID)
	assert.ErrorIs(t, err, ErrAlertConfigNotFound)
	assert.ErrorIs(t, s.DeleteConfig(ctx, config.ID), ErrAlertConfigNotFound)

	_, err = s.UpdateConfig(ctx, "missing", &models.AlertConfig{Name: "x"})
	assert.ErrorIs(t, err, ErrAlertConfigNotFound)
}

func TestListRecordsPaging(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestAlertService(t)
	for i := int64(1); i <= 25; i++ {
		require.NoError(t, s.AlertRecordRepo.CreateAlertRecord(ctx, &models.AlertRecord{
			AgentID: testAgentID, Status: models.AlertStatusFiring, FiredAt: at(i),
		}))
	}

	page, err := s.ListRecords(ctx, testAgentID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(25), page.Total)
	assert.Equal(t, 20, page.Limit)
	assert.Len(t, page.Records, 20)
	assert.Equal(t, at(25), page.Records[0].FiredAt)

	page, err = s.ListRecords(ctx, testAgentID, 1000, 20)
	require.NoError(t, err)
	assert.Equal(t, 100, page.Limit)
	assert.Len(t, page.Records, 5)

	page, err = s.ListRecords(ctx, "other", 10, 0)
	require.NoError(t, err)
	assert.NotNil(t, page.Records)
	assert.Empty(t, page.Records)
}

func TestClearRecordsWithDatabaseState(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	store := alertstate.NewGuardedStore(zap.NewNop(), alertstate.NewDatabaseStore(db, time.Hour), time.Second)
	s := NewAlertService(zap.NewNop(), db, store, nil)
	config := createCPUConfig(t, s, 80, 10)

	check(t, s, cpuSnapshot(95), at(0))
	check(t, s, cpuSnapshot(95), at(10))
	require.Len(t, listRecords(t, s), 1)

	require.NoError(t, s.ClearRecords(ctx))
	assert.Empty(t, listRecords(t, s))
	_, ok, err := store.Get(ctx, alertstate.Key(testAgentID, config.ID, models.AlertTypeCPU))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClearRecordsResetsMemoryState(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestAlertService(t)
	config := createCPUConfig(t, s, 80, 60)

	check(t, s, cpuSnapshot(95), at(0))
	check(t, s, cpuSnapshot(95), at(65))
	require.Len(t, listRecords(t, s), 1)

	require.NoError(t, s.ClearRecords(ctx))
	assert.Empty(t, listRecords(t, s))
	assert.Equal(t, alertstate.State{}, stateOf(t, s, config.ID, models.AlertTypeCPU))

	// 清空后持续超限需要重新计时并生成新记录
	for i := int64(70); i <= 600; i += 10 {
		check(t, s, cpuSnapshot(95), at(i))
	}
	records := listRecords(t, s)
	require.Len(t, records, 1)
	assert.Equal(t, models.AlertStatusFiring, records[0].Status)
	assert.Equal(t, at(130), records[0].FiredAt)

	state := stateOf(t, s, config.ID, models.AlertTypeCPU)
	assert.True(t, state.IsFiring)
	assert.Equal(t, records[0].ID, state.LastRecordID)
}

func TestDeleteResolvedRecordsBefore(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestAlertService(t)
	createCPUConfig(t, s, 80, 10)

	check(t, s, cpuSnapshot(95), at(0))
	check(t, s, cpuSnapshot(95), at(10))
	check(t, s, cpuSnapshot(10), at(20))

	n, err := s.DeleteResolvedRecordsBefore(ctx, at(21))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
