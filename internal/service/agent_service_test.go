package service

import (
	"context"
	"testing"
	"time"

	"github.com/dushixiang/pika-alert/internal/models"
	"github.com/dushixiang/pika-alert/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegisterAgent(t *testing.T) {
	ctx := context.Background()
	publisher := &recordingPublisher{}
	s := NewAgentService(zap.NewNop(), openTestDB(t), publisher)

	agent, err := s.RegisterAgent(ctx, "10.0.0.1", &protocol.AgentInfo{Hostname: "web-1", OS: "linux", Version: "1.0.0"})
	require.NoError(t, err)
	assert.NotEmpty(t, agent.ID)
	assert.Equal(t, "web-1", agent.Name)
	assert.Equal(t, models.AgentStatusOnline, agent.Status)

	again, err := s.RegisterAgent(ctx, "10.0.0.2", &protocol.AgentInfo{ID: agent.ID, Name: "web", Hostname: "web-1", Version: "1.0.1"})
	require.NoError(t, err)
	assert.Equal(t, agent.ID, again.ID)

	got, err := s.GetAgent(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2", got.IP)
	assert.Equal(t, "1.0.1", got.Version)

	agents, err := s.ListAgents(ctx)
	require.NoError(t, err)
	assert.Len(t, agents, 1)
	assert.Equal(t, []string{protocol.EventAgentStatus, protocol.EventAgentStatus}, publisher.Events())
}

func TestHeartbeatAndCheckHeartbeat(t *testing.T) {
	ctx := context.Background()
	s := NewAgentService(zap.NewNop(), openTestDB(t), nil)

	assert.ErrorIs(t, s.Heartbeat(ctx, "missing"), ErrAgentNotFound)

	require.NoError(t, s.AgentRepo.Create(ctx, &models.Agent{
		ID: "stale", Status: models.AgentStatusOnline, LastSeenAt: time.Now().Add(-10 * time.Minute).UnixMilli(),
	}))
	require.NoError(t, s.AgentRepo.Create(ctx, &models.Agent{
		ID: "fresh", Status: models.AgentStatusOnline, LastSeenAt: time.Now().Add(-10 * time.Minute).UnixMilli(),
	}))
	require.NoError(t, s.Heartbeat(ctx, "fresh"))

	n, err := s.CheckHeartbeat(ctx, 2*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stale, err := s.GetAgent(ctx, "stale")
	require.NoError(t, err)
	assert.Equal(t, models.AgentStatusOffline, stale.Status)

	fresh, err := s.GetAgent(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, models.AgentStatusOnline, fresh.Status)
}

func TestDeleteAgent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s := NewAgentService(zap.NewNop(), db, nil)
	alerts := NewAlertService(zap.NewNop(), db, nil, nil)

	require.NoError(t, s.AgentRepo.Create(ctx, &models.Agent{ID: testAgentID}))
	createCPUConfig(t, alerts, 80, 60)

	require.NoError(t, s.DeleteAgent(ctx, testAgentID))
	_, err := s.GetAgent(ctx, testAgentID)
	assert.ErrorIs(t, err, ErrAgentNotFound)

	configs, err := alerts.ListConfigsByAgent(ctx, testAgentID)
	require.NoError(t, err)
	assert.Empty(t, configs)

	assert.ErrorIs(t, s.DeleteAgent(ctx, testAgentID), ErrAgentNotFound)
}
