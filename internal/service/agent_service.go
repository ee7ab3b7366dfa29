package service

import (
	"context"
	"errors"
	"time"

	"github.com/dushixiang/pika-alert/internal/metrics"
	"github.com/dushixiang/pika-alert/internal/models"
	"github.com/dushixiang/pika-alert/internal/protocol"
	"github.com/dushixiang/pika-alert/internal/repo"
	"github.com/go-orz/orz"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrAgentNotFound = errors.New("探针不存在")

type AgentService struct {
	logger *zap.Logger
	*orz.Service
	AgentRepo       *repo.AgentRepo
	alertConfigRepo *repo.AlertConfigRepo
	metricRepo      *repo.MetricRepo
	publisher       Publisher
}

func NewAgentService(logger *zap.Logger, db *gorm.DB, publisher Publisher) *AgentService {
	return &AgentService{
		logger:          logger,
		Service:         orz.NewService(db),
		AgentRepo:       repo.NewAgentRepo(db),
		alertConfigRepo: repo.NewAlertConfigRepo(db),
		metricRepo:      repo.NewMetricRepo(db),
		publisher:       publisher,
	}
}

// RegisterAgent 注册探针，探针未提供 ID 时生成新的 ID，未自报 IP 时使用请求来源地址
func (s *AgentService) RegisterAgent(ctx context.Context, ip string, info *protocol.AgentInfo) (*models.Agent, error) {
	if info.ID == "" {
		info.ID = uuid.NewString()
	}
	if info.IP != "" {
		ip = info.IP
	}
	now := time.Now().UnixMilli()

	// 使用探针的持久化 ID 来识别同一个探针
	existingAgent, err := s.AgentRepo.FindById(ctx, info.ID)
	if err == nil {
		existingAgent.Name = info.Name
		existingAgent.Hostname = info.Hostname
		existingAgent.IP = ip
		existingAgent.OS = info.OS
		existingAgent.Arch = info.Arch
		existingAgent.Version = info.Version
		existingAgent.Status = models.AgentStatusOnline
		existingAgent.LastSeenAt = now
		existingAgent.UpdatedAt = now

		if err := s.AgentRepo.UpdateById(ctx, &existingAgent); err != nil {
			return nil, err
		}
		s.logger.Info("探针重新注册",
			zap.String("agentId", existingAgent.ID),
			zap.String("hostname", info.Hostname),
			zap.String("ip", ip),
			zap.String("version", info.Version))
		s.publishStatus(existingAgent.ID, models.AgentStatusOnline)
		return &existingAgent, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	agent := &models.Agent{
		ID:         info.ID,
		Name:       info.Name,
		Hostname:   info.Hostname,
		IP:         ip,
		OS:         info.OS,
		Arch:       info.Arch,
		Version:    info.Version,
		Status:     models.AgentStatusOnline,
		LastSeenAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if agent.Name == "" {
		agent.Name = info.Hostname
	}

	if err := s.AgentRepo.Create(ctx, agent); err != nil {
		return nil, err
	}

	s.logger.Info("探针注册成功",
		zap.String("agentId", agent.ID),
		zap.String("hostname", info.Hostname),
		zap.String("ip", ip),
		zap.String("version", info.Version))
	s.publishStatus(agent.ID, models.AgentStatusOnline)
	return agent, nil
}

// Heartbeat 刷新探针心跳
func (s *AgentService) Heartbeat(ctx context.Context, agentID string) error {
	found, err := s.AgentRepo.UpdateHeartbeat(ctx, agentID, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	if !found {
		return ErrAgentNotFound
	}
	return nil
}

// CheckHeartbeat 将超时未上报心跳的探针标记为离线，返回离线数量
func (s *AgentService) CheckHeartbeat(ctx context.Context, timeout time.Duration) (int, error) {
	now := time.Now()
	staleAgents, err := s.AgentRepo.FindStaleOnlineAgents(ctx, now.Add(-timeout).UnixMilli())
	if err != nil {
		return 0, err
	}

	for _, agent := range staleAgents {
		if err := s.AgentRepo.UpdateStatus(ctx, agent.ID, models.AgentStatusOffline, now.UnixMilli()); err != nil {
			s.logger.Error("更新探针状态失败", zap.String("agentId", agent.ID), zap.Error(err))
			continue
		}
		s.logger.Info("探针心跳超时，标记为离线",
			zap.String("agentId", agent.ID),
			zap.String("hostname", agent.Hostname),
			zap.Int64("lastSeenAt", agent.LastSeenAt))
		s.publishStatus(agent.ID, models.AgentStatusOffline)
	}

	s.refreshOnlineGauge(ctx)
	return len(staleAgents), nil
}

func (s *AgentService) refreshOnlineGauge(ctx context.Context) {
	agents, err := s.AgentRepo.FindAll(ctx)
	if err != nil {
		return
	}
	online := 0
	for _, agent := range agents {
		if agent.Status == models.AgentStatusOnline {
			online++
		}
	}
	metrics.AgentsOnline.Set(float64(online))
}

func (s *AgentService) publishStatus(agentID string, status int) {
	if s.publisher != nil {
		s.publisher.Broadcast(protocol.EventAgentStatus, protocol.AgentStatusEvent{AgentID: agentID, Status: status})
	}
}

// GetAgent 获取探针信息
func (s *AgentService) GetAgent(ctx context.Context, agentID string) (*models.Agent, error) {
	agent, err := s.AgentRepo.FindById(ctx, agentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}
	return &agent, nil
}

// ListAgents 列出所有探针
func (s *AgentService) ListAgents(ctx context.Context) ([]models.Agent, error) {
	return s.AgentRepo.FindAllOrdered(ctx)
}

// InitStatus 服务启动时将所有探针置为离线，等待重新上报
func (s *AgentService) InitStatus(ctx context.Context) error {
	agents, err := s.AgentRepo.FindAll(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	for _, agent := range agents {
		if err := s.AgentRepo.UpdateStatus(ctx, agent.ID, models.AgentStatusOffline, now); err != nil {
			return err
		}
	}
	metrics.AgentsOnline.Set(0)
	return nil
}

// DeleteAgent 删除探针及其告警配置和指标数据，告警记录保留
func (s *AgentService) DeleteAgent(ctx context.Context, agentID string) error {
	if _, err := s.GetAgent(ctx, agentID); err != nil {
		return err
	}

	// 指标数据量大，在事务外单独删除
	if err := s.metricRepo.DeleteAgentMetrics(ctx, agentID); err != nil {
		s.logger.Error("删除探针指标数据失败", zap.String("agentId", agentID), zap.Error(err))
		return err
	}

	return s.Transaction(ctx, func(ctx context.Context) error {
		// 删除探针的告警配置
		if err := s.alertConfigRepo.DeleteByAgentID(ctx, agentID); err != nil {
			s.logger.Error("删除探针告警配置失败", zap.String("agentId", agentID), zap.Error(err))
			return err
		}

		return s.AgentRepo.DeleteById(ctx, agentID)
	})
}
