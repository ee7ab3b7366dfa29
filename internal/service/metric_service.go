package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dushixiang/pika-alert/internal/metric"
	"github.com/dushixiang/pika-alert/internal/metrics"
	"github.com/dushixiang/pika-alert/internal/models"
	"github.com/dushixiang/pika-alert/internal/protocol"
	"github.com/dushixiang/pika-alert/internal/queue"
	"github.com/dushixiang/pika-alert/internal/repo"
	"github.com/go-orz/cache"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrUnsupportedRange = errors.New("不支持的时间范围")

// TaskSubmitter 接收告警检查任务
type TaskSubmitter interface {
	Submit(task queue.Task) bool
}

// LatestMetrics 探针最近一次上报的快照
type LatestMetrics struct {
	AgentID   string                `json:"agentId"`
	Snapshot  models.MetricSnapshot `json:"snapshot"`
	Timestamp int64                 `json:"timestamp"`
}

// StoreResult 批量写入结果
type StoreResult struct {
	Count    int                   `json:"count"`
	Snapshot models.MetricSnapshot `json:"snapshot"`
}

// MetricHistory 历史指标查询结果
type MetricHistory struct {
	AgentID string              `json:"agentId"`
	Type    protocol.MetricType `json:"type"`
	Range   string              `json:"range"`
	Metrics interface{}         `json:"metrics"`
	Series  []metric.Series     `json:"series"`
}

var metricRanges = map[string]time.Duration{
	"1h":  time.Hour,
	"6h":  6 * time.Hour,
	"12h": 12 * time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
}

// MetricService 指标服务
type MetricService struct {
	logger     *zap.Logger
	metricRepo *repo.MetricRepo
	agentRepo  *repo.AgentRepo
	submitter  TaskSubmitter
	publisher  Publisher

	latestCache cache.Cache[string, *LatestMetrics]
}

// NewMetricService 创建指标服务
func NewMetricService(logger *zap.Logger, db *gorm.DB, submitter TaskSubmitter, publisher Publisher) *MetricService {
	return &MetricService{
		logger:      logger,
		metricRepo:  repo.NewMetricRepo(db),
		agentRepo:   repo.NewAgentRepo(db),
		submitter:   submitter,
		publisher:   publisher,
		latestCache: cache.New[string, *LatestMetrics](time.Minute),
	}
}

// StoreBatch 保存一批指标，并将其中的使用率快照交给告警检查队列
//
// 单条指标解析或写入失败只记录日志，不影响同批次的其他指标
func (s *MetricService) StoreBatch(ctx context.Context, agentID string, batch *protocol.MetricBatch) (*StoreResult, error) {
	if _, err := s.agentRepo.FindById(ctx, agentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}

	now := time.Now().UnixMilli()
	result := &StoreResult{}

	for _, item := range batch.Metrics {
		timestamp := item.Timestamp
		if timestamp <= 0 {
			timestamp = now
		}

		row, err := convertMetricItem(agentID, item, timestamp, &result.Snapshot)
		if err != nil {
			s.logger.Warn("解析指标失败", zap.String("agentId", agentID), zap.String("type", string(item.Type)), zap.Error(err))
			continue
		}
		if err := s.save(ctx, row); err != nil {
			s.logger.Error("保存指标失败", zap.String("agentId", agentID), zap.String("type", string(item.Type)), zap.Error(err))
			continue
		}
		metrics.MetricsIngested.WithLabelValues(string(item.Type)).Inc()
		result.Count++
	}

	if _, err := s.agentRepo.UpdateHeartbeat(ctx, agentID, now); err != nil {
		s.logger.Warn("更新探针心跳失败", zap.String("agentId", agentID), zap.Error(err))
	}

	if result.Snapshot.Empty() {
		return result, nil
	}

	s.latestCache.Set(agentID, &LatestMetrics{AgentID: agentID, Snapshot: result.Snapshot, Timestamp: now}, time.Hour)

	if s.publisher != nil {
		s.publisher.Broadcast(protocol.EventMetrics, protocol.MetricsEvent{AgentID: agentID, Timestamp: now, Snapshot: result.Snapshot})
	}

	// 异步检查告警，不阻塞上报请求
	if s.submitter != nil {
		s.submitter.Submit(queue.Task{AgentID: agentID, Snapshot: result.Snapshot, ObservedAt: now})
	}
	return result, nil
}

func (s *MetricService) save(ctx context.Context, row interface{}) error {
	switch m := row.(type) {
	case *models.CPUMetric:
		return s.metricRepo.SaveCPUMetric(ctx, m)
	case *models.MemoryMetric:
		return s.metricRepo.SaveMemoryMetric(ctx, m)
	case *models.DiskMetric:
		return s.metricRepo.SaveDiskMetric(ctx, m)
	case *models.NetworkMetric:
		return s.metricRepo.SaveNetworkMetric(ctx, m)
	case *models.LoadMetric:
		return s.metricRepo.SaveLoadMetric(ctx, m)
	default:
		return fmt.Errorf("unsupported metric row: %T", row)
	}
}

// GetHistory 查询指定时间范围内的历史指标，range 为空时默认 1h
func (s *MetricService) GetHistory(ctx context.Context, agentID string, metricType protocol.MetricType, timeRange string) (*MetricHistory, error) {
	if timeRange == "" {
		timeRange = "1h"
	}
	duration, ok := metricRanges[timeRange]
	if !ok {
		return nil, ErrUnsupportedRange
	}

	start := time.Now().Add(-duration).UnixMilli()
	data, err := s.metricRepo.QueryMetrics(ctx, agentID, metricType, start)
	if err != nil {
		return nil, err
	}
	return &MetricHistory{
		AgentID: agentID,
		Type:    metricType,
		Range:   timeRange,
		Metrics: data,
		Series:  metric.BuildSeries(data),
	}, nil
}

// GetLatestMetrics 获取探针最近一次上报的快照，没有时返回 nil
func (s *MetricService) GetLatestMetrics(ctx context.Context, agentID string) (*LatestMetrics, error) {
	latest, _ := s.latestCache.Get(agentID)
	return latest, nil
}

// DeleteAgentMetrics 删除探针的所有指标数据
func (s *MetricService) DeleteAgentMetrics(ctx context.Context, agentID string) error {
	return s.metricRepo.DeleteAgentMetrics(ctx, agentID)
}
