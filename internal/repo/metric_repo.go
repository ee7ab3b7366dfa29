package repo

import (
	"context"
	"fmt"

	"github.com/dushixiang/pika-alert/internal/models"
	"github.com/dushixiang/pika-alert/internal/protocol"
	"gorm.io/gorm"
)

type MetricRepo struct {
	db *gorm.DB
}

func NewMetricRepo(db *gorm.DB) *MetricRepo {
	return &MetricRepo{
		db: db,
	}
}

// SaveCPUMetric 保存 CPU 指标
func (r *MetricRepo) SaveCPUMetric(ctx context.Context, metric *models.CPUMetric) error {
	return r.db.WithContext(ctx).Create(metric).Error
}

// SaveMemoryMetric 保存内存指标
func (r *MetricRepo) SaveMemoryMetric(ctx context.Context, metric *models.MemoryMetric) error {
	return r.db.WithContext(ctx).Create(metric).Error
}

// SaveDiskMetric 保存磁盘指标
func (r *MetricRepo) SaveDiskMetric(ctx context.Context, metric *models.DiskMetric) error {
	return r.db.WithContext(ctx).Create(metric).Error
}

// SaveNetworkMetric 保存网络指标
func (r *MetricRepo) SaveNetworkMetric(ctx context.Context, metric *models.NetworkMetric) error {
	return r.db.WithContext(ctx).Create(metric).Error
}

// SaveLoadMetric 保存负载指标
func (r *MetricRepo) SaveLoadMetric(ctx context.Context, metric *models.LoadMetric) error {
	return r.db.WithContext(ctx).Create(metric).Error
}

// modelFor 指标类型对应的表模型
func modelFor(metricType protocol.MetricType) (interface{}, error) {
	switch metricType {
	case protocol.MetricTypeCPU:
		return &[]models.CPUMetric{}, nil
	case protocol.MetricTypeMemory:
		return &[]models.MemoryMetric{}, nil
	case protocol.MetricTypeDisk:
		return &[]models.DiskMetric{}, nil
	case protocol.MetricTypeNetwork:
		return &[]models.NetworkMetric{}, nil
	case protocol.MetricTypeLoad:
		return &[]models.LoadMetric{}, nil
	default:
		return nil, fmt.Errorf("unsupported metric type: %s", metricType)
	}
}

// QueryMetrics 查询指定时间之后的指标，按时间正序
func (r *MetricRepo) QueryMetrics(ctx context.Context, agentID string, metricType protocol.MetricType, start int64) (interface{}, error) {
	dest, err := modelFor(metricType)
	if err != nil {
		return nil, err
	}
	err = r.db.WithContext(ctx).
		Where("agent_id = ? AND timestamp >= ?", agentID, start).
		Order("timestamp ASC").
		Find(dest).Error
	return dest, err
}

// DeleteAgentMetrics 删除指定探针的所有指标数据
func (r *MetricRepo) DeleteAgentMetrics(ctx context.Context, agentID string) error {
	tables := []interface{}{
		&models.CPUMetric{},
		&models.MemoryMetric{},
		&models.DiskMetric{},
		&models.NetworkMetric{},
		&models.LoadMetric{},
	}
	for _, table := range tables {
		if err := r.db.WithContext(ctx).Where("agent_id = ?", agentID).Delete(table).Error; err != nil {
			return err
		}
	}
	return nil
}
