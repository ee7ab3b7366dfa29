package repo

import (
	"context"

	"github.com/dushixiang/pika-alert/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

type AlertConfigRepo struct {
	orz.Repository[models.AlertConfig, string]
	db *gorm.DB
}

func NewAlertConfigRepo(db *gorm.DB) *AlertConfigRepo {
	return &AlertConfigRepo{
		Repository: orz.NewRepository[models.AlertConfig, string](db),
		db:         db,
	}
}

// FindEnabledByAgentID 获取探针已启用的告警配置
func (r *AlertConfigRepo) FindEnabledByAgentID(ctx context.Context, agentID string) ([]models.AlertConfig, error) {
	var configs []models.AlertConfig
	err := r.GetDB(ctx).
		Where("agent_id = ? AND enabled = ?", agentID, true).
		Order("created_at ASC").
		Find(&configs).Error
	return configs, err
}

// FindByAgentID 获取探针的全部告警配置
func (r *AlertConfigRepo) FindByAgentID(ctx context.Context, agentID string) ([]models.AlertConfig, error) {
	var configs []models.AlertConfig
	err := r.GetDB(ctx).
		Where("agent_id = ?", agentID).
		Order("created_at ASC").
		Find(&configs).Error
	return configs, err
}

// DeleteByAgentID 删除探针的全部告警配置
func (r *AlertConfigRepo) DeleteByAgentID(ctx context.Context, agentID string) error {
	return r.GetDB(ctx).Where("agent_id = ?", agentID).Delete(&models.AlertConfig{}).Error
}
