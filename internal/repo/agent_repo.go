package repo

import (
	"context"

	"github.com/dushixiang/pika-alert/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

type AgentRepo struct {
	orz.Repository[models.Agent, string]
	db *gorm.DB
}

func NewAgentRepo(db *gorm.DB) *AgentRepo {
	return &AgentRepo{
		Repository: orz.NewRepository[models.Agent, string](db),
		db:         db,
	}
}

// UpdateHeartbeat 更新心跳时间并标记在线，返回是否找到探针
func (r *AgentRepo) UpdateHeartbeat(ctx context.Context, id string, now int64) (bool, error) {
	tx := r.GetDB(ctx).Model(&models.Agent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       models.AgentStatusOnline,
			"last_seen_at": now,
			"updated_at":   now,
		})
	return tx.RowsAffected > 0, tx.Error
}

// UpdateStatus 更新探针状态
func (r *AgentRepo) UpdateStatus(ctx context.Context, id string, status int, now int64) error {
	return r.GetDB(ctx).Model(&models.Agent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": now,
		}).Error
}

// FindStaleOnlineAgents 查找在线但心跳早于指定时间的探针
func (r *AgentRepo) FindStaleOnlineAgents(ctx context.Context, before int64) ([]models.Agent, error) {
	var agents []models.Agent
	err := r.GetDB(ctx).
		Where("status = ? AND last_seen_at < ?", models.AgentStatusOnline, before).
		Find(&agents).Error
	return agents, err
}

// FindAllOrdered 按名称排序列出所有探针
func (r *AgentRepo) FindAllOrdered(ctx context.Context) ([]models.Agent, error) {
	var agents []models.Agent
	err := r.GetDB(ctx).Order("name ASC").Find(&agents).Error
	return agents, err
}
