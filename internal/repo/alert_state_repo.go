package repo

import (
	"context"

	"github.com/dushixiang/pika-alert/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AlertStateRepo struct {
	orz.Repository[models.AlertState, string]
	db *gorm.DB
}

func NewAlertStateRepo(db *gorm.DB) *AlertStateRepo {
	return &AlertStateRepo{
		Repository: orz.NewRepository[models.AlertState, string](db),
		db:         db,
	}
}

// GetAlertState 获取未过期的告警状态，不存在或已过期时返回 gorm.ErrRecordNotFound
func (r *AlertStateRepo) GetAlertState(ctx context.Context, id string, now int64) (*models.AlertState, error) {
	var state models.AlertState
	err := r.GetDB(ctx).
		Where("id = ? AND expires_at > ?", id, now).
		First(&state).Error
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// SaveAlertState 保存告警状态（按 id 覆盖）
func (r *AlertStateRepo) SaveAlertState(ctx context.Context, state *models.AlertState) error {
	return r.GetDB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"start_time", "is_firing", "last_record_id", "expires_at", "updated_at"}),
		}).
		Create(state).Error
}

// DeleteExpired 删除已过期的状态
func (r *AlertStateRepo) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	tx := r.GetDB(ctx).Where("expires_at <= ?", now).Delete(&models.AlertState{})
	return tx.RowsAffected, tx.Error
}

// Clear 清空告警状态
func (r *AlertStateRepo) Clear(ctx context.Context) error {
	return r.GetDB(ctx).Where("1 = 1").Delete(&models.AlertState{}).Error
}
