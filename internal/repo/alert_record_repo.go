package repo

import (
	"context"
	"errors"

	"github.com/dushixiang/pika-alert/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

type AlertRecordRepo struct {
	orz.Repository[models.AlertRecord, int64]
	db *gorm.DB
}

func NewAlertRecordRepo(db *gorm.DB) *AlertRecordRepo {
	return &AlertRecordRepo{
		Repository: orz.NewRepository[models.AlertRecord, int64](db),
		db:         db,
	}
}

// CreateAlertRecord 创建告警记录，成功后 record.ID 为新记录ID
func (r *AlertRecordRepo) CreateAlertRecord(ctx context.Context, record *models.AlertRecord) error {
	return r.GetDB(ctx).Create(record).Error
}

// GetAlertRecordByID 根据ID获取告警记录，不存在时返回 nil
func (r *AlertRecordRepo) GetAlertRecordByID(ctx context.Context, id int64) (*models.AlertRecord, error) {
	var record models.AlertRecord
	err := r.GetDB(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// UpdateAlertRecord 更新告警记录的状态字段
func (r *AlertRecordRepo) UpdateAlertRecord(ctx context.Context, record *models.AlertRecord) error {
	return r.GetDB(ctx).Model(&models.AlertRecord{}).
		Where("id = ?", record.ID).
		Updates(map[string]interface{}{
			"status":       record.Status,
			"actual_value": record.ActualValue,
			"resolved_at":  record.ResolvedAt,
			"updated_at":   record.UpdatedAt,
		}).Error
}

// ListAlertRecords 分页查询告警记录，agentID 为空时查询全部
func (r *AlertRecordRepo) ListAlertRecords(ctx context.Context, agentID string, limit, offset int) ([]models.AlertRecord, int64, error) {
	var records []models.AlertRecord
	var total int64

	query := func() *gorm.DB {
		q := r.GetDB(ctx).Model(&models.AlertRecord{})
		if agentID != "" {
			q = q.Where("agent_id = ?", agentID)
		}
		return q
	}

	// 统计总数
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query().Order("fired_at DESC").Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error

	return records, total, err
}

// DeleteResolvedBefore 删除指定时间之前已恢复的告警记录
func (r *AlertRecordRepo) DeleteResolvedBefore(ctx context.Context, timestamp int64) (int64, error) {
	tx := r.GetDB(ctx).
		Where("status = ? AND resolved_at < ?", models.AlertStatusResolved, timestamp).
		Delete(&models.AlertRecord{})
	return tx.RowsAffected, tx.Error
}

// Clear 清空告警记录
func (r *AlertRecordRepo) Clear(ctx context.Context) error {
	return r.GetDB(ctx).Where("1 = 1").Delete(&models.AlertRecord{}).Error
}
