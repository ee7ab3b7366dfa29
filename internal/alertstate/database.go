package alertstate

import (
	"context"
	"errors"
	"time"

	"github.com/dushixiang/pika-alert/internal/models"
	"github.com/dushixiang/pika-alert/internal/repo"
	"gorm.io/gorm"
)

// DatabaseStore 基于数据库表的状态存储，过期的行在读取时忽略并由定时任务清理
type DatabaseStore struct {
	repo *repo.AlertStateRepo
	ttl  time.Duration
	now  func() time.Time
}

func NewDatabaseStore(db *gorm.DB, ttl time.Duration) *DatabaseStore {
	return &DatabaseStore{
		repo: repo.NewAlertStateRepo(db),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (d *DatabaseStore) Get(ctx context.Context, key string) (State, bool, error) {
	row, err := d.repo.GetAlertState(ctx, key, d.now().UnixMilli())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, err
	}
	return State{
		StartTime:    row.StartTime,
		IsFiring:     row.IsFiring,
		LastRecordID: row.LastRecordID,
	}, true, nil
}

func (d *DatabaseStore) Put(ctx context.Context, key string, state State) error {
	now := d.now()
	return d.repo.SaveAlertState(ctx, &models.AlertState{
		ID:           key,
		StartTime:    state.StartTime,
		IsFiring:     state.IsFiring,
		LastRecordID: state.LastRecordID,
		ExpiresAt:    now.Add(d.ttl).UnixMilli(),
		UpdatedAt:    now.UnixMilli(),
	})
}

// DeleteExpired 清理过期状态
func (d *DatabaseStore) DeleteExpired(ctx context.Context) (int64, error) {
	return d.repo.DeleteExpired(ctx, d.now().UnixMilli())
}

func (d *DatabaseStore) Clear(ctx context.Context) error {
	return d.repo.Clear(ctx)
}
