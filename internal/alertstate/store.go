package alertstate

import (
	"context"
	"fmt"

	"github.com/dushixiang/pika-alert/internal/models"
)

// State 单个 (探针, 配置, 指标) 的告警检查状态
//
// StartTime 为 0 表示当前未连续超限；LastRecordID 为 0 表示没有关联的告警记录
type State struct {
	StartTime    int64 `json:"startTime"`    // 连续超限开始时间（毫秒）
	IsFiring     bool  `json:"isFiring"`     // 是否正在告警
	LastRecordID int64 `json:"lastRecordId"` // 当前告警记录ID
}

// Key 状态存储键
func Key(agentID, configID string, alertType models.AlertType) string {
	return fmt.Sprintf("%s%s:%s:%s", KeyPrefix, agentID, configID, alertType)
}

const KeyPrefix = "alert_state:"

// Store 告警状态存储，键不存在时返回 ok=false
type Store interface {
	Get(ctx context.Context, key string) (state State, ok bool, err error)
	Put(ctx context.Context, key string, state State) error
}

// Clearer 支持清空全部状态的存储
type Clearer interface {
	Clear(ctx context.Context) error
}
