package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dushixiang/pika-alert/internal/alertstate"
	"github.com/dushixiang/pika-alert/internal/metrics"
	"github.com/dushixiang/pika-alert/internal/models"
	"github.com/dushixiang/pika-alert/internal/protocol"
	"github.com/dushixiang/pika-alert/internal/repo"
	"github.com/go-orz/orz"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultRecordLimit = 20
	maxRecordLimit     = 100
)

var ErrAlertConfigNotFound = errors.New("告警配置不存在")

// Publisher 实时事件推送
type Publisher interface {
	Broadcast(eventType string, data interface{})
}

type alertConfigStore interface {
	FindEnabledByAgentID(ctx context.Context, agentID string) ([]models.AlertConfig, error)
}

type alertRecordStore interface {
	CreateAlertRecord(ctx context.Context, record *models.AlertRecord) error
	GetAlertRecordByID(ctx context.Context, id int64) (*models.AlertRecord, error)
	UpdateAlertRecord(ctx context.Context, record *models.AlertRecord) error
}

// AlertService 告警服务
type AlertService struct {
	Service         *orz.Service
	AlertConfigRepo *repo.AlertConfigRepo
	AlertRecordRepo *repo.AlertRecordRepo
	agentRepo       *repo.AgentRepo
	stateStore      alertstate.Store
	publisher       Publisher
	logger          *zap.Logger

	// 告警检查使用的数据源，测试中可替换
	configs alertConfigStore
	records alertRecordStore
}

func NewAlertService(logger *zap.Logger, db *gorm.DB, stateStore alertstate.Store, publisher Publisher) *AlertService {
	configRepo := repo.NewAlertConfigRepo(db)
	recordRepo := repo.NewAlertRecordRepo(db)
	return &AlertService{
		Service:         orz.NewService(db),
		AlertConfigRepo: configRepo,
		AlertRecordRepo: recordRepo,
		agentRepo:       repo.NewAgentRepo(db),
		stateStore:      stateStore,
		publisher:       publisher,
		logger:          logger,
		configs:         configRepo,
		records:         recordRepo,
	}
}

// CheckMetrics 使用一次上报的指标快照检查探针的所有已启用告警配置
//
// now 为本次检查的时间（毫秒），同一探针的多次检查需按 now 递增的顺序执行
func (s *AlertService) CheckMetrics(ctx context.Context, agentID string, snapshot models.MetricSnapshot, now int64) error {
	start := time.Now()
	defer func() {
		metrics.AlertEvaluationDuration.Observe(time.Since(start).Seconds())
	}()

	configs, err := s.configs.FindEnabledByAgentID(ctx, agentID)
	if err != nil {
		s.logger.Error("获取告警配置失败", zap.String("agentId", agentID), zap.Error(err))
		return err
	}

	for i := range configs {
		config := &configs[i]
		if !config.Enabled {
			continue
		}
		for _, alertType := range models.AlertTypes {
			rule, ok := config.Rules.Rule(alertType)
			if !ok || !rule.Enabled {
				continue
			}
			value, ok := snapshot.Value(alertType)
			if !ok {
				continue
			}
			s.checkRule(ctx, agentID, config, alertType, rule, value, now)
		}
	}
	return nil
}

// checkRule 检查单个告警规则
func (s *AlertService) checkRule(ctx context.Context, agentID string, config *models.AlertConfig, alertType models.AlertType, rule models.AlertRule, currentValue float64, now int64) {
	metrics.AlertEvaluations.WithLabelValues(string(alertType)).Inc()

	stateKey := alertstate.Key(agentID, config.ID, alertType)

	state, _, err := s.stateStore.Get(ctx, stateKey)
	if err != nil {
		s.logger.Warn("读取告警状态失败", zap.String("key", stateKey), zap.Error(err))
		state = alertstate.State{}
	}

	if currentValue >= rule.Threshold {
		if state.StartTime == 0 {
			state.StartTime = now
		} else {
			// 乱序到达的旧快照不会让持续时间变为负数
			elapsedSeconds := (now - state.StartTime) / 1000
			if elapsedSeconds < 0 {
				elapsedSeconds = 0
			}
			if elapsedSeconds >= int64(rule.Duration) && !state.IsFiring {
				recordID, err := s.fireAlert(ctx, agentID, config, alertType, rule, currentValue, now)
				if err == nil {
					state.IsFiring = true
					state.LastRecordID = recordID
				}
			}
		}
	} else {
		if state.IsFiring {
			s.resolveAlert(ctx, agentID, config, alertType, currentValue, state.LastRecordID, now)
			state.IsFiring = false
			state.LastRecordID = 0
		}
		state.StartTime = 0
	}

	if err := s.stateStore.Put(ctx, stateKey, state); err != nil {
		s.logger.Error("保存告警状态失败", zap.String("key", stateKey), zap.Error(err))
	}
}

// fireAlert 创建告警记录并返回记录ID
func (s *AlertService) fireAlert(ctx context.Context, agentID string, config *models.AlertConfig, alertType models.AlertType, rule models.AlertRule, value float64, now int64) (int64, error) {
	s.logger.Warn("触发告警",
		zap.String("agentId", agentID),
		zap.String("configId", config.ID),
		zap.String("alertType", string(alertType)),
		zap.Float64("value", value),
		zap.Float64("threshold", rule.Threshold),
	)

	record := &models.AlertRecord{
		AgentID:     agentID,
		ConfigID:    config.ID,
		ConfigName:  config.Name,
		AlertType:   alertType,
		Message:     buildAlertMessage(alertType, value, rule.Threshold, rule.Duration),
		Threshold:   rule.Threshold,
		ActualValue: value,
		Level:       models.AlertLevelWarning,
		Status:      models.AlertStatusFiring,
		FiredAt:     now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.records.CreateAlertRecord(ctx, record); err != nil {
		// 不标记为告警中，下次检查仍超限时重试
		metrics.AlertRecordErrors.WithLabelValues("create").Inc()
		s.logger.Error("创建告警记录失败", zap.String("agentId", agentID), zap.Error(err))
		return 0, err
	}

	metrics.AlertsFired.WithLabelValues(string(alertType)).Inc()
	s.broadcast(protocol.EventAlertFired, record)
	return record.ID, nil
}

// resolveAlert 恢复告警，记录不存在时忽略
func (s *AlertService) resolveAlert(ctx context.Context, agentID string, config *models.AlertConfig, alertType models.AlertType, value float64, recordID int64, now int64) {
	s.logger.Info("告警恢复",
		zap.String("agentId", agentID),
		zap.String("configId", config.ID),
		zap.String("alertType", string(alertType)),
		zap.Float64("value", value),
	)

	if recordID == 0 {
		return
	}

	existingRecord, err := s.records.GetAlertRecordByID(ctx, recordID)
	if err != nil {
		metrics.AlertRecordErrors.WithLabelValues("find").Inc()
		s.logger.Error("获取告警记录失败", zap.Int64("recordId", recordID), zap.Error(err))
		return
	}
	if existingRecord == nil {
		return
	}
	// 只有当记录状态为 firing 时才更新为 resolved
	if existingRecord.Status != models.AlertStatusFiring {
		s.logger.Warn("告警记录状态异常，跳过恢复",
			zap.Int64("recordId", existingRecord.ID),
			zap.String("status", existingRecord.Status),
		)
		return
	}

	existingRecord.Status = models.AlertStatusResolved
	existingRecord.ResolvedAt = now
	existingRecord.UpdatedAt = now
	if err := s.records.UpdateAlertRecord(ctx, existingRecord); err != nil {
		metrics.AlertRecordErrors.WithLabelValues("update").Inc()
		s.logger.Error("更新告警记录失败", zap.Int64("recordId", recordID), zap.Error(err))
		return
	}

	metrics.AlertsResolved.WithLabelValues(string(alertType)).Inc()
	s.broadcast(protocol.EventAlertResolved, existingRecord)
}

func (s *AlertService) broadcast(eventType string, data interface{}) {
	if s.publisher != nil {
		s.publisher.Broadcast(eventType, data)
	}
}

// buildAlertMessage 构建告警消息
func buildAlertMessage(alertType models.AlertType, value, threshold float64, duration int) string {
	return fmt.Sprintf("%s 持续 %d 秒超过 %.1f%%，当前值 %.1f%%",
		alertType.DisplayName(),
		duration,
		threshold,
		value,
	)
}

// === 配置管理 ===

// CreateConfig 创建告警配置，探针必须已注册
func (s *AlertService) CreateConfig(ctx context.Context, config *models.AlertConfig) error {
	if err := ValidateAlertConfig(config); err != nil {
		return err
	}
	if _, err := s.agentRepo.FindById(ctx, config.AgentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAgentNotFound
		}
		return err
	}
	now := time.Now().UnixMilli()
	config.ID = uuid.NewString()
	config.CreatedAt = now
	config.UpdatedAt = now
	return s.AlertConfigRepo.Create(ctx, config)
}

// UpdateConfig 更新告警配置，探针归属和创建时间不变
func (s *AlertService) UpdateConfig(ctx context.Context, id string, input *models.AlertConfig) (*models.AlertConfig, error) {
	if err := ValidateAlertConfig(input); err != nil {
		return nil, err
	}
	config, err := s.GetConfig(ctx, id)
	if err != nil {
		return nil, err
	}

	config.Name = input.Name
	config.Enabled = input.Enabled
	config.Rules = input.Rules
	config.UpdatedAt = time.Now().UnixMilli()
	if err := s.AlertConfigRepo.Save(ctx, config); err != nil {
		return nil, err
	}
	return config, nil
}

// DeleteConfig 删除告警配置，已产生的告警记录保留
func (s *AlertService) DeleteConfig(ctx context.Context, id string) error {
	if _, err := s.GetConfig(ctx, id); err != nil {
		return err
	}
	return s.AlertConfigRepo.DeleteById(ctx, id)
}

// GetConfig 获取告警配置
func (s *AlertService) GetConfig(ctx context.Context, id string) (*models.AlertConfig, error) {
	config, err := s.AlertConfigRepo.FindById(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertConfigNotFound
		}
		return nil, err
	}
	return &config, nil
}

// ListConfigsByAgent 列出探针的告警配置
func (s *AlertService) ListConfigsByAgent(ctx context.Context, agentID string) ([]models.AlertConfig, error) {
	return s.AlertConfigRepo.FindByAgentID(ctx, agentID)
}

// === 告警记录 ===

// AlertRecordPage 告警记录分页结果
type AlertRecordPage struct {
	Records []models.AlertRecord `json:"records"`
	Total   int64                `json:"total"`
	Limit   int                  `json:"limit"`
	Offset  int                  `json:"offset"`
}

// ListRecords 分页查询告警记录，agentID 为空时查询全部探针
func (s *AlertService) ListRecords(ctx context.Context, agentID string, limit, offset int) (*AlertRecordPage, error) {
	if limit <= 0 {
		limit = defaultRecordLimit
	}
	if limit > maxRecordLimit {
		limit = maxRecordLimit
	}
	if offset < 0 {
		offset = 0
	}

	records, total, err := s.AlertRecordRepo.ListAlertRecords(ctx, agentID, limit, offset)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []models.AlertRecord{}
	}
	return &AlertRecordPage{
		Records: records,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}, nil
}

// ClearRecords 清空告警记录和告警状态
func (s *AlertService) ClearRecords(ctx context.Context) error {
	return s.Service.Transaction(ctx, func(ctx context.Context) error {
		// 清空告警记录
		if err := s.AlertRecordRepo.Clear(ctx); err != nil {
			s.logger.Error("清空告警记录失败", zap.Error(err))
			return err
		}

		// 清空告警状态
		if clearer, ok := s.stateStore.(alertstate.Clearer); ok {
			if err := clearer.Clear(ctx); err != nil {
				s.logger.Error("清空告警状态失败", zap.Error(err))
				return err
			}
		}

		return nil
	})
}

// DeleteResolvedRecordsBefore 删除指定时间之前恢复的告警记录
func (s *AlertService) DeleteResolvedRecordsBefore(ctx context.Context, timestamp int64) (int64, error) {
	return s.AlertRecordRepo.DeleteResolvedBefore(ctx, timestamp)
}
