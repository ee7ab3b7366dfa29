package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dushixiang/pika-alert/internal/alertstate"
	"github.com/dushixiang/pika-alert/internal/config"
	"github.com/dushixiang/pika-alert/internal/service"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	JobHeartbeat      = "heartbeat"
	JobAlertRetention = "alert_retention"
	JobStateCleanup   = "alert_state_cleanup"
)

// Job 调度任务
type Job struct {
	Name    string
	Spec    string
	EntryID cron.EntryID
}

// JobScheduler 后台定时任务调度器
type JobScheduler struct {
	mu     sync.RWMutex
	cron   *cron.Cron
	jobs   map[string]*Job
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc

	cfg          *config.AppConfig
	agentService *service.AgentService
	alertService *service.AlertService
	stateStore   *alertstate.GuardedStore
}

// NewJobScheduler 创建调度器
func NewJobScheduler(logger *zap.Logger, cfg *config.AppConfig, agentService *service.AgentService, alertService *service.AlertService, stateStore *alertstate.GuardedStore) *JobScheduler {
	return &JobScheduler{
		cron:         cron.New(),
		jobs:         make(map[string]*Job),
		logger:       logger,
		cfg:          cfg,
		agentService: agentService,
		alertService: alertService,
		stateStore:   stateStore,
	}
}

// Start 注册任务并启动调度器
func (s *JobScheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.logger.Info("启动定时任务调度器")

	if err := s.AddJob(JobHeartbeat, s.cfg.Agent.HeartbeatCheckSpec, s.checkHeartbeat); err != nil {
		return err
	}
	if s.cfg.Retention.AlertRecordDays > 0 {
		if err := s.AddJob(JobAlertRetention, s.cfg.Retention.Spec, s.cleanupAlertRecords); err != nil {
			return err
		}
	}
	if s.stateStore != nil && strings.EqualFold(s.cfg.StateStore.Type, "database") {
		if err := s.AddJob(JobStateCleanup, "@every 10m", s.cleanupAlertStates); err != nil {
			return err
		}
	}

	s.cron.Start()
	return nil
}

// Stop 停止调度器，等待正在执行的任务结束
func (s *JobScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.logger.Info("定时任务调度器已停止")
}

// AddJob 添加任务，同名任务会被替换
func (s *JobScheduler) AddJob(name, spec string, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, exists := s.jobs[name]; exists {
		s.cron.Remove(job.EntryID)
		delete(s.jobs, name)
	}

	entryID, err := s.cron.AddFunc(spec, fn)
	if err != nil {
		return fmt.Errorf("添加 cron 任务失败 %s: %w", name, err)
	}
	s.jobs[name] = &Job{Name: name, Spec: spec, EntryID: entryID}

	s.logger.Info("添加定时任务", zap.String("job", name), zap.String("spec", spec))
	return nil
}

// RemoveJob 删除任务
func (s *JobScheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, exists := s.jobs[name]; exists {
		s.cron.Remove(job.EntryID)
		delete(s.jobs, name)
		s.logger.Info("删除定时任务", zap.String("job", name))
	}
}

// GetTaskStatus 获取任务状态
func (s *JobScheduler) GetTaskStatus() []map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entryMap := make(map[cron.EntryID]cron.Entry)
	for _, entry := range s.cron.Entries() {
		entryMap[entry.ID] = entry
	}

	tasks := make([]map[string]interface{}, 0, len(s.jobs))
	for _, job := range s.jobs {
		status := map[string]interface{}{
			"name": job.Name,
			"spec": job.Spec,
		}
		if entry, ok := entryMap[job.EntryID]; ok {
			status["next"] = entry.Next
			status["prev"] = entry.Prev
		}
		tasks = append(tasks, status)
	}
	return tasks
}

func (s *JobScheduler) jobContext() context.Context {
	if s.ctx != nil {
		return s.ctx
	}
	return context.Background()
}

// checkHeartbeat 标记心跳超时的探针为离线
func (s *JobScheduler) checkHeartbeat() {
	n, err := s.agentService.CheckHeartbeat(s.jobContext(), s.cfg.Agent.HeartbeatTimeout)
	if err != nil {
		s.logger.Error("检查探针心跳失败", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("探针心跳检查完成", zap.Int("offline", n))
	}
}

// cleanupAlertRecords 删除超过保留天数的已恢复告警
func (s *JobScheduler) cleanupAlertRecords() {
	before := time.Now().AddDate(0, 0, -s.cfg.Retention.AlertRecordDays).UnixMilli()
	n, err := s.alertService.DeleteResolvedRecordsBefore(s.jobContext(), before)
	if err != nil {
		s.logger.Error("清理告警记录失败", zap.Error(err))
		return
	}
	s.logger.Info("清理告警记录完成", zap.Int64("deleted", n), zap.Int("days", s.cfg.Retention.AlertRecordDays))
}

// cleanupAlertStates 删除数据库中过期的告警状态
func (s *JobScheduler) cleanupAlertStates() {
	n, err := s.stateStore.DeleteExpired(s.jobContext())
	if err != nil {
		s.logger.Error("清理告警状态失败", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Debug("清理过期告警状态", zap.Int64("deleted", n))
	}
}
