package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dushixiang/pika-alert/internal/protocol"
	"github.com/dushixiang/pika-alert/pkg/agent/client"
	"github.com/dushixiang/pika-alert/pkg/agent/collector"
	"github.com/dushixiang/pika-alert/pkg/agent/config"
	"github.com/dushixiang/pika-alert/pkg/agent/id"
)

var version = "dev"

// GetVersion 探针版本
func GetVersion() string {
	return version
}

// SetVersion 由构建参数注入
func SetVersion(v string) {
	version = v
}

// MetricCollector 指标采集
type MetricCollector interface {
	Collect(ctx context.Context) *protocol.MetricBatch
}

// ServerAPI 服务端接口
type ServerAPI interface {
	RegisterWithRetry(ctx context.Context, info protocol.AgentInfo) (string, error)
	Heartbeat(ctx context.Context, agentID string) error
	ReportMetrics(ctx context.Context, agentID string, batch *protocol.MetricBatch) error
}

// Agent 探针主循环：注册、定时心跳、定时采集上报
type Agent struct {
	cfg       *config.Config
	api       ServerAPI
	collector MetricCollector

	collectInterval   time.Duration
	heartbeatInterval time.Duration

	mu      sync.RWMutex
	agentID string
	cancel  context.CancelFunc
	done    chan struct{}
}

// New 创建探针
func New(cfg *config.Config) *Agent {
	return newAgent(cfg, client.New(cfg), collector.NewSystemCollector())
}

func newAgent(cfg *config.Config, api ServerAPI, c MetricCollector) *Agent {
	return &Agent{
		cfg:               cfg,
		api:               api,
		collector:         c,
		collectInterval:   cfg.GetCollectorInterval(),
		heartbeatInterval: cfg.GetHeartbeatInterval(),
		done:              make(chan struct{}),
	}
}

// ID 当前探针 ID
func (a *Agent) ID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.agentID
}

// Start 运行探针直到 ctx 结束或调用 Stop
func (a *Agent) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()
	defer close(a.done)
	defer cancel()

	if err := a.register(ctx); err != nil {
		return err
	}

	collectTicker := time.NewTicker(a.collectInterval)
	heartbeatTicker := time.NewTicker(a.heartbeatInterval)
	defer collectTicker.Stop()
	defer heartbeatTicker.Stop()

	slog.Info("探针已启动", "agent_id", a.ID(), "version", GetVersion())
	a.report(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-collectTicker.C:
			a.report(ctx)
		case <-heartbeatTicker.C:
			a.heartbeat(ctx)
		}
	}
}

// Stop 停止探针并等待主循环退出
func (a *Agent) Stop() {
	a.mu.RLock()
	cancel := a.cancel
	a.mu.RUnlock()
	if cancel == nil {
		return
	}
	cancel()
	<-a.done
}

// register 使用本地保存的 ID 注册，服务端删除探针后也会复用同一个 ID
func (a *Agent) register(ctx context.Context) error {
	agentID, err := id.Load(a.cfg.Agent.IDFile)
	if err != nil {
		slog.Warn("读取探针 ID 失败", "error", err)
	}

	info := protocol.AgentInfo{
		ID:      agentID,
		Name:    a.cfg.Agent.Name,
		IP:      a.cfg.Agent.IP,
		Version: GetVersion(),
	}
	if hostInfo, err := collector.HostInfo(ctx); err == nil {
		info.Hostname = hostInfo.Hostname
		info.OS = hostInfo.OS
		info.Arch = hostInfo.Arch
	}
	if a.cfg.Agent.Hostname != "" {
		info.Hostname = a.cfg.Agent.Hostname
	}
	if info.Hostname == "" {
		info.Hostname, _ = os.Hostname()
	}

	registeredID, err := a.api.RegisterWithRetry(ctx, info)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.agentID = registeredID
	a.mu.Unlock()

	if registeredID != agentID {
		if err := id.Save(a.cfg.Agent.IDFile, registeredID); err != nil {
			slog.Warn("保存探针 ID 失败", "error", err)
		}
	}
	slog.Info("探针注册成功", "agent_id", registeredID)
	return nil
}

func (a *Agent) report(ctx context.Context) {
	batch := a.collector.Collect(ctx)
	if batch == nil || len(batch.Metrics) == 0 {
		return
	}
	err := a.api.ReportMetrics(ctx, a.ID(), batch)
	a.handleError(ctx, "上报指标失败", err)
}

func (a *Agent) heartbeat(ctx context.Context) {
	err := a.api.Heartbeat(ctx, a.ID())
	a.handleError(ctx, "发送心跳失败", err)
}

func (a *Agent) handleError(ctx context.Context, msg string, err error) {
	if err == nil || ctx.Err() != nil {
		return
	}
	if errors.Is(err, client.ErrAgentNotFound) {
		slog.Warn("服务端不存在该探针，重新注册", "agent_id", a.ID())
		if err := a.register(ctx); err != nil && ctx.Err() == nil {
			slog.Error("重新注册失败", "error", err)
		}
		return
	}
	slog.Warn(msg, "agent_id", a.ID(), "error", err)
}
