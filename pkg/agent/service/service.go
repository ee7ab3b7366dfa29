package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dushixiang/pika-alert/pkg/agent"
	"github.com/dushixiang/pika-alert/pkg/agent/config"
	"github.com/kardianos/service"
)

// program 实现 service.Interface
type program struct {
	cfg    *config.Config
	agent  *Agent
	cancel context.CancelFunc
}

// startAgent 在后台启动探针
func startAgent(ctx context.Context, cfg *config.Config) *Agent {
	a := New(cfg)
	go func() {
		if err := a.Start(ctx); err != nil {
			slog.Warn("探针运行出错", "error", err)
		}
	}()
	return a
}

// Start 启动服务
func (p *program) Start(s service.Service) error {
	agent.InitLogger(agent.LogConfigFrom(p.cfg))
	slog.Info("Pika Agent 服务启动中...")

	var ctx context.Context
	ctx, p.cancel = context.WithCancel(context.Background())
	p.agent = startAgent(ctx, p.cfg)
	return nil
}

// Stop 停止服务
func (p *program) Stop(s service.Service) error {
	slog.Info("Pika Agent 服务停止中...")
	if p.cancel != nil {
		p.cancel()
	}
	if p.agent != nil {
		p.agent.Stop()
	}
	slog.Info("Pika Agent 服务已停止")
	return nil
}

// ServiceManager 系统服务管理
type ServiceManager struct {
	cfg     *config.Config
	service service.Service
}

// serviceConfig systemd / launchd / Windows 服务配置，崩溃后自动重启
func serviceConfig(cfg *config.Config, execPath string) *service.Config {
	return &service.Config{
		Name:        "pika-agent",
		DisplayName: "Pika Agent",
		Description: "Pika 监控探针，采集系统指标并上报到服务端",
		Arguments:   []string{"run", "--config", cfg.Path},
		Executable:  execPath,
		Option: service.KeyValue{
			"Restart":            "always",
			"RestartSec":         "10",
			"StartLimitInterval": "0",
			"KillMode":           "process",

			"OnFailure":    "restart",
			"ResetPeriod":  86400, // 秒
			"RestartDelay": 10000, // 毫秒

			"KeepAlive": true,
			"RunAtLoad": true,
		},
	}
}

// NewServiceManager 创建服务管理器
func NewServiceManager(cfg *config.Config) (*ServiceManager, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("获取可执行文件路径失败: %w", err)
	}

	s, err := service.New(&program{cfg: cfg}, serviceConfig(cfg, execPath))
	if err != nil {
		return nil, fmt.Errorf("创建服务失败: %w", err)
	}
	return &ServiceManager{cfg: cfg, service: s}, nil
}

func (m *ServiceManager) Install() error {
	return m.service.Install()
}

// Uninstall 先停止再卸载
func (m *ServiceManager) Uninstall() error {
	_ = m.service.Stop()
	return m.service.Uninstall()
}

func (m *ServiceManager) Start() error {
	return m.service.Start()
}

func (m *ServiceManager) Stop() error {
	return m.service.Stop()
}

func (m *ServiceManager) Restart() error {
	return m.service.Restart()
}

// Status 服务状态描述
func (m *ServiceManager) Status() (string, error) {
	status, err := m.service.Status()
	if err != nil {
		return "", err
	}
	return statusText(status), nil
}

func statusText(status service.Status) string {
	switch status {
	case service.StatusRunning:
		return "运行中 (Running)"
	case service.StatusStopped:
		return "已停止 (Stopped)"
	case service.StatusUnknown:
		return "未知 (Unknown)"
	default:
		return fmt.Sprintf("状态: %d", status)
	}
}

// Run 运行服务，交互模式下前台运行直到收到中断信号
func (m *ServiceManager) Run() error {
	if !service.Interactive() {
		return m.service.Run()
	}

	agent.InitLogger(agent.LogConfigFrom(m.cfg))
	slog.Info("配置加载成功",
		"server_endpoint", m.cfg.Server.Endpoint,
		"collector_interval", m.cfg.GetCollectorInterval(),
		"heartbeat_interval", m.cfg.GetHeartbeatInterval())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := startAgent(ctx, m.cfg)

	<-ctx.Done()
	slog.Info("收到中断信号，正在关闭...")
	a.Stop()
	slog.Info("探针已停止")
	return nil
}

// UninstallAgent 停止并卸载服务，同时删除配置文件和探针 ID 文件
func UninstallAgent(cfg *config.Config) error {
	mgr, err := NewServiceManager(cfg)
	if err != nil {
		return fmt.Errorf("创建服务管理器失败: %w", err)
	}

	if err := mgr.Uninstall(); err != nil {
		return fmt.Errorf("卸载服务失败: %w", err)
	}

	if err := os.Remove(cfg.Path); err != nil {
		slog.Warn("删除配置文件失败", "error", err)
	}
	if err := os.Remove(cfg.Agent.IDFile); err != nil {
		slog.Warn("删除探针 ID 文件失败", "error", err)
	}
	return nil
}
