package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dushixiang/pika-alert/internal/alertstate"
	"github.com/dushixiang/pika-alert/internal/config"
	"github.com/dushixiang/pika-alert/internal/handler"
	"github.com/dushixiang/pika-alert/internal/queue"
	"github.com/dushixiang/pika-alert/internal/scheduler"
	"github.com/dushixiang/pika-alert/internal/service"
	"github.com/dushixiang/pika-alert/internal/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Server 组装各服务并对外提供 HTTP 接口
type Server struct {
	cfg    *config.AppConfig
	logger *zap.Logger
	echo   *echo.Echo

	wsManager  *websocket.Manager
	stateStore *alertstate.GuardedStore
	dispatcher *queue.Dispatcher
	scheduler  *scheduler.JobScheduler

	AgentService  *service.AgentService
	AlertService  *service.AlertService
	MetricService *service.MetricService
	AuthService   *service.AuthService
}

// New 创建服务，数据库需要已经完成迁移
func New(logger *zap.Logger, cfg *config.AppConfig, db *gorm.DB) (*Server, error) {
	stateStore, err := alertstate.New(logger, cfg.StateStore, db)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        cfg,
		logger:     logger,
		wsManager:  websocket.NewManager(logger),
		stateStore: stateStore,
	}

	s.AlertService = service.NewAlertService(logger, db, stateStore, s.wsManager)
	s.dispatcher = queue.NewDispatcher(logger, cfg.Evaluator, func(ctx context.Context, task queue.Task) error {
		return s.AlertService.CheckMetrics(ctx, task.AgentID, task.Snapshot, task.ObservedAt)
	})
	s.AgentService = service.NewAgentService(logger, db, s.wsManager)
	s.MetricService = service.NewMetricService(logger, db, s.dispatcher, s.wsManager)
	s.AuthService = service.NewAuthService(logger, cfg.Auth)
	s.scheduler = scheduler.NewJobScheduler(logger, cfg, s.AgentService, s.AlertService, stateStore)

	s.echo = s.setupEcho()
	return s, nil
}

func (s *Server) setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			s.logger.Debug("请求", fields...)
			return nil
		},
	}))

	agentHandler := handler.NewAgentHandler(s.logger, s.AgentService)
	metricHandler := handler.NewMetricHandler(s.logger, s.MetricService)
	alertHandler := handler.NewAlertHandler(s.logger, s.AlertService)
	authHandler := handler.NewAuthHandler(s.logger, s.AuthService)
	wsHandler := handler.NewWSHandler(s.logger, s.wsManager)

	apiKey := APIKeyAuth(s.AuthService)
	admin := AdminAuth(s.AuthService)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/api/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.POST("/api/login", authHandler.Login)

	// 探针接口
	e.POST("/api/agents/register", agentHandler.Register, apiKey)
	e.POST("/api/agents/:id/heartbeat", agentHandler.Heartbeat, apiKey)
	e.POST("/api/agents/:id/metrics", metricHandler.Store, apiKey)

	// 管理接口
	e.GET("/api/agents", agentHandler.List, admin)
	e.GET("/api/agents/:id", agentHandler.Get, admin)
	e.DELETE("/api/agents/:id", agentHandler.Delete, admin)
	e.GET("/api/agents/:id/metrics", metricHandler.History, admin)
	e.GET("/api/agents/:id/metrics/latest", metricHandler.Latest, admin)
	e.GET("/api/agents/:id/alert-configs", alertHandler.ListConfigs, admin)
	e.POST("/api/agents/:id/alert-configs", alertHandler.CreateConfig, admin)
	e.GET("/api/alert-configs/:id", alertHandler.GetConfig, admin)
	e.PUT("/api/alert-configs/:id", alertHandler.UpdateConfig, admin)
	e.DELETE("/api/alert-configs/:id", alertHandler.DeleteConfig, admin)
	e.GET("/api/alert-records", alertHandler.ListRecords, admin)
	e.DELETE("/api/alert-records", alertHandler.ClearRecords, admin)
	e.GET("/api/scheduler/tasks", func(c echo.Context) error {
		return c.JSON(http.StatusOK, s.scheduler.GetTaskStatus())
	}, admin)
	e.GET("/api/ws", wsHandler.Serve, admin)

	return e
}

// Handler 返回 HTTP 处理器
func (s *Server) Handler() http.Handler {
	return s.echo
}

// StartBackground 启动告警检查队列和定时任务
func (s *Server) StartBackground(ctx context.Context) error {
	if err := s.AgentService.InitStatus(ctx); err != nil {
		s.logger.Warn("初始化探针状态失败", zap.Error(err))
	}
	s.dispatcher.Start()
	return s.scheduler.Start(ctx)
}

// Run 启动服务并阻塞到 ctx 结束，随后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	if err := s.StartBackground(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("服务启动", zap.String("addr", s.cfg.Server.Addr))
		if err := s.echo.Start(s.cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("服务关闭失败", zap.Error(err))
	}
	return runErr
}

// Shutdown 依次关闭 HTTP、定时任务、告警检查队列和 websocket 连接
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.echo.Shutdown(ctx)
	s.scheduler.Stop()
	s.dispatcher.Stop()
	s.wsManager.Close()
	s.logger.Info("服务已关闭")
	return err
}
