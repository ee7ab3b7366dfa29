package agent

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dushixiang/pika-alert/pkg/agent/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig 日志配置
type LogConfig struct {
	Level      string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// LogConfigFrom 从探针配置中提取日志配置
func LogConfigFrom(cfg *config.Config) *LogConfig {
	return &LogConfig{
		Level:      cfg.Agent.LogLevel,
		File:       cfg.Agent.LogFile,
		MaxSize:    cfg.Agent.LogMaxSize,
		MaxBackups: cfg.Agent.LogMaxBackups,
		MaxAge:     cfg.Agent.LogMaxAge,
		Compress:   cfg.Agent.LogCompress,
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger 创建日志，配置了日志文件时使用 lumberjack 滚动，否则输出到标准输出
func NewLogger(cfg *LogConfig) *slog.Logger {
	var writer io.Writer = os.Stdout
	if cfg.File != "" {
		writer = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,    // MB
			MaxBackups: cfg.MaxBackups, // 保留的旧日志文件数
			MaxAge:     cfg.MaxAge,     // 天数
			Compress:   cfg.Compress,
		}
	}

	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format("2006-01-02 15:04:05.000"))
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(writer, opts))
}

// InitLogger 初始化默认日志
func InitLogger(cfg *LogConfig) {
	slog.SetDefault(NewLogger(cfg))
}
