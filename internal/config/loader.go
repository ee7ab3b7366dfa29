package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load 从 yaml 文件和 PIKA_ 前缀的环境变量加载配置，文件不存在时使用默认值
func Load(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("PIKA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	applyDefaults(v, Default())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	return cfg, nil
}

// Marshal 将配置输出为 yaml
func Marshal(cfg *AppConfig) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// applyDefaults 注册默认值，保证环境变量在没有配置文件时也能覆盖
func applyDefaults(v *viper.Viper, d *AppConfig) {
	v.SetDefault("Server.Addr", d.Server.Addr)

	v.SetDefault("Log.Level", d.Log.Level)
	v.SetDefault("Log.Encoding", d.Log.Encoding)
	v.SetDefault("Log.File", d.Log.File)
	v.SetDefault("Log.MaxSize", d.Log.MaxSize)
	v.SetDefault("Log.MaxBackups", d.Log.MaxBackups)
	v.SetDefault("Log.MaxAge", d.Log.MaxAge)
	v.SetDefault("Log.Compress", d.Log.Compress)

	v.SetDefault("Database.Type", d.Database.Type)
	v.SetDefault("Database.DSN", d.Database.DSN)

	v.SetDefault("StateStore.Type", d.StateStore.Type)
	v.SetDefault("StateStore.TTL", d.StateStore.TTL)
	v.SetDefault("StateStore.OpTimeout", d.StateStore.OpTimeout)
	v.SetDefault("StateStore.Redis.Addr", d.StateStore.Redis.Addr)
	v.SetDefault("StateStore.Redis.Password", d.StateStore.Redis.Password)
	v.SetDefault("StateStore.Redis.DB", d.StateStore.Redis.DB)

	v.SetDefault("Evaluator.Workers", d.Evaluator.Workers)
	v.SetDefault("Evaluator.QueueSize", d.Evaluator.QueueSize)
	v.SetDefault("Evaluator.TaskTimeout", d.Evaluator.TaskTimeout)

	v.SetDefault("Agent.HeartbeatTimeout", d.Agent.HeartbeatTimeout)
	v.SetDefault("Agent.HeartbeatCheckSpec", d.Agent.HeartbeatCheckSpec)

	v.SetDefault("Retention.AlertRecordDays", d.Retention.AlertRecordDays)
	v.SetDefault("Retention.Spec", d.Retention.Spec)

	v.SetDefault("Auth.JWT.Secret", d.Auth.JWT.Secret)
	v.SetDefault("Auth.JWT.ExpiresHours", d.Auth.JWT.ExpiresHours)
}
