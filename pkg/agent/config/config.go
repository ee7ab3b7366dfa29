package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 探针配置
type Config struct {
	Path string `yaml:"-"` // 配置文件路径，安装服务时作为启动参数

	Server    ServerConfig    `yaml:"server"`
	Agent     AgentConfig     `yaml:"agent"`
	Collector CollectorConfig `yaml:"collector"`
}

// ServerConfig 服务端配置
type ServerConfig struct {
	Endpoint           string `yaml:"endpoint"` // 例如 http://127.0.0.1:8080
	APIKey             string `yaml:"api_key"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// AgentConfig 探针自身配置
type AgentConfig struct {
	Name     string `yaml:"name"`
	Hostname string `yaml:"hostname"` // 为空时使用系统主机名
	IP       string `yaml:"ip"`       // 为空时由服务端使用请求来源地址
	IDFile   string `yaml:"id_file"`  // 持久化探针 ID 的文件

	LogLevel      string `yaml:"log_level"`
	LogFile       string `yaml:"log_file"`
	LogMaxSize    int    `yaml:"log_max_size"`
	LogMaxBackups int    `yaml:"log_max_backups"`
	LogMaxAge     int    `yaml:"log_max_age"`
	LogCompress   bool   `yaml:"log_compress"`
}

// CollectorConfig 采集配置，单位秒
type CollectorConfig struct {
	Interval          int `yaml:"interval"`
	HeartbeatInterval int `yaml:"heartbeat_interval"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{Endpoint: "http://127.0.0.1:8080"},
		Agent: AgentConfig{
			IDFile:        defaultIDFile(),
			LogLevel:      "info",
			LogMaxSize:    10,
			LogMaxBackups: 3,
			LogMaxAge:     7,
		},
		Collector: CollectorConfig{
			Interval:          5,
			HeartbeatInterval: 30,
		},
	}
}

func defaultIDFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pika_agent_id"
	}
	return filepath.Join(home, ".pika", "agent.id")
}

// Load 加载配置文件，未填写的字段使用默认值
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	cfg.Path = absPath

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save 写入配置文件
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate 校验必填项
func (c *Config) Validate() error {
	if c.Server.Endpoint == "" {
		return fmt.Errorf("server.endpoint 不能为空")
	}
	if !strings.HasPrefix(c.Server.Endpoint, "http://") && !strings.HasPrefix(c.Server.Endpoint, "https://") {
		return fmt.Errorf("server.endpoint 必须以 http:// 或 https:// 开头")
	}
	if c.Server.APIKey == "" {
		return fmt.Errorf("server.api_key 不能为空")
	}
	return nil
}

// GetCollectorInterval 指标采集间隔
func (c *Config) GetCollectorInterval() time.Duration {
	if c.Collector.Interval <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Collector.Interval) * time.Second
}

// GetHeartbeatInterval 心跳间隔
func (c *Config) GetHeartbeatInterval() time.Duration {
	if c.Collector.HeartbeatInterval <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Collector.HeartbeatInterval) * time.Second
}
