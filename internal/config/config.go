package config

import "time"

// AppConfig 应用配置
type AppConfig struct {
	Server     ServerConfig     `mapstructure:"Server" yaml:"Server"`
	Log        LogConfig        `mapstructure:"Log" yaml:"Log"`
	Database   DatabaseConfig   `mapstructure:"Database" yaml:"Database"`
	StateStore StateStoreConfig `mapstructure:"StateStore" yaml:"StateStore"` // 告警状态存储
	Evaluator  EvaluatorConfig  `mapstructure:"Evaluator" yaml:"Evaluator"`   // 告警检查队列
	Agent      AgentConfig      `mapstructure:"Agent" yaml:"Agent"`
	Retention  RetentionConfig  `mapstructure:"Retention" yaml:"Retention"`
	Auth       AuthConfig       `mapstructure:"Auth" yaml:"Auth"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr string `mapstructure:"Addr" yaml:"Addr"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"Level" yaml:"Level"`
	Encoding   string `mapstructure:"Encoding" yaml:"Encoding"` // console / json
	File       string `mapstructure:"File" yaml:"File"`         // 为空时输出到标准输出
	MaxSize    int    `mapstructure:"MaxSize" yaml:"MaxSize"`   // MB
	MaxBackups int    `mapstructure:"MaxBackups" yaml:"MaxBackups"`
	MaxAge     int    `mapstructure:"MaxAge" yaml:"MaxAge"` // 天
	Compress   bool   `mapstructure:"Compress" yaml:"Compress"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type string `mapstructure:"Type" yaml:"Type"` // sqlite / postgres
	DSN  string `mapstructure:"DSN" yaml:"DSN"`
}

// StateStoreConfig 告警状态存储配置
type StateStoreConfig struct {
	Type      string        `mapstructure:"Type" yaml:"Type"`           // memory / redis / database
	TTL       time.Duration `mapstructure:"TTL" yaml:"TTL"`             // 状态过期时间，超时未更新的连续超限进度会丢失
	OpTimeout time.Duration `mapstructure:"OpTimeout" yaml:"OpTimeout"` // 单次读写超时，超时视为状态不存在
	Redis     RedisConfig   `mapstructure:"Redis" yaml:"Redis"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"Addr" yaml:"Addr"`
	Password string `mapstructure:"Password" yaml:"Password"`
	DB       int    `mapstructure:"DB" yaml:"DB"`
}

// EvaluatorConfig 告警检查队列配置
type EvaluatorConfig struct {
	Workers     int           `mapstructure:"Workers" yaml:"Workers"`
	QueueSize   int           `mapstructure:"QueueSize" yaml:"QueueSize"` // 每个 worker 的队列长度
	TaskTimeout time.Duration `mapstructure:"TaskTimeout" yaml:"TaskTimeout"`
}

// AgentConfig 探针管理配置
type AgentConfig struct {
	HeartbeatTimeout   time.Duration `mapstructure:"HeartbeatTimeout" yaml:"HeartbeatTimeout"`
	HeartbeatCheckSpec string        `mapstructure:"HeartbeatCheckSpec" yaml:"HeartbeatCheckSpec"` // cron 表达式
}

// RetentionConfig 数据保留配置
type RetentionConfig struct {
	AlertRecordDays int    `mapstructure:"AlertRecordDays" yaml:"AlertRecordDays"` // 0 表示不清理
	Spec            string `mapstructure:"Spec" yaml:"Spec"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWT     JWTConfig         `mapstructure:"JWT" yaml:"JWT"`
	Users   map[string]string `mapstructure:"Users" yaml:"Users"`     // 用户名(不区分大小写) -> bcrypt加密的密码
	APIKeys []string          `mapstructure:"APIKeys" yaml:"APIKeys"` // 探针上报使用的 API Key
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret       string `mapstructure:"Secret" yaml:"Secret"`
	ExpiresHours int    `mapstructure:"ExpiresHours" yaml:"ExpiresHours"`
}

// Default 返回默认配置
func Default() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{Addr: ":8080"},
		Log: LogConfig{
			Level:      "info",
			Encoding:   "console",
			MaxSize:    100,
			MaxBackups: 7,
			MaxAge:     30,
		},
		Database: DatabaseConfig{
			Type: "sqlite",
			DSN:  "data/pika.db",
		},
		StateStore: StateStoreConfig{
			Type:      "memory",
			TTL:       time.Hour,
			OpTimeout: 2 * time.Second,
			Redis:     RedisConfig{Addr: "127.0.0.1:6379"},
		},
		Evaluator: EvaluatorConfig{
			Workers:     8,
			QueueSize:   256,
			TaskTimeout: 10 * time.Second,
		},
		Agent: AgentConfig{
			HeartbeatTimeout:   120 * time.Second,
			HeartbeatCheckSpec: "@every 30s",
		},
		Retention: RetentionConfig{
			Spec: "@daily",
		},
		Auth: AuthConfig{
			JWT: JWTConfig{ExpiresHours: 168},
		},
	}
}
