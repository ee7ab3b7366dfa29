package alertstate

import (
	"fmt"
	"strings"
	"time"

	"github.com/dushixiang/pika-alert/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// New 根据配置创建状态存储，返回的存储已带超时和失败降级
func New(logger *zap.Logger, cfg config.StateStoreConfig, db *gorm.DB) (*GuardedStore, error) {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	var store Store
	switch strings.ToLower(cfg.Type) {
	case "", "memory":
		store = NewMemoryStore(ttl, time.Minute)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store = NewRedisStore(client, ttl)
	case "database":
		store = NewDatabaseStore(db, ttl)
	default:
		return nil, fmt.Errorf("不支持的告警状态存储类型: %s", cfg.Type)
	}

	logger.Info("告警状态存储", zap.String("type", cfg.Type), zap.Duration("ttl", ttl))
	return NewGuardedStore(logger, store, cfg.OpTimeout), nil
}
