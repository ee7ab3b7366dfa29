package alertstate

import (
	"context"
	"time"

	"github.com/dushixiang/pika-alert/internal/metrics"
	"go.uber.org/zap"
)

// GuardedStore 为每次读写设置超时，失败时按不存在处理，不影响告警检查继续进行
type GuardedStore struct {
	store   Store
	timeout time.Duration
	logger  *zap.Logger
}

func NewGuardedStore(logger *zap.Logger, store Store, timeout time.Duration) *GuardedStore {
	return &GuardedStore{store: store, timeout: timeout, logger: logger}
}

func (g *GuardedStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.timeout)
}

// Get 读取失败时返回零值状态
func (g *GuardedStore) Get(ctx context.Context, key string) (State, bool, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	state, ok, err := g.store.Get(ctx, key)
	if err != nil {
		metrics.StateStoreErrors.WithLabelValues("get").Inc()
		g.logger.Warn("读取告警状态失败，按初始状态处理", zap.String("key", key), zap.Error(err))
		return State{}, false, nil
	}
	return state, ok, nil
}

// Put 写入失败只记录日志
func (g *GuardedStore) Put(ctx context.Context, key string, state State) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	if err := g.store.Put(ctx, key, state); err != nil {
		metrics.StateStoreErrors.WithLabelValues("put").Inc()
		g.logger.Warn("保存告警状态失败", zap.String("key", key), zap.Error(err))
	}
	return nil
}

func (g *GuardedStore) Clear(ctx context.Context) error {
	if c, ok := g.store.(Clearer); ok {
		return c.Clear(ctx)
	}
	return nil
}

// DeleteExpired 底层存储支持时清理过期状态
func (g *GuardedStore) DeleteExpired(ctx context.Context) (int64, error) {
	if d, ok := g.store.(interface {
		DeleteExpired(ctx context.Context) (int64, error)
	}); ok {
		return d.DeleteExpired(ctx)
	}
	return 0, nil
}
