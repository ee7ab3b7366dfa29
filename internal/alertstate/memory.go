package alertstate

import (
	"context"
	"time"

	"github.com/go-orz/cache"
)

// MemoryStore 进程内状态存储，重启后状态丢失
type MemoryStore struct {
	ttl   time.Duration
	cache cache.Cache[string, State]
}

func NewMemoryStore(ttl, cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:   ttl,
		cache: cache.New[string, State](cleanupInterval),
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (State, bool, error) {
	state, ok := m.cache.Get(key)
	return state, ok, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, state State) error {
	m.cache.Set(key, state, m.ttl)
	return nil
}

// Clear 清空所有状态
func (m *MemoryStore) Clear(_ context.Context) error {
	m.cache.Reset()
	return nil
}
