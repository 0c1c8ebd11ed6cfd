package store

import (
	"context"
	"sync"
	"time"

	"github.com/rushteam/mindkit/core"
)

// MemoryStore 是内存实现的 Store，用于单进程训练与测试。
// 支持 TTL（过期时间），但进程重启后数据丢失。
type MemoryStore struct {
	mu    sync.RWMutex
	data  map[string]*entry
	clean *time.Ticker
	done  chan struct{}
	once  sync.Once
}

type entry struct {
	value []byte
	ttl   *time.Time
}

func (e *entry) expired(now time.Time) bool {
	return e.ttl != nil && now.After(*e.ttl)
}

// NewMemoryStore 创建内存存储，并启动后台过期清理。
func NewMemoryStore() *MemoryStore {
	ms := &MemoryStore{
		data:  make(map[string]*entry),
		clean: time.NewTicker(10 * time.Second),
		done:  make(chan struct{}),
	}
	go ms.cleanup()
	return ms
}

// Name 返回存储名称。
func (m *MemoryStore) Name() string { return "memory" }

// Get 读取 key，不存在或已过期时返回 ErrNotFound。
func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.data[key]
	if !ok || e.expired(time.Now()) {
		return nil, ErrNotFound
	}
	return e.value, nil
}

// Set 写入 key，ttl 为可选的过期秒数。
func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl ...int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = &entry{value: value, ttl: expireAt(ttl)}
	return nil
}

// Delete 删除 key。
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

// BatchGet 批量读取，结果中只包含存在且未过期的 key。
func (m *MemoryStore) BatchGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string][]byte, len(keys))
	now := time.Now()
	for _, k := range keys {
		e, ok := m.data[k]
		if !ok || e.expired(now) {
			continue
		}
		result[k] = e.value
	}
	return result, nil
}

// BatchSet 批量写入，所有 key 共用同一个 ttl。
func (m *MemoryStore) BatchSet(ctx context.Context, kvs map[string][]byte, ttl ...int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	expire := expireAt(ttl)
	for k, v := range kvs {
		m.data[k] = &entry{value: v, ttl: expire}
	}
	return nil
}

// Close 停止后台清理，可重复调用。
func (m *MemoryStore) Close() error {
	m.once.Do(func() {
		m.clean.Stop()
		close(m.done)
	})
	return nil
}

func (m *MemoryStore) cleanup() {
	for {
		select {
		case <-m.clean.C:
			m.mu.Lock()
			now := time.Now()
			for k, e := range m.data {
				if e.expired(now) {
					delete(m.data, k)
				}
			}
			m.mu.Unlock()
		case <-m.done:
			return
		}
	}
}

func expireAt(ttl []int) *time.Time {
	if len(ttl) == 0 || ttl[0] <= 0 {
		return nil
	}
	t := time.Now().Add(time.Duration(ttl[0]) * time.Second)
	return &t
}

var _ core.Store = (*MemoryStore)(nil)
