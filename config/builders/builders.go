// Package builders 在 init 中注册内置的 Store 构建器。
package builders

import (
	"github.com/rushteam/mindkit/config"
	"github.com/rushteam/mindkit/core"
	"github.com/rushteam/mindkit/pkg/conv"
	"github.com/rushteam/mindkit/store"
)

func init() {
	config.Register("memory", BuildMemoryStore)
	config.Register("redis", BuildRedisStore)
}

func BuildMemoryStore(map[string]any) (core.Store, error) {
	return store.NewMemoryStore(), nil
}

// BuildRedisStore 读取 addr（默认 localhost:6379）与 db（默认 0）。
func BuildRedisStore(cfg map[string]any) (core.Store, error) {
	addr := conv.ConfigGet(cfg, "addr", "localhost:6379")
	db := conv.ConfigGetInt64(cfg, "db", 0)
	return store.NewRedisStore(addr, int(db))
}
