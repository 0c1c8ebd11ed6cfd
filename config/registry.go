package config

import (
	"sort"
	"sync"

	"github.com/rushteam/mindkit/core"
)

var (
	defaultBuilders   = make(map[string]StoreBuilder)
	defaultBuildersMu sync.RWMutex
)

// Register 注册一种 Store 的构建逻辑，供 DefaultFactory 与配置驱动使用。
// 建议在 init 中调用，例如：func init() { config.Register("memory", BuildMemoryStore) }
func Register(typeName string, builder StoreBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	defaultBuildersMu.Lock()
	defer defaultBuildersMu.Unlock()
	defaultBuilders[typeName] = builder
}

// SupportedTypes 返回当前已注册的 Store 类型列表（排序），用于错误提示与校验。
func SupportedTypes() []string {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	types := make([]string, 0, len(defaultBuilders))
	for t := range defaultBuilders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// DefaultFactory 返回基于当前注册表构建的 StoreFactory。
func DefaultFactory() *StoreFactory {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	f := NewStoreFactory()
	for typeName, builder := range defaultBuilders {
		f.Register(typeName, builder)
	}
	return f
}

// ValidateStoreConfig 校验存储类型已注册；未支持时返回包含已支持列表的错误。
func ValidateStoreConfig(sc StoreConfig) error {
	defaultBuildersMu.RLock()
	_, ok := defaultBuilders[sc.Type]
	defaultBuildersMu.RUnlock()
	if !ok {
		return core.NewInvalidConfigError(core.ModuleConfig, "config: unsupported store type %q (supported: %v)", sc.Type, SupportedTypes())
	}
	return nil
}
