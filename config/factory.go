package config

import (
	"fmt"

	"github.com/rushteam/mindkit/core"
)

// StoreBuilder 根据配置构建 Store。
type StoreBuilder func(cfg map[string]any) (core.Store, error)

// StoreFactory 用于根据配置构建 Store 实例。
type StoreFactory struct {
	builders map[string]StoreBuilder
}

func NewStoreFactory() *StoreFactory {
	return &StoreFactory{
		builders: make(map[string]StoreBuilder),
	}
}

// Register 注册 Store 构建器。
func (f *StoreFactory) Register(storeType string, builder StoreBuilder) {
	f.builders[storeType] = builder
}

// Build 根据类型和配置构建 Store。
func (f *StoreFactory) Build(storeType string, cfg map[string]any) (core.Store, error) {
	builder, ok := f.builders[storeType]
	if !ok {
		return nil, fmt.Errorf("unknown store type: %s", storeType)
	}
	return builder(cfg)
}

// BuildStore 使用注册表构建 StoreConfig 描述的存储。
func BuildStore(sc StoreConfig) (core.Store, error) {
	if err := ValidateStoreConfig(sc); err != nil {
		return nil, err
	}
	s, err := DefaultFactory().Build(sc.Type, sc.Config)
	if err != nil {
		return nil, fmt.Errorf("build store %s: %w", sc.Type, err)
	}
	return s, nil
}
