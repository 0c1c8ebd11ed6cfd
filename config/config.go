// Package config 加载 mindkit 的运行配置（YAML/JSON），并按类型名构建快照存储。
//
// 使用存储构建器时，需在入口处 import _ "github.com/rushteam/mindkit/config/builders"
// 以触发内置存储（memory、redis）的 init 注册。
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/mindkit/core"
)

// Config 是 mindkit 的配置结构（支持 YAML/JSON）。
type Config struct {
	Mode       string `yaml:"mode" json:"mode"`               // train / dev / test
	CorpusFile string `yaml:"corpus_file" json:"corpus_file"` // 语料快照（JSON）
	ConfigFile string `yaml:"config_file" json:"config_file"` // 可选的 JSON 覆盖文件
	Seed       int64  `yaml:"seed" json:"seed"`               // < 0 时使用当前时间

	NegativeSampleNum int `yaml:"negative_sample_num" json:"negative_sample_num"`
	MaxHistoryNum     int `yaml:"max_history_num" json:"max_history_num"`
	MaxTitleLength    int `yaml:"max_title_length" json:"max_title_length"`
	MaxAbstractLength int `yaml:"max_abstract_length" json:"max_abstract_length"`

	Epoch     int `yaml:"epoch" json:"epoch"`
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	Workers   int `yaml:"workers" json:"workers"`       // 负采样并发数，0 表示 GOMAXPROCS
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"` // 负采样分块大小，0 表示默认值

	TrainFilter string `yaml:"train_filter" json:"train_filter"` // CEL 表达式，空表示不过滤
	LogMode     string `yaml:"log_mode" json:"log_mode"`         // dev / prod

	Snapshot SnapshotConfig `yaml:"snapshot" json:"snapshot"`
}

// SnapshotConfig 控制每轮负采样结果的发布。
type SnapshotConfig struct {
	Enabled   bool        `yaml:"enabled" json:"enabled"`
	Prefix    string      `yaml:"prefix" json:"prefix"`
	TTL       int         `yaml:"ttl" json:"ttl"`               // 秒，0 表示不过期
	CacheSize int         `yaml:"cache_size" json:"cache_size"` // 进程内缓存的已解码 epoch 数，0 表示不缓存
	Store     StoreConfig `yaml:"store" json:"store"`
}

// StoreConfig 描述一个存储实例：Type 为已注册的构建器名称，Config 透传给构建器。
type StoreConfig struct {
	Type   string         `yaml:"type" json:"type"`
	Config map[string]any `yaml:"config" json:"config"`
}

// Default 返回默认配置。
func Default() *Config {
	return &Config{
		Mode:              "train",
		NegativeSampleNum: 4,
		MaxHistoryNum:     50,
		MaxTitleLength:    32,
		MaxAbstractLength: 128,
		Epoch:             100,
		BatchSize:         64,
		LogMode:           "prod",
		Snapshot: SnapshotConfig{
			Prefix:    "mind:train",
			CacheSize: 2,
			Store:     StoreConfig{Type: "memory"},
		},
	}
}

// LoadFromYAML 从 YAML 文件加载配置，未出现的字段保留默认值。
func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return cfg, cfg.applyOverlay()
}

// LoadFromJSON 从 JSON 文件加载配置，未出现的字段保留默认值。
func LoadFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return cfg, cfg.applyOverlay()
}

// Load 按扩展名选择 YAML 或 JSON。
func Load(path string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadFromYAML(path)
	case ".json":
		return LoadFromJSON(path)
	}
	return nil, core.NewInvalidConfigError(core.ModuleConfig, "config: unsupported file extension %q", filepath.Ext(path))
}

// applyOverlay 读取 config_file 指向的 JSON，文件中出现的 key 覆盖当前值。
func (c *Config) applyOverlay() error {
	if c.ConfigFile == "" {
		return nil
	}
	data, err := os.ReadFile(c.ConfigFile)
	if err != nil {
		return fmt.Errorf("read config_file: %w", err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config_file: %w", err)
	}
	return nil
}

// Validate 校验配置，不合法时返回 INVALID_CONFIG。
func (c *Config) Validate() error {
	switch c.Mode {
	case "train", "dev", "test":
	default:
		return core.NewInvalidConfigError(core.ModuleConfig, "config: mode must be chosen from train/dev/test, got %q", c.Mode)
	}
	switch c.LogMode {
	case "dev", "prod":
	default:
		return core.NewInvalidConfigError(core.ModuleConfig, "config: log_mode must be dev or prod, got %q", c.LogMode)
	}

	positive := []struct {
		name string
		val  int
	}{
		{"max_history_num", c.MaxHistoryNum},
		{"max_title_length", c.MaxTitleLength},
		{"max_abstract_length", c.MaxAbstractLength},
		{"epoch", c.Epoch},
		{"batch_size", c.BatchSize},
	}
	for _, p := range positive {
		if p.val <= 0 {
			return core.NewInvalidConfigError(core.ModuleConfig, "config: %s must be > 0, got %d", p.name, p.val)
		}
	}
	if c.NegativeSampleNum < 0 {
		return core.NewInvalidConfigError(core.ModuleConfig, "config: negative_sample_num must be >= 0, got %d", c.NegativeSampleNum)
	}
	if c.Workers < 0 || c.ChunkSize < 0 {
		return core.NewInvalidConfigError(core.ModuleConfig, "config: workers and chunk_size must be >= 0")
	}
	if c.Snapshot.Enabled {
		if c.Snapshot.Prefix == "" {
			return core.NewInvalidConfigError(core.ModuleConfig, "config: snapshot.prefix is empty")
		}
		if err := ValidateStoreConfig(c.Snapshot.Store); err != nil {
			return err
		}
	}
	return nil
}

// ResolveSeed 返回实际使用的随机种子；seed < 0 时基于当前时间生成。
func (c *Config) ResolveSeed() uint64 {
	if c.Seed < 0 {
		return uint64(time.Now().UnixNano())
	}
	return uint64(c.Seed)
}

// CheckCorpus 确认语料快照的维度与配置一致。
func (c *Config) CheckCorpus(corpus *core.Corpus) error {
	d := corpus.Dims
	if d.MaxHistoryNum != c.MaxHistoryNum || d.MaxTitleLength != c.MaxTitleLength || d.MaxAbstractLength != c.MaxAbstractLength {
		return core.NewInvalidConfigError(core.ModuleConfig,
			"config: corpus dims (history=%d title=%d abstract=%d) differ from config (history=%d title=%d abstract=%d)",
			d.MaxHistoryNum, d.MaxTitleLength, d.MaxAbstractLength, c.MaxHistoryNum, c.MaxTitleLength, c.MaxAbstractLength)
	}
	return nil
}
