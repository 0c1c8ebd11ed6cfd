package core

import "context"

// Store 是存储的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 领域层不依赖基础设施层
//
// 使用场景：
//   - 负采样缓冲区快照：多进程 worker 读取同一 epoch 的负样本
//
// 实现：
//   - store.MemoryStore 实现此接口
//   - store.RedisStore 实现此接口
type Store interface {
	// Name 返回存储后端名称（用于日志）
	Name() string

	// Get 读取单个 key 的值，不存在时返回 ErrStoreNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入单个 key-value，ttl 单位为秒
	Set(ctx context.Context, key string, value []byte, ttl ...int) error

	// Delete 删除单个 key
	Delete(ctx context.Context, key string) error

	// BatchGet 批量读取，不存在的 key 不出现在结果中
	BatchGet(ctx context.Context, keys []string) (map[string][]byte, error)

	// BatchSet 批量写入
	BatchSet(ctx context.Context, kvs map[string][]byte, ttl ...int) error

	// Close 关闭连接/释放资源
	Close() error
}

// ErrStoreNotFound 表示 key 不存在
var ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")

// IsStoreNotFound 检查错误是否为 key 不存在
func IsStoreNotFound(err error) bool {
	domainErr := GetDomainError(err)
	if domainErr != nil && domainErr.Module == ModuleStore {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}
