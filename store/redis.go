package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rushteam/mindkit/core"
)

// RedisStore 是 Redis 实现的 Store。
// 多进程训练时主进程发布缓冲区快照，worker 进程从同一个 Redis 读取。
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore 连接 addr 上的第 db 号库，连接失败时返回错误。
func NewRedisStore(addr string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient 使用已有的 client（便于复用连接池）。
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Name 返回存储名称。
func (r *RedisStore) Name() string { return "redis" }

// Get 读取 key，不存在时返回 ErrStoreNotFound。
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrStoreNotFound
	}
	return val, err
}

// Set 写入 key，ttl 为可选的过期秒数。
func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl ...int) error {
	return r.client.Set(ctx, key, value, expiration(ttl)).Err()
}

// Delete 删除 key。
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// BatchGet 使用 MGET 批量读取，结果中只包含存在的 key。
func (r *RedisStore) BatchGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	if len(keys) == 0 {
		return make(map[string][]byte), nil
	}

	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	result := make(map[string][]byte, len(keys))
	for i, k := range keys {
		if s, ok := vals[i].(string); ok {
			result[k] = []byte(s)
		}
	}
	return result, nil
}

// BatchSet 使用 pipeline 批量写入。
func (r *RedisStore) BatchSet(ctx context.Context, kvs map[string][]byte, ttl ...int) error {
	pipe := r.client.Pipeline()
	exp := expiration(ttl)
	for k, v := range kvs {
		pipe.Set(ctx, k, v, exp)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Close 关闭底层 client。
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func expiration(ttl []int) time.Duration {
	if len(ttl) > 0 && ttl[0] > 0 {
		return time.Duration(ttl[0]) * time.Second
	}
	return 0
}

var _ core.Store = (*RedisStore)(nil)
