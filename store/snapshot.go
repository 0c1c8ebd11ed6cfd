package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rushteam/mindkit/core"
	"github.com/rushteam/mindkit/dataset"
)

// snapshotMagic 标识缓冲区快照的二进制格式：
//
//	magic(4) | rows uint32 | width uint32 | data int32 * rows * width （小端）
var snapshotMagic = [4]byte{'M', 'K', 'S', 'B'}

const snapshotHeaderSize = 12

// SnapshotStore 把每个 epoch 的样本缓冲区写入 Store，实现 dataset.BufferSnapshotter。
//
// key 布局：
//   - {prefix}:epoch:{n}  第 n 轮的缓冲区
//   - {prefix}:latest     最近一次发布的 epoch
type SnapshotStore struct {
	store  core.Store
	prefix string
	ttl    int
	cache  *lru.Cache[int, *dataset.SampleBuffer]
}

var _ dataset.BufferSnapshotter = (*SnapshotStore)(nil)

// SnapshotOption 配置 SnapshotStore。
type SnapshotOption func(*SnapshotStore)

// WithTTL 设置每个 epoch 快照的过期时间（秒），0 表示不过期。
func WithTTL(seconds int) SnapshotOption {
	return func(s *SnapshotStore) { s.ttl = seconds }
}

// WithCache 在进程内缓存最近 size 个已解码的缓冲区。
// 缓存的缓冲区被多次 Load 共享，调用方只能读取（TrainView.Restore 会拷贝）。
func WithCache(size int) SnapshotOption {
	return func(s *SnapshotStore) {
		if size <= 0 {
			return
		}
		cache, err := lru.New[int, *dataset.SampleBuffer](size)
		if err == nil {
			s.cache = cache
		}
	}
}

// NewSnapshotStore 创建快照存储。
func NewSnapshotStore(s core.Store, prefix string, opts ...SnapshotOption) *SnapshotStore {
	ss := &SnapshotStore{store: s, prefix: prefix}
	for _, opt := range opts {
		opt(ss)
	}
	return ss
}

func (s *SnapshotStore) epochKey(epoch int) string {
	return fmt.Sprintf("%s:epoch:%d", s.prefix, epoch)
}

func (s *SnapshotStore) latestKey() string {
	return s.prefix + ":latest"
}

// Save 发布第 epoch 轮的缓冲区，并更新 latest。
func (s *SnapshotStore) Save(ctx context.Context, epoch int, buf *dataset.SampleBuffer) error {
	kvs := map[string][]byte{
		s.epochKey(epoch): EncodeBuffer(buf),
		s.latestKey():     []byte(strconv.Itoa(epoch)),
	}
	if err := s.store.BatchSet(ctx, kvs, s.ttl); err != nil {
		return fmt.Errorf("save snapshot epoch %d to %s: %w", epoch, s.store.Name(), err)
	}
	if s.cache != nil {
		s.cache.Remove(epoch)
	}
	return nil
}

// Load 读取第 epoch 轮的缓冲区，并返回实际读取的 epoch；
// epoch <= 0 表示读取最近一次发布的缓冲区。
func (s *SnapshotStore) Load(ctx context.Context, epoch int) (*dataset.SampleBuffer, int, error) {
	if epoch <= 0 {
		latest, err := s.Latest(ctx)
		if err != nil {
			return nil, 0, err
		}
		epoch = latest
	}
	if s.cache != nil {
		if buf, ok := s.cache.Get(epoch); ok {
			return buf, epoch, nil
		}
	}
	data, err := s.store.Get(ctx, s.epochKey(epoch))
	if err != nil {
		return nil, 0, fmt.Errorf("load snapshot epoch %d from %s: %w", epoch, s.store.Name(), err)
	}
	buf, err := DecodeBuffer(data)
	if err != nil {
		return nil, 0, err
	}
	if s.cache != nil {
		s.cache.Add(epoch, buf)
	}
	return buf, epoch, nil
}

// Latest 返回最近一次发布的 epoch。
func (s *SnapshotStore) Latest(ctx context.Context) (int, error) {
	raw, err := s.store.Get(ctx, s.latestKey())
	if err != nil {
		return 0, fmt.Errorf("load latest snapshot epoch: %w", err)
	}
	epoch, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, core.NewInvalidInputError(core.ModuleStore, -1, "store: invalid latest epoch %q", raw)
	}
	return epoch, nil
}

// EncodeBuffer 把缓冲区编码为快照格式。
func EncodeBuffer(buf *dataset.SampleBuffer) []byte {
	data := buf.Data()
	out := make([]byte, 0, snapshotHeaderSize+4*len(data))
	out = append(out, snapshotMagic[:]...)
	out = binary.LittleEndian.AppendUint32(out, uint32(buf.Rows()))
	out = binary.LittleEndian.AppendUint32(out, uint32(buf.Width()))
	for _, v := range data {
		out = binary.LittleEndian.AppendUint32(out, uint32(v))
	}
	return out
}

// DecodeBuffer 解析快照格式。
func DecodeBuffer(raw []byte) (*dataset.SampleBuffer, error) {
	if len(raw) < snapshotHeaderSize || [4]byte(raw[:4]) != snapshotMagic {
		return nil, core.NewInvalidInputError(core.ModuleStore, -1, "store: not a sample buffer snapshot")
	}
	rows := uint64(binary.LittleEndian.Uint32(raw[4:8]))
	width := uint64(binary.LittleEndian.Uint32(raw[8:12]))
	body := raw[snapshotHeaderSize:]
	// 先用除法约束 rows，再相乘，避免头部数值过大时溢出
	n := uint64(len(body))
	if width == 0 || rows > n/4/width || 4*rows*width != n {
		return nil, core.NewInvalidInputError(core.ModuleStore, -1,
			"store: snapshot header %dx%d does not match body of %d bytes", rows, width, len(body))
	}
	data := make([]int32, len(body)/4)
	for i := range data {
		data[i] = int32(binary.LittleEndian.Uint32(body[4*i:]))
	}
	return dataset.NewSampleBufferFrom(data, int(rows), int(width))
}
