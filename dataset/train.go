package dataset

import (
	"context"
	"math/rand/v2"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/mindkit/core"
	"github.com/rushteam/mindkit/pkg/logger"
)

// defaultChunkSize 是并行重采样时每个任务处理的行数。
const defaultChunkSize = 4096

// BufferSnapshotter 发布 / 恢复某个 epoch 的样本缓冲区，
// 用于多进程 worker 读取同一份负样本（由 store.SnapshotStore 实现）。
// Load 的 epoch <= 0 表示最近一次发布的缓冲区，返回值中的 epoch 是实际读取的轮次。
type BufferSnapshotter interface {
	Save(ctx context.Context, epoch int, buf *SampleBuffer) error
	Load(ctx context.Context, epoch int) (*SampleBuffer, int, error)
}

// TrainView 是训练样本视图：每条训练行为对应一个样本，
// 样本的候选为 [正样本, K 个负样本]，负样本由 Resample 每个 epoch 重新抽取。
//
// 并发约定（单写多读）：
//   - Fetch 是纯读取，可以在多个 goroutine 中并发调用
//   - Resample 在备用缓冲区中完成整轮抽样，然后在写锁内交换指针；
//     交换之前发出的 Fetch 读到的是上一轮的负样本，交换之后读到的是新一轮的
//   - 多个 Resample 调用互斥执行
//
// 训练循环应在每个 epoch 开始前（派发 Fetch 之前）调用一次 Resample，
// 否则读到的是全零（从未采样）或上一轮的缓冲区。见 loader.RunEpochs。
type TrainView struct {
	corpus *core.Corpus
	k      int

	seed      uint64
	workers   int
	chunkSize int
	logger    *logger.Logger
	snapshots BufferSnapshotter

	resampleMu sync.Mutex

	mu      sync.RWMutex
	current *SampleBuffer
	spare   *SampleBuffer
	epoch   int
}

// TrainViewOption 配置 TrainView。
type TrainViewOption func(*TrainView)

// WithSeed 设置随机种子，相同种子 + 相同 epoch 得到相同的负样本。
func WithSeed(seed uint64) TrainViewOption {
	return func(v *TrainView) { v.seed = seed }
}

// WithWorkers 设置并行重采样的 goroutine 数（<= 0 表示使用 GOMAXPROCS）。
func WithWorkers(n int) TrainViewOption {
	return func(v *TrainView) {
		if n > 0 {
			v.workers = n
		}
	}
}

// WithChunkSize 设置每个重采样任务处理的行数。
func WithChunkSize(n int) TrainViewOption {
	return func(v *TrainView) {
		if n > 0 {
			v.chunkSize = n
		}
	}
}

// WithLogger 设置日志。
func WithLogger(l *logger.Logger) TrainViewOption {
	return func(v *TrainView) {
		if l != nil {
			v.logger = l
		}
	}
}

// WithSnapshotter 在每次重采样完成后发布缓冲区快照。
func WithSnapshotter(s BufferSnapshotter) TrainViewOption {
	return func(v *TrainView) { v.snapshots = s }
}

// NewTrainView 创建训练视图。k 为每个正样本的负样本数，k < 0 返回 INVALID_CONFIG。
// 语料在构造时做一次完整校验；缓冲区在此一次性分配（零值）。
func NewTrainView(corpus *core.Corpus, k int, opts ...TrainViewOption) (*TrainView, error) {
	if corpus == nil {
		return nil, core.NewInvalidConfigError(core.ModuleDataset, "dataset: corpus is nil")
	}
	if k < 0 {
		return nil, core.NewInvalidConfigError(core.ModuleDataset, "dataset: negative_sample_num must be >= 0, got %d", k)
	}
	if err := corpus.Validate(); err != nil {
		return nil, err
	}

	rows := len(corpus.TrainBehaviors)
	v := &TrainView{
		corpus:    corpus,
		k:         k,
		workers:   runtime.GOMAXPROCS(0),
		chunkSize: defaultChunkSize,
		logger:    logger.Nop(),
		current:   NewSampleBuffer(rows, 1+k),
		spare:     NewSampleBuffer(rows, 1+k),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Len 返回训练样本数（训练行为数）。
func (v *TrainView) Len() int { return len(v.corpus.TrainBehaviors) }

// K 返回负样本数。
func (v *TrainView) K() int { return v.k }

// Corpus 返回底层语料。
func (v *TrainView) Corpus() *core.Corpus { return v.corpus }

// Epoch 返回已完成的重采样次数，0 表示从未采样。
func (v *TrainView) Epoch() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.epoch
}

// Row 返回第 idx 个样本当前的候选下标 [positive, negatives...]（拷贝）。
func (v *TrainView) Row(idx int) ([]int32, error) {
	if idx < 0 || idx >= v.Len() {
		return nil, core.NewIndexOutOfRangeError(core.ModuleDataset, idx, v.Len())
	}
	row := make([]int32, 1+v.k)
	v.mu.RLock()
	copy(row, v.current.Row(idx))
	v.mu.RUnlock()
	return row, nil
}

// Fetch 返回第 idx 个训练样本。所有字段的形状与 idx 无关。
func (v *TrainView) Fetch(idx int) (*TrainExample, error) {
	row, err := v.Row(idx)
	if err != nil {
		return nil, err
	}
	b := &v.corpus.TrainBehaviors[idx]
	return &TrainExample{
		UserBlock:  gatherUser(v.corpus, b.UserID, b.HistoryIndex, b.HistoryMask, b.UserKey),
		Candidates: gatherNews(v.corpus, row),
	}, nil
}

// Resample 为每条训练行为重新抽取 K 个负样本，覆盖整个缓冲区。
// K > 0 时任一行为的候选池为空都会返回 EMPTY_CANDIDATE_POOL（带行为下标），缓冲区保持不变。
func (v *TrainView) Resample(ctx context.Context) error {
	v.resampleMu.Lock()
	defer v.resampleMu.Unlock()

	behaviors := v.corpus.TrainBehaviors
	if v.k > 0 {
		for i := range behaviors {
			if len(behaviors[i].Negatives) == 0 {
				return core.NewEmptyCandidatePoolError(i)
			}
		}
	}

	epoch := v.Epoch() + 1
	start := time.Now()
	v.logger.Info("begin negative sampling", "samples", len(behaviors), "epoch", epoch, "k", v.k)

	// spare 只在交换时被读者可见，交换前的写入无需加锁
	next := v.spare
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(v.workers)
	for lo := 0; lo < len(behaviors); lo += v.chunkSize {
		hi := min(lo+v.chunkSize, len(behaviors))
		chunk := uint64(lo / v.chunkSize)
		eg.Go(func() error {
			sampler, err := NewSampler(v.k)
			if err != nil {
				return err
			}
			src := rand.NewPCG(v.seed, uint64(epoch)<<32|chunk)
			for i := lo; i < hi; i++ {
				if (i-lo)%1024 == 0 {
					if err := egCtx.Err(); err != nil {
						return err
					}
				}
				b := &behaviors[i]
				if err := sampler.FillRow(i, next.Row(i), b.Positive, b.Negatives, src); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	// 先发布再交换：发布失败时缓冲区与 epoch 都保持不变
	if v.snapshots != nil {
		if err := v.snapshots.Save(ctx, epoch, next); err != nil {
			return err
		}
	}

	v.swap(next, epoch)
	v.logger.Info("end negative sampling", "epoch", epoch, "elapsed", time.Since(start))
	return nil
}

// Restore 从快照中恢复某个 epoch 的缓冲区，用于多进程 worker 与主进程保持相同的负样本。
// epoch <= 0 表示最近一次发布的缓冲区；恢复后 Epoch() 为实际读取的轮次。
func (v *TrainView) Restore(ctx context.Context, epoch int) error {
	if v.snapshots == nil {
		return core.NewInvalidConfigError(core.ModuleDataset, "dataset: no snapshot store configured")
	}
	v.resampleMu.Lock()
	defer v.resampleMu.Unlock()

	buf, loaded, err := v.snapshots.Load(ctx, epoch)
	if err != nil {
		return err
	}
	if err := v.spare.CopyFrom(buf); err != nil {
		return err
	}
	v.swap(v.spare, loaded)
	v.logger.Info("restored negative samples", "epoch", loaded)
	return nil
}

func (v *TrainView) swap(next *SampleBuffer, epoch int) {
	v.mu.Lock()
	v.current, v.spare = next, v.current
	v.epoch = epoch
	v.mu.Unlock()
}

// Shapes 返回 Fetch 结果每个字段的形状，与下标无关。
func (v *TrainView) Shapes() []Field {
	return fieldShapes(v.corpus.Dims, "news_", 1+v.k)
}
