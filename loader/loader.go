// Package loader 把样本视图组织成 batch：按 epoch 打乱顺序、并发取样、按顺序交付。
package loader

import (
	"context"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/mindkit/core"
)

// Source 是可按下标取样的视图（dataset.TrainView / dataset.EvalView）。
// Fetch 必须是只读的，允许并发调用。
type Source[E any] interface {
	Len() int
	Fetch(idx int) (E, error)
}

// Loader 按 batch 遍历 Source。
type Loader[E any] struct {
	source Source[E]
	options
}

// Option 配置 Loader。
type Option func(*options)

type options struct {
	batchSize int
	shuffle   bool
	dropLast  bool
	workers   int
	seed      uint64
}

// WithBatchSize 设置 batch 大小，默认 64。
func WithBatchSize(n int) Option {
	return func(o *options) { o.batchSize = n }
}

// WithShuffle 每个 epoch 打乱样本顺序（训练集使用，dev/test 保持原顺序）。
func WithShuffle(shuffle bool) Option {
	return func(o *options) { o.shuffle = shuffle }
}

// WithDropLast 丢弃最后一个不满 batch 的批次。
func WithDropLast(drop bool) Option {
	return func(o *options) { o.dropLast = drop }
}

// WithWorkers 设置并发取样的 goroutine 数，默认 batch_size / 8（至少 1）。
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithSeed 设置打乱顺序的随机种子。
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed = seed }
}

// New 创建 Loader，batch 大小必须为正。
func New[E any](source Source[E], opts ...Option) (*Loader[E], error) {
	o := options{batchSize: 64}
	for _, opt := range opts {
		opt(&o)
	}
	if o.batchSize <= 0 {
		return nil, core.NewInvalidConfigError(core.ModuleDataset, "loader: batch_size must be > 0, got %d", o.batchSize)
	}
	if o.workers <= 0 {
		o.workers = max(o.batchSize/8, 1)
	}
	return &Loader[E]{source: source, options: o}, nil
}

// NumBatches 返回一个 epoch 的 batch 数。
func (l *Loader[E]) NumBatches() int {
	n := l.source.Len()
	if l.dropLast {
		return n / l.batchSize
	}
	return (n + l.batchSize - 1) / l.batchSize
}

// Order 返回第 epoch 轮的样本下标顺序；相同种子与 epoch 得到相同顺序。
func (l *Loader[E]) Order(epoch int) []int {
	n := l.source.Len()
	if !l.shuffle {
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		return order
	}
	return rand.New(rand.NewPCG(l.seed, uint64(epoch))).Perm(n)
}

// Run 遍历一个 epoch，对每个 batch 调用 fn。
// batch 内的样本并发获取，batch 按顺序交付；任一 Fetch 或 fn 出错都会终止本轮。
func (l *Loader[E]) Run(ctx context.Context, epoch int, fn func(batch []E) error) error {
	order := l.Order(epoch)
	for b := 0; b < l.NumBatches(); b++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lo := b * l.batchSize
		hi := min(lo+l.batchSize, len(order))
		batch, err := l.fetch(ctx, order[lo:hi])
		if err != nil {
			return err
		}
		if err := fn(batch); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader[E]) fetch(ctx context.Context, indices []int) ([]E, error) {
	batch := make([]E, len(indices))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(l.workers)
	for i, idx := range indices {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			ex, err := l.source.Fetch(idx)
			if err != nil {
				return err
			}
			batch[i] = ex
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return batch, nil
}

// Resampler 是每个 epoch 前需要刷新的视图（dataset.TrainView）。
type Resampler interface {
	Resample(ctx context.Context) error
}

// RunEpochs 训练集的标准循环：每个 epoch 先调用 Resample（此时没有任何 Fetch 在执行），
// 再派发本轮的取样；fn 收到的 epoch 从 1 开始。
func RunEpochs[E any](ctx context.Context, view Resampler, l *Loader[E], epochs int, fn func(epoch int, batch []E) error) error {
	for epoch := 1; epoch <= epochs; epoch++ {
		if err := view.Resample(ctx); err != nil {
			return err
		}
		if err := l.Run(ctx, epoch, func(batch []E) error {
			return fn(epoch, batch)
		}); err != nil {
			return err
		}
	}
	return nil
}
