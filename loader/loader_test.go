package loader

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/mindkit/core"
)

type intSource struct {
	n      int
	failAt int
}

func (s *intSource) Len() int { return s.n }

func (s *intSource) Fetch(idx int) (int, error) {
	if idx == s.failAt {
		return 0, core.NewIndexOutOfRangeError(core.ModuleDataset, idx, s.n)
	}
	return idx, nil
}

func TestNew_InvalidBatchSize(t *testing.T) {
	_, err := New[int](&intSource{n: 3, failAt: -1}, WithBatchSize(0))
	require.Error(t, err)
	assert.True(t, core.IsInvalidConfig(err))
}

func TestLoader_Run(t *testing.T) {
	tests := []struct {
		name     string
		n        int
		opts     []Option
		wantSize []int
	}{
		{name: "partial last batch", n: 10, opts: []Option{WithBatchSize(4)}, wantSize: []int{4, 4, 2}},
		{name: "drop last", n: 10, opts: []Option{WithBatchSize(4), WithDropLast(true)}, wantSize: []int{4, 4}},
		{name: "exact", n: 8, opts: []Option{WithBatchSize(4), WithWorkers(3)}, wantSize: []int{4, 4}},
		{name: "empty source", n: 0, opts: nil, wantSize: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New[int](&intSource{n: tt.n, failAt: -1}, tt.opts...)
			require.NoError(t, err)
			assert.Equal(t, len(tt.wantSize), l.NumBatches())

			var sizes []int
			var got []int
			require.NoError(t, l.Run(context.Background(), 1, func(batch []int) error {
				sizes = append(sizes, len(batch))
				got = append(got, batch...)
				return nil
			}))
			assert.Equal(t, tt.wantSize, sizes)
			for i, v := range got {
				assert.Equal(t, i, v, "unshuffled batches keep source order")
			}
		})
	}
}

func TestLoader_Shuffle(t *testing.T) {
	l, err := New[int](&intSource{n: 50, failAt: -1}, WithBatchSize(8), WithShuffle(true), WithSeed(11))
	require.NoError(t, err)

	collect := func(epoch int) []int {
		var got []int
		require.NoError(t, l.Run(context.Background(), epoch, func(batch []int) error {
			got = append(got, batch...)
			return nil
		}))
		return got
	}

	e1 := collect(1)
	assert.Equal(t, e1, collect(1), "same seed and epoch give the same order")
	assert.NotEqual(t, e1, collect(2))

	sorted := append([]int(nil), e1...)
	sort.Ints(sorted)
	for i, v := range sorted {
		assert.Equal(t, i, v)
	}
}

func TestLoader_FetchError(t *testing.T) {
	l, err := New[int](&intSource{n: 10, failAt: 6}, WithBatchSize(4))
	require.NoError(t, err)

	batches := 0
	err = l.Run(context.Background(), 1, func(batch []int) error {
		batches++
		return nil
	})
	require.Error(t, err)
	assert.True(t, core.IsIndexOutOfRange(err))
	assert.Equal(t, 1, batches, "the failing batch is never delivered")
}

func TestLoader_CallbackError(t *testing.T) {
	l, err := New[int](&intSource{n: 10, failAt: -1}, WithBatchSize(4))
	require.NoError(t, err)

	stop := errors.New("stop")
	err = l.Run(context.Background(), 1, func(batch []int) error { return stop })
	assert.ErrorIs(t, err, stop)
}

type recordingView struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (v *recordingView) Resample(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.events = append(v.events, "resample")
	return v.err
}

func (v *recordingView) Len() int { return 5 }

func (v *recordingView) Fetch(idx int) (int, error) {
	return idx, nil
}

func TestRunEpochs_ResamplesBeforeEachEpoch(t *testing.T) {
	view := &recordingView{}
	l, err := New[int](view, WithBatchSize(5))
	require.NoError(t, err)

	err = RunEpochs(context.Background(), view, l, 3, func(epoch int, batch []int) error {
		view.mu.Lock()
		defer view.mu.Unlock()
		view.events = append(view.events, "batch")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"resample", "batch", "resample", "batch", "resample", "batch"}, view.events)
}

func TestRunEpochs_ResampleError(t *testing.T) {
	view := &recordingView{err: core.NewEmptyCandidatePoolError(2)}
	l, err := New[int](view)
	require.NoError(t, err)

	called := false
	err = RunEpochs(context.Background(), view, l, 2, func(int, []int) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.True(t, core.IsEmptyCandidatePool(err))
	assert.False(t, called)
}
