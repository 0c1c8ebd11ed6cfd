package dataset

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/rushteam/mindkit/core"
)

// drawRetryFactor 控制拒绝采样的重试预算：每行最多尝试 drawRetryFactor*K 次抽取。
const drawRetryFactor = 16

// Sampler 为单条训练行为填充一行 [positive, negatives...]。
//
// 策略：
//   - 候选池大小 P <= K：循环复用，第 j 个负样本为 pool[j % P]（允许重复，保证恰好 K 个）
//   - P > K：在 [0, P) 上均匀不放回地抽取 K 个位置，按抽取顺序写入；
//     冲突时重抽，重试预算耗尽后剩余槽位从未使用的位置中一次性不放回抽取
//
// Sampler 不是并发安全的（内部复用 used 集合），每个 goroutine 使用自己的实例。
type Sampler struct {
	k    int
	used map[int]struct{}
	free []int
	pick []int

	src rand.Source
	rng *rand.Rand
}

// NewSampler 创建负采样器，k 为每个正样本对应的负样本数。
func NewSampler(k int) (*Sampler, error) {
	if k < 0 {
		return nil, core.NewInvalidConfigError(core.ModuleSampler, "sampler: negative_sample_num must be >= 0, got %d", k)
	}
	return &Sampler{
		k:    k,
		used: make(map[int]struct{}, k),
	}, nil
}

// K 返回负样本数。
func (s *Sampler) K() int { return s.k }

// FillRow 覆盖写入 row（长度 1+K）。index 仅用于错误信息。
func (s *Sampler) FillRow(index int, row []int32, positive int32, pool []int32, src rand.Source) error {
	row[0] = positive
	if s.k == 0 {
		return nil
	}
	p := len(pool)
	if p == 0 {
		return core.NewEmptyCandidatePoolError(index)
	}
	if p <= s.k {
		for j := 0; j < s.k; j++ {
			row[j+1] = pool[j%p]
		}
		return nil
	}

	if s.src != src {
		s.src, s.rng = src, rand.New(src)
	}
	rng := s.rng
	clear(s.used)
	j := 0
	for attempts := 0; j < s.k && attempts < drawRetryFactor*s.k; attempts++ {
		pos := rng.IntN(p)
		if _, dup := s.used[pos]; dup {
			continue
		}
		s.used[pos] = struct{}{}
		row[j+1] = pool[pos]
		j++
	}
	if j < s.k {
		s.fillRemaining(row[j+1:], pool, src)
	}
	return nil
}

// fillRemaining 从尚未使用的位置中不放回地抽取 len(dst) 个。
func (s *Sampler) fillRemaining(dst []int32, pool []int32, src rand.Source) {
	s.free = s.free[:0]
	for pos := range pool {
		if _, ok := s.used[pos]; !ok {
			s.free = append(s.free, pos)
		}
	}
	if cap(s.pick) < len(dst) {
		s.pick = make([]int, len(dst))
	}
	s.pick = s.pick[:len(dst)]
	sampleuv.WithoutReplacement(s.pick, len(s.free), src)
	for i, k := range s.pick {
		pos := s.free[k]
		s.used[pos] = struct{}{}
		dst[i] = pool[pos]
	}
}
