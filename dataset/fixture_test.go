package dataset

import (
	"github.com/rushteam/mindkit/core"
)

var testDims = core.Dims{MaxHistoryNum: 3, MaxTitleLength: 4, MaxAbstractLength: 5, CategoryNum: 2}

// newTestCorpus 构造一个小语料：新闻 n 的所有特征都可由 n 推出，便于断言 gather 结果。
func newTestCorpus(newsNum, userNum int) *core.Corpus {
	d := testDims
	t, a, h, cm := d.MaxTitleLength, d.MaxAbstractLength, d.MaxHistoryNum, d.CategoryNum+1
	c := &core.Corpus{Dims: d, UserNum: userNum}
	news := &c.News
	for n := 0; n < newsNum; n++ {
		news.Category = append(news.Category, int32(n%cm))
		news.SubCategory = append(news.SubCategory, int32(n))
		for j := 0; j < t; j++ {
			news.TitleText = append(news.TitleText, int32(n*100+j))
			news.TitleMask = append(news.TitleMask, 1)
			news.TitleEntity = append(news.TitleEntity, int32(n*1000+j))
		}
		for j := 0; j < a; j++ {
			news.AbstractText = append(news.AbstractText, int32(n*100+50+j))
			news.AbstractMask = append(news.AbstractMask, 1)
			news.AbstractEntity = append(news.AbstractEntity, int32(n*1000+50+j))
		}
	}
	for u := 0; u < userNum; u++ {
		for j := 0; j < h*h; j++ {
			c.Users.Graph = append(c.Users.Graph, float32(u)+float32(j)/100)
		}
		for j := 0; j < cm; j++ {
			c.Users.CategoryMask = append(c.Users.CategoryMask, float32(u%2))
		}
		for j := 0; j < h; j++ {
			c.Users.CategoryIndices = append(c.Users.CategoryIndices, int32(j%cm))
		}
	}
	return c
}

func trainBehavior(userKey, positive int32, pool ...int32) core.TrainBehavior {
	return core.TrainBehavior{
		UserID:       userKey + 1,
		HistoryIndex: []int32{1, 2, 0},
		HistoryMask:  []float32{1, 1, 0},
		Positive:     positive,
		Negatives:    pool,
		UserKey:      userKey,
	}
}

func evalBehavior(userKey, candidate int32, label int8) core.DevTestBehavior {
	return core.DevTestBehavior{
		UserID:       userKey + 1,
		HistoryIndex: []int32{3, 0, 0},
		HistoryMask:  []float32{1, 0, 0},
		UserKey:      userKey,
		Candidate:    candidate,
		Label:        label,
	}
}

func seq(lo, hi int32) []int32 {
	out := make([]int32, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, i)
	}
	return out
}

// maxSource 总是返回 MaxUint64，IntN(n) 恒为 n-1，用于制造连续冲突。
type maxSource struct{}

func (maxSource) Uint64() uint64 { return ^uint64(0) }
