package core

import "fmt"

// Dims 是语料中各类定长张量的维度。
type Dims struct {
	MaxHistoryNum     int `json:"max_history_num"`     // 用户历史长度 H
	MaxTitleLength    int `json:"max_title_length"`    // 标题截断长度 T
	MaxAbstractLength int `json:"max_abstract_length"` // 摘要截断长度 A
	CategoryNum       int `json:"category_num"`        // 类别数（category mask 长度为 CategoryNum+1）
}

// NewsTable 是按 news_index 索引的新闻特征表，所有数组按行优先平铺。
//
//	Category / SubCategory             : [news_num]
//	TitleText / TitleMask / TitleEntity : [news_num, max_title_length]
//	AbstractText / Mask / Entity       : [news_num, max_abstract_length]
type NewsTable struct {
	Category       []int32   `json:"category"`
	SubCategory    []int32   `json:"sub_category"`
	TitleText      []int32   `json:"title_text"`
	TitleMask      []float32 `json:"title_mask"`
	TitleEntity    []int32   `json:"title_entity"`
	AbstractText   []int32   `json:"abstract_text"`
	AbstractMask   []float32 `json:"abstract_mask"`
	AbstractEntity []int32   `json:"abstract_entity"`
}

// Len 返回新闻数 news_num。
func (t *NewsTable) Len() int { return len(t.Category) }

// UserHistoryTable 是按 user_key 索引的用户历史表。
//
//	Graph           : [user_num, max_history_num, max_history_num]
//	CategoryMask    : [user_num, category_num + 1]
//	CategoryIndices : [user_num, max_history_num]
type UserHistoryTable struct {
	Graph           []float32 `json:"graph"`
	CategoryMask    []float32 `json:"category_mask"`
	CategoryIndices []int32   `json:"category_indices"`
}

// TrainBehavior 是一条训练行为：一个正样本 + 该曝光中未点击的候选负样本池。
type TrainBehavior struct {
	UserID       int32     `json:"user_id"`
	HistoryIndex []int32   `json:"history_index"` // [max_history_num]，填充位由 HistoryMask 标记
	HistoryMask  []float32 `json:"history_mask"`  // [max_history_num]，1 表示真实历史
	Positive     int32     `json:"positive"`
	Negatives    []int32   `json:"negatives"` // 变长候选负样本池
	UserKey      int32     `json:"user_key"`
}

// DevTestBehavior 是一条 dev/test 行为，上游已展开为每条记录一个候选新闻。
type DevTestBehavior struct {
	UserID       int32     `json:"user_id"`
	HistoryIndex []int32   `json:"history_index"`
	HistoryMask  []float32 `json:"history_mask"`
	UserKey      int32     `json:"user_key"`
	Candidate    int32     `json:"candidate"`
	Label        int8      `json:"label"` // 1 点击 / 0 未点击 / -1 未知（test）
}

// Corpus 是预先构建好的只读语料，由调用方持有，生命周期长于所有视图。
// 视图只保存 *Corpus 引用，不做任何拷贝。
type Corpus struct {
	Dims    Dims             `json:"dims"`
	News    NewsTable        `json:"news"`
	Users   UserHistoryTable `json:"users"`
	UserNum int              `json:"user_num"`

	TrainBehaviors []TrainBehavior   `json:"train_behaviors"`
	DevBehaviors   []DevTestBehavior `json:"dev_behaviors"`
	TestBehaviors  []DevTestBehavior `json:"test_behaviors"`
}

// NewsNum 返回新闻数。
func (c *Corpus) NewsNum() int { return c.News.Len() }

// Validate 校验所有表的形状以及行为中引用的下标是否越界。
// 视图构造时调用，保证之后的 Fetch 只做纯粹的下标读取。
func (c *Corpus) Validate() error {
	d := c.Dims
	if d.MaxHistoryNum <= 0 || d.MaxTitleLength <= 0 || d.MaxAbstractLength <= 0 || d.CategoryNum < 0 {
		return NewInvalidInputError(ModuleCorpus, -1, "corpus: invalid dims %+v", d)
	}
	if c.UserNum < 0 {
		return NewInvalidInputError(ModuleCorpus, -1, "corpus: negative user_num %d", c.UserNum)
	}

	n := c.NewsNum()
	checks := []struct {
		name string
		got  int
		want int
	}{
		{"news.sub_category", len(c.News.SubCategory), n},
		{"news.title_text", len(c.News.TitleText), n * d.MaxTitleLength},
		{"news.title_mask", len(c.News.TitleMask), n * d.MaxTitleLength},
		{"news.title_entity", len(c.News.TitleEntity), n * d.MaxTitleLength},
		{"news.abstract_text", len(c.News.AbstractText), n * d.MaxAbstractLength},
		{"news.abstract_mask", len(c.News.AbstractMask), n * d.MaxAbstractLength},
		{"news.abstract_entity", len(c.News.AbstractEntity), n * d.MaxAbstractLength},
		{"users.graph", len(c.Users.Graph), c.UserNum * d.MaxHistoryNum * d.MaxHistoryNum},
		{"users.category_mask", len(c.Users.CategoryMask), c.UserNum * (d.CategoryNum + 1)},
		{"users.category_indices", len(c.Users.CategoryIndices), c.UserNum * d.MaxHistoryNum},
	}
	for _, chk := range checks {
		if chk.got != chk.want {
			return NewInvalidInputError(ModuleCorpus, -1, "corpus: %s has length %d, want %d", chk.name, chk.got, chk.want)
		}
	}

	for i := range c.TrainBehaviors {
		b := &c.TrainBehaviors[i]
		if err := c.checkHistory("train", i, b.HistoryIndex, b.HistoryMask, b.UserKey); err != nil {
			return err
		}
		if !c.validNews(b.Positive) {
			return NewInvalidInputError(ModuleCorpus, i, "corpus: train behavior %d positive %d out of range", i, b.Positive)
		}
		for _, neg := range b.Negatives {
			if !c.validNews(neg) {
				return NewInvalidInputError(ModuleCorpus, i, "corpus: train behavior %d negative %d out of range", i, neg)
			}
		}
	}
	for name, list := range map[string][]DevTestBehavior{"dev": c.DevBehaviors, "test": c.TestBehaviors} {
		for i := range list {
			b := &list[i]
			if err := c.checkHistory(name, i, b.HistoryIndex, b.HistoryMask, b.UserKey); err != nil {
				return err
			}
			if !c.validNews(b.Candidate) {
				return NewInvalidInputError(ModuleCorpus, i, "corpus: %s behavior %d candidate %d out of range", name, i, b.Candidate)
			}
		}
	}
	return nil
}

func (c *Corpus) validNews(idx int32) bool {
	return idx >= 0 && int(idx) < c.NewsNum()
}

func (c *Corpus) checkHistory(list string, i int, index []int32, mask []float32, userKey int32) error {
	h := c.Dims.MaxHistoryNum
	if len(index) != h || len(mask) != h {
		return NewInvalidInputError(ModuleCorpus, i, "corpus: %s behavior %d history length %d/%d, want %d", list, i, len(index), len(mask), h)
	}
	if userKey < 0 || int(userKey) >= c.UserNum {
		return NewInvalidInputError(ModuleCorpus, i, "corpus: %s behavior %d user_key %d out of range", list, i, userKey)
	}
	for j, idx := range index {
		if mask[j] != 0 && !c.validNews(idx) {
			return NewInvalidInputError(ModuleCorpus, i, "corpus: %s behavior %d history[%d]=%d out of range", list, i, j, idx)
		}
	}
	return nil
}

// String 便于日志输出语料概况。
func (c *Corpus) String() string {
	return fmt.Sprintf("corpus(news=%d users=%d train=%d dev=%d test=%d)",
		c.NewsNum(), c.UserNum, len(c.TrainBehaviors), len(c.DevBehaviors), len(c.TestBehaviors))
}
