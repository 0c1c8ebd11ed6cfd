package dataset

import (
	"github.com/rushteam/mindkit/core"
)

// NewsBlock 是按行收集的一组新闻特征，行数为 Rows，所有字段行优先平铺。
//
//	Category / SubCategory             : [Rows]
//	TitleText / TitleMask / TitleEntity : [Rows, max_title_length]
//	AbstractText / Mask / Entity       : [Rows, max_abstract_length]
type NewsBlock struct {
	Rows           int
	Category       []int32
	SubCategory    []int32
	TitleText      []int32
	TitleMask      []float32
	TitleEntity    []int32
	AbstractText   []int32
	AbstractMask   []float32
	AbstractEntity []int32
}

// NewsRecord 是单条新闻的特征（dev/test 的候选新闻，没有候选轴）。
//
//	Category / SubCategory : 标量
//	Title*                 : [max_title_length]
//	Abstract*              : [max_abstract_length]
type NewsRecord struct {
	Category       int32
	SubCategory    int32
	TitleText      []int32
	TitleMask      []float32
	TitleEntity    []int32
	AbstractText   []int32
	AbstractMask   []float32
	AbstractEntity []int32
}

// UserBlock 是一个样本中与用户相关的字段，每个样本只出现一次，不随候选数复制。
type UserBlock struct {
	UserID          int32
	History         NewsBlock // [max_history_num, ...]
	HistoryMask     []float32 // [max_history_num]
	HistoryGraph    []float32 // [max_history_num, max_history_num]
	CategoryMask    []float32 // [category_num + 1]
	CategoryIndices []int32   // [max_history_num]
}

// TrainExample 是一条训练样本：用户字段 + 1+K 个候选（第 0 个为正样本）。
type TrainExample struct {
	UserBlock
	Candidates NewsBlock // [1 + negative_sample_num, ...]
}

// EvalExample 是一条 dev/test 样本：用户字段 + 单个候选新闻。
type EvalExample struct {
	UserBlock
	Candidate NewsRecord
	Label     int8
}

func newNewsBlock(rows int, d core.Dims) NewsBlock {
	t, a := d.MaxTitleLength, d.MaxAbstractLength
	return NewsBlock{
		Rows:           rows,
		Category:       make([]int32, rows),
		SubCategory:    make([]int32, rows),
		TitleText:      make([]int32, rows*t),
		TitleMask:      make([]float32, rows*t),
		TitleEntity:    make([]int32, rows*t),
		AbstractText:   make([]int32, rows*a),
		AbstractMask:   make([]float32, rows*a),
		AbstractEntity: make([]int32, rows*a),
	}
}

// copyNewsRow 把新闻 idx 的所有特征复制到 dst 的第 row 行。
func copyNewsRow(dst *NewsBlock, row int, news *core.NewsTable, idx int32, d core.Dims) {
	t, a := d.MaxTitleLength, d.MaxAbstractLength
	n := int(idx)
	dst.Category[row] = news.Category[n]
	dst.SubCategory[row] = news.SubCategory[n]
	copy(dst.TitleText[row*t:(row+1)*t], news.TitleText[n*t:(n+1)*t])
	copy(dst.TitleMask[row*t:(row+1)*t], news.TitleMask[n*t:(n+1)*t])
	copy(dst.TitleEntity[row*t:(row+1)*t], news.TitleEntity[n*t:(n+1)*t])
	copy(dst.AbstractText[row*a:(row+1)*a], news.AbstractText[n*a:(n+1)*a])
	copy(dst.AbstractMask[row*a:(row+1)*a], news.AbstractMask[n*a:(n+1)*a])
	copy(dst.AbstractEntity[row*a:(row+1)*a], news.AbstractEntity[n*a:(n+1)*a])
}

// gatherNews 按 indices 逐行收集新闻特征。
func gatherNews(c *core.Corpus, indices []int32) NewsBlock {
	blk := newNewsBlock(len(indices), c.Dims)
	for row, idx := range indices {
		copyNewsRow(&blk, row, &c.News, idx, c.Dims)
	}
	return blk
}

// gatherHistory 收集用户历史；history_mask 为 0 的行保持全零。
func gatherHistory(c *core.Corpus, indices []int32, mask []float32) NewsBlock {
	blk := newNewsBlock(len(indices), c.Dims)
	for row, idx := range indices {
		if mask[row] == 0 {
			continue
		}
		copyNewsRow(&blk, row, &c.News, idx, c.Dims)
	}
	return blk
}

func gatherRecord(c *core.Corpus, idx int32) NewsRecord {
	blk := gatherNews(c, []int32{idx})
	return NewsRecord{
		Category:       blk.Category[0],
		SubCategory:    blk.SubCategory[0],
		TitleText:      blk.TitleText,
		TitleMask:      blk.TitleMask,
		TitleEntity:    blk.TitleEntity,
		AbstractText:   blk.AbstractText,
		AbstractMask:   blk.AbstractMask,
		AbstractEntity: blk.AbstractEntity,
	}
}

// gatherUser 收集用户相关字段，按 user_key 读取用户历史表。
func gatherUser(c *core.Corpus, userID int32, history []int32, mask []float32, userKey int32) UserBlock {
	d := c.Dims
	h, cm := d.MaxHistoryNum, d.CategoryNum+1
	u := int(userKey)
	return UserBlock{
		UserID:          userID,
		History:         gatherHistory(c, history, mask),
		HistoryMask:     append([]float32(nil), mask...),
		HistoryGraph:    append([]float32(nil), c.Users.Graph[u*h*h:(u+1)*h*h]...),
		CategoryMask:    append([]float32(nil), c.Users.CategoryMask[u*cm:(u+1)*cm]...),
		CategoryIndices: append([]int32(nil), c.Users.CategoryIndices[u*h:(u+1)*h]...),
	}
}
