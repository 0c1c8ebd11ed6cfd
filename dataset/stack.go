package dataset

import (
	"slices"

	"github.com/rushteam/mindkit/core"
)

// Field 是样本中的一个定长张量。Int32 与 Float32 二者只有一个非空；
// Shape 为空表示标量（Int32/Float32 长度为 1）。
type Field struct {
	Name    string
	Shape   []int
	Int32   []int32
	Float32 []float32
}

// Len 返回元素个数。
func (f Field) Len() int {
	if f.Int32 != nil {
		return len(f.Int32)
	}
	return len(f.Float32)
}

// Example 是可按字段堆叠成 batch 的样本。
type Example interface {
	Fields() []Field
}

var (
	_ Example = (*TrainExample)(nil)
	_ Example = (*EvalExample)(nil)
)

// TrainFields / EvalFields 是样本字段的固定顺序，与模型输入一一对应。
var (
	TrainFields = []string{
		"user_ID", "user_category", "user_subCategory",
		"user_title_text", "user_title_mask", "user_title_entity",
		"user_abstract_text", "user_abstract_mask", "user_abstract_entity",
		"user_history_mask", "user_history_graph", "user_history_category_mask", "user_history_category_indices",
		"news_category", "news_subCategory",
		"news_title_text", "news_title_mask", "news_title_entity",
		"news_abstract_text", "news_abstract_mask", "news_abstract_entity",
	}
	EvalFields = []string{
		"user_ID", "user_category", "user_subCategory",
		"user_title_text", "user_title_mask", "user_title_entity",
		"user_abstract_text", "user_abstract_mask", "user_abstract_entity",
		"user_history_mask", "user_history_graph", "user_history_category_mask", "user_history_category_indices",
		"candidate_news_category", "candidate_news_subCategory",
		"candidate_news_title_text", "candidate_news_title_mask", "candidate_news_title_entity",
		"candidate_news_abstract_text", "candidate_news_abstract_mask", "candidate_news_abstract_entity",
	}
)

func blockFields(prefix string, b *NewsBlock) []Field {
	var t, a int
	if b.Rows > 0 {
		t, a = len(b.TitleText)/b.Rows, len(b.AbstractText)/b.Rows
	}
	r := b.Rows
	return []Field{
		{Name: prefix + "category", Shape: []int{r}, Int32: b.Category},
		{Name: prefix + "subCategory", Shape: []int{r}, Int32: b.SubCategory},
		{Name: prefix + "title_text", Shape: []int{r, t}, Int32: b.TitleText},
		{Name: prefix + "title_mask", Shape: []int{r, t}, Float32: b.TitleMask},
		{Name: prefix + "title_entity", Shape: []int{r, t}, Int32: b.TitleEntity},
		{Name: prefix + "abstract_text", Shape: []int{r, a}, Int32: b.AbstractText},
		{Name: prefix + "abstract_mask", Shape: []int{r, a}, Float32: b.AbstractMask},
		{Name: prefix + "abstract_entity", Shape: []int{r, a}, Int32: b.AbstractEntity},
	}
}

func (u *UserBlock) fields() []Field {
	h := len(u.HistoryMask)
	out := make([]Field, 0, len(TrainFields))
	out = append(out, Field{Name: "user_ID", Int32: []int32{u.UserID}})
	out = append(out, blockFields("user_", &u.History)...)
	out = append(out,
		Field{Name: "user_history_mask", Shape: []int{h}, Float32: u.HistoryMask},
		Field{Name: "user_history_graph", Shape: []int{h, h}, Float32: u.HistoryGraph},
		Field{Name: "user_history_category_mask", Shape: []int{len(u.CategoryMask)}, Float32: u.CategoryMask},
		Field{Name: "user_history_category_indices", Shape: []int{len(u.CategoryIndices)}, Int32: u.CategoryIndices},
	)
	return out
}

// Fields 按 TrainFields 的顺序返回所有字段。
func (e *TrainExample) Fields() []Field {
	return append(e.UserBlock.fields(), blockFields("news_", &e.Candidates)...)
}

// Fields 按 EvalFields 的顺序返回所有字段，候选新闻没有候选轴。
func (e *EvalExample) Fields() []Field {
	c := &e.Candidate
	t, a := len(c.TitleText), len(c.AbstractText)
	return append(e.UserBlock.fields(),
		Field{Name: "candidate_news_category", Int32: []int32{c.Category}},
		Field{Name: "candidate_news_subCategory", Int32: []int32{c.SubCategory}},
		Field{Name: "candidate_news_title_text", Shape: []int{t}, Int32: c.TitleText},
		Field{Name: "candidate_news_title_mask", Shape: []int{t}, Float32: c.TitleMask},
		Field{Name: "candidate_news_title_entity", Shape: []int{t}, Int32: c.TitleEntity},
		Field{Name: "candidate_news_abstract_text", Shape: []int{a}, Int32: c.AbstractText},
		Field{Name: "candidate_news_abstract_mask", Shape: []int{a}, Float32: c.AbstractMask},
		Field{Name: "candidate_news_abstract_entity", Shape: []int{a}, Int32: c.AbstractEntity},
	)
}

// Batch 是按字段堆叠后的一批样本，每个字段的 Shape 以 batch 维开头。
type Batch struct {
	Size   int
	Fields []Field
}

// Field 按名称查找字段。
func (b *Batch) Field(name string) (Field, bool) {
	for _, f := range b.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Stack 把形状一致的样本沿新的 batch 维拼接。
// 任一样本的字段名或形状与第一个样本不一致都会返回错误。
func Stack[E Example](examples []E) (*Batch, error) {
	if len(examples) == 0 {
		return &Batch{}, nil
	}
	first := examples[0].Fields()
	out := make([]Field, len(first))
	for i, f := range first {
		out[i] = Field{Name: f.Name, Shape: append([]int{len(examples)}, f.Shape...)}
		if f.Int32 != nil {
			out[i].Int32 = make([]int32, 0, f.Len()*len(examples))
		} else {
			out[i].Float32 = make([]float32, 0, f.Len()*len(examples))
		}
	}
	for n, e := range examples {
		fields := first
		if n > 0 {
			fields = e.Fields()
		}
		if len(fields) != len(out) {
			return nil, core.NewInvalidInputError(core.ModuleDataset, n, "dataset: example %d has %d fields, want %d", n, len(fields), len(out))
		}
		for i, f := range fields {
			if f.Name != first[i].Name || !slices.Equal(f.Shape, first[i].Shape) {
				return nil, core.NewInvalidInputError(core.ModuleDataset, n,
					"dataset: example %d field %s shape %v, want %s %v", n, f.Name, f.Shape, first[i].Name, first[i].Shape)
			}
			if out[i].Int32 != nil {
				out[i].Int32 = append(out[i].Int32, f.Int32...)
			} else {
				out[i].Float32 = append(out[i].Float32, f.Float32...)
			}
		}
	}
	return &Batch{Size: len(examples), Fields: out}, nil
}

// fieldShapes 返回字段名与形状（不含数据）；rows < 0 表示候选新闻没有候选轴。
func fieldShapes(d core.Dims, prefix string, rows int) []Field {
	h, t, a := d.MaxHistoryNum, d.MaxTitleLength, d.MaxAbstractLength
	news := func(p string, lead []int) []Field {
		with := func(dims ...int) []int { return append(slices.Clone(lead), dims...) }
		return []Field{
			{Name: p + "category", Shape: with()},
			{Name: p + "subCategory", Shape: with()},
			{Name: p + "title_text", Shape: with(t)},
			{Name: p + "title_mask", Shape: with(t)},
			{Name: p + "title_entity", Shape: with(t)},
			{Name: p + "abstract_text", Shape: with(a)},
			{Name: p + "abstract_mask", Shape: with(a)},
			{Name: p + "abstract_entity", Shape: with(a)},
		}
	}
	out := []Field{{Name: "user_ID"}}
	out = append(out, news("user_", []int{h})...)
	out = append(out,
		Field{Name: "user_history_mask", Shape: []int{h}},
		Field{Name: "user_history_graph", Shape: []int{h, h}},
		Field{Name: "user_history_category_mask", Shape: []int{d.CategoryNum + 1}},
		Field{Name: "user_history_category_indices", Shape: []int{h}},
	)
	if rows < 0 {
		return append(out, news(prefix, nil)...)
	}
	return append(out, news(prefix, []int{rows})...)
}
