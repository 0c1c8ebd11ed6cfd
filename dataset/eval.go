package dataset

import (
	"github.com/rushteam/mindkit/core"
)

// Mode 选择 dev 或 test 行为列表。
type Mode string

const (
	ModeDev  Mode = "dev"
	ModeTest Mode = "test"
)

// ParseMode 解析模式字符串，只接受 dev / test。
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDev, ModeTest:
		return Mode(s), nil
	}
	return "", core.NewInvalidConfigError(core.ModuleDataset, "dataset: mode must be chosen from 'dev' or 'test', got %q", s)
}

// EvalView 是 dev/test 样本视图：每条记录一个候选新闻，直接按下标读取，没有缓冲区也没有采样。
// 所有方法都是只读的，可并发调用。
type EvalView struct {
	corpus    *core.Corpus
	mode      Mode
	behaviors []core.DevTestBehavior
}

// NewEvalView 创建 dev/test 视图，mode 不是 dev/test 时返回 INVALID_CONFIG。
func NewEvalView(corpus *core.Corpus, mode Mode) (*EvalView, error) {
	if corpus == nil {
		return nil, core.NewInvalidConfigError(core.ModuleDataset, "dataset: corpus is nil")
	}
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	if err := corpus.Validate(); err != nil {
		return nil, err
	}
	behaviors := corpus.DevBehaviors
	if mode == ModeTest {
		behaviors = corpus.TestBehaviors
	}
	return &EvalView{corpus: corpus, mode: mode, behaviors: behaviors}, nil
}

// Len 返回对应行为列表的长度。
func (v *EvalView) Len() int { return len(v.behaviors) }

// Mode 返回视图模式。
func (v *EvalView) Mode() Mode { return v.mode }

// Fetch 返回第 idx 个样本，候选新闻为单条记录（没有候选轴）。
func (v *EvalView) Fetch(idx int) (*EvalExample, error) {
	if idx < 0 || idx >= len(v.behaviors) {
		return nil, core.NewIndexOutOfRangeError(core.ModuleDataset, idx, len(v.behaviors))
	}
	b := &v.behaviors[idx]
	return &EvalExample{
		UserBlock: gatherUser(v.corpus, b.UserID, b.HistoryIndex, b.HistoryMask, b.UserKey),
		Candidate: gatherRecord(v.corpus, b.Candidate),
		Label:     b.Label,
	}, nil
}

// Shapes 返回 Fetch 结果每个字段的形状，与下标无关。
func (v *EvalView) Shapes() []Field {
	return fieldShapes(v.corpus.Dims, "candidate_news_", -1)
}
