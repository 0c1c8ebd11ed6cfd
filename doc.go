// Package mindkit 组装 MIND 新闻推荐的训练 / 评测样本，并在每个 epoch 前重新抽取负样本。
//
// 设计要点：
// - Corpus-first: 新闻表、用户表与行为列表由外部构建一次，所有视图按指针共享，不做拷贝
// - 单写多读: TrainView.Resample 是唯一的写操作，Fetch 可以被任意多个 goroutine 并发调用
// - 可复现: 相同 seed 与 epoch 得到相同的负样本，与并发度无关
package mindkit

import (
	"github.com/rushteam/mindkit/core"
	"github.com/rushteam/mindkit/dataset"
)

// 轻量 facade：便于用户直接 import "mindkit" 使用核心抽象。
type Corpus = core.Corpus
type TrainView = dataset.TrainView
type EvalView = dataset.EvalView
type TrainExample = dataset.TrainExample
type EvalExample = dataset.EvalExample
type Mode = dataset.Mode

const (
	ModeDev  = dataset.ModeDev
	ModeTest = dataset.ModeTest
)

var (
	NewTrainView = dataset.NewTrainView
	NewEvalView  = dataset.NewEvalView
)
