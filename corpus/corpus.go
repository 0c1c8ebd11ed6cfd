// Package corpus 读取外部构建好的语料快照，并提供统计与训练行为过滤。
package corpus

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/viterin/vek/vek32"

	"github.com/rushteam/mindkit/core"
	"github.com/rushteam/mindkit/pkg/dsl"
)

// Stats 是语料的概要统计。
type Stats struct {
	UserNum             int     `json:"user_num"`
	NewsNum             int     `json:"news_num"`
	TrainNum            int     `json:"train_num"`
	DevNum              int     `json:"dev_num"`
	TestNum             int     `json:"test_num"`
	AvgTitleWordNum     float64 `json:"avg_title_word_num"`
	AvgAbstractWordNum  float64 `json:"avg_abstract_word_num"`
	AvgNegativePoolSize float64 `json:"avg_negative_pool_size"`
}

// ComputeStats 统计语料；平均词数为 mask 之和除以新闻数。
func ComputeStats(c *core.Corpus) Stats {
	s := Stats{
		UserNum:  c.UserNum,
		NewsNum:  c.NewsNum(),
		TrainNum: len(c.TrainBehaviors),
		DevNum:   len(c.DevBehaviors),
		TestNum:  len(c.TestBehaviors),
	}
	if s.NewsNum > 0 {
		s.AvgTitleWordNum = float64(sum(c.News.TitleMask)) / float64(s.NewsNum)
		s.AvgAbstractWordNum = float64(sum(c.News.AbstractMask)) / float64(s.NewsNum)
	}
	if s.TrainNum > 0 {
		pool := 0
		for i := range c.TrainBehaviors {
			pool += len(c.TrainBehaviors[i].Negatives)
		}
		s.AvgNegativePoolSize = float64(pool) / float64(s.TrainNum)
	}
	return s
}

func sum(x []float32) float32 {
	if len(x) == 0 {
		return 0
	}
	return vek32.Sum(x)
}

// LoadJSON 读取 JSON 格式的语料快照并校验。
func LoadJSON(path string) (*core.Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus file: %w", err)
	}
	var c core.Corpus
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, core.NewInvalidInputError(core.ModuleCorpus, -1, "corpus: parse %s: %v", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// FilterTrain 返回只保留匹配训练行为的语料，新闻表、用户表与 dev/test 列表与原语料共享。
func FilterTrain(c *core.Corpus, filter *dsl.BehaviorFilter) (*core.Corpus, error) {
	if filter == nil {
		return c, nil
	}
	out := *c
	out.TrainBehaviors = make([]core.TrainBehavior, 0, len(c.TrainBehaviors))
	for i, b := range c.TrainBehaviors {
		ok, err := filter.Match(b)
		if err != nil {
			return nil, fmt.Errorf("filter train behavior %d: %w", i, err)
		}
		if ok {
			out.TrainBehaviors = append(out.TrainBehaviors, b)
		}
	}
	return &out, nil
}
