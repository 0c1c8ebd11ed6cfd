package corpus

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/mindkit/core"
	"github.com/rushteam/mindkit/pkg/dsl"
)

func newCorpus() *core.Corpus {
	d := core.Dims{MaxHistoryNum: 2, MaxTitleLength: 3, MaxAbstractLength: 4, CategoryNum: 1}
	const newsNum = 4
	c := &core.Corpus{Dims: d, UserNum: 1}
	c.News = core.NewsTable{
		Category:       make([]int32, newsNum),
		SubCategory:    make([]int32, newsNum),
		TitleText:      make([]int32, newsNum*d.MaxTitleLength),
		TitleMask:      make([]float32, newsNum*d.MaxTitleLength),
		TitleEntity:    make([]int32, newsNum*d.MaxTitleLength),
		AbstractText:   make([]int32, newsNum*d.MaxAbstractLength),
		AbstractMask:   make([]float32, newsNum*d.MaxAbstractLength),
		AbstractEntity: make([]int32, newsNum*d.MaxAbstractLength),
	}
	// 标题词数 3,2,1,0；摘要词数 4,4,0,0
	for n, words := range []int{3, 2, 1, 0} {
		for j := 0; j < words; j++ {
			c.News.TitleMask[n*d.MaxTitleLength+j] = 1
		}
	}
	for n := 0; n < 2; n++ {
		for j := 0; j < d.MaxAbstractLength; j++ {
			c.News.AbstractMask[n*d.MaxAbstractLength+j] = 1
		}
	}
	c.Users = core.UserHistoryTable{
		Graph:           make([]float32, d.MaxHistoryNum*d.MaxHistoryNum),
		CategoryMask:    make([]float32, d.CategoryNum+1),
		CategoryIndices: make([]int32, d.MaxHistoryNum),
	}
	c.TrainBehaviors = []core.TrainBehavior{
		{UserID: 1, HistoryIndex: []int32{1, 0}, HistoryMask: []float32{1, 0}, Positive: 0, Negatives: []int32{1, 2, 3}},
		{UserID: 2, HistoryIndex: []int32{0, 0}, HistoryMask: []float32{0, 0}, Positive: 1, Negatives: []int32{2}},
		{UserID: 3, HistoryIndex: []int32{2, 3}, HistoryMask: []float32{1, 1}, Positive: 2, Negatives: nil},
	}
	c.DevBehaviors = []core.DevTestBehavior{
		{UserID: 1, HistoryIndex: []int32{1, 0}, HistoryMask: []float32{1, 0}, Candidate: 3, Label: 1},
	}
	return c
}

func TestComputeStats(t *testing.T) {
	s := ComputeStats(newCorpus())
	assert.Equal(t, Stats{
		UserNum:             1,
		NewsNum:             4,
		TrainNum:            3,
		DevNum:              1,
		TestNum:             0,
		AvgTitleWordNum:     1.5,
		AvgAbstractWordNum:  2,
		AvgNegativePoolSize: 4.0 / 3.0,
	}, s)
}

func TestComputeStats_Empty(t *testing.T) {
	s := ComputeStats(&core.Corpus{})
	assert.Zero(t, s.AvgTitleWordNum)
	assert.Zero(t, s.AvgNegativePoolSize)
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	want := newCorpus()
	data, err := json.Marshal(want)
	require.NoError(t, err)
	path := filepath.Join(dir, "corpus.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	got, err := LoadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, want.Dims, got.Dims)
	assert.Equal(t, want.TrainBehaviors, got.TrainBehaviors)
	assert.Equal(t, 4, got.NewsNum())
}

func TestLoadJSON_Errors(t *testing.T) {
	dir := t.TempDir()

	broken := newCorpus()
	broken.TrainBehaviors[0].Positive = 99
	data, err := json.Marshal(broken)
	require.NoError(t, err)

	tests := []struct {
		name      string
		content   []byte
		wantInput bool
	}{
		{name: "not json", content: []byte("{"), wantInput: true},
		{name: "index out of range", content: data, wantInput: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			require.NoError(t, os.WriteFile(path, tt.content, 0o644))
			_, err := LoadJSON(path)
			require.Error(t, err)
			assert.Equal(t, tt.wantInput, core.IsInvalidInput(err))
		})
	}

	_, err = LoadJSON(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestFilterTrain(t *testing.T) {
	c := newCorpus()
	f, err := dsl.NewBehaviorFilter("behavior.history_len > 0 && behavior.pool_size >= 1")
	require.NoError(t, err)

	got, err := FilterTrain(c, f)
	require.NoError(t, err)
	require.Len(t, got.TrainBehaviors, 1)
	assert.Equal(t, int32(1), got.TrainBehaviors[0].UserID)
	assert.Len(t, c.TrainBehaviors, 3, "source corpus is untouched")

	// 新闻表共享底层内存
	assert.Same(t, &c.News.TitleMask[0], &got.News.TitleMask[0])
	assert.Equal(t, c.DevBehaviors, got.DevBehaviors)

	same, err := FilterTrain(c, nil)
	require.NoError(t, err)
	assert.Same(t, c, same)
}
