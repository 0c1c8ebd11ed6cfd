package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/mindkit/core"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath, inspectCorpus, inspectMode, inspectEpochs, inspectJSON = "", "", "", 1, false
	truthBehaviors, truthOutput = "", ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeCorpus(t *testing.T, dir string) string {
	t.Helper()
	d := core.Dims{MaxHistoryNum: 2, MaxTitleLength: 3, MaxAbstractLength: 4, CategoryNum: 1}
	const newsNum = 8
	c := core.Corpus{Dims: d, UserNum: 1}
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
	c.Users = core.UserHistoryTable{
		Graph:           make([]float32, d.MaxHistoryNum*d.MaxHistoryNum),
		CategoryMask:    make([]float32, d.CategoryNum+1),
		CategoryIndices: make([]int32, d.MaxHistoryNum),
	}
	for i := 0; i < 10; i++ {
		pool := []int32{1, 2, 3, 4, 5}
		if i == 9 {
			pool = nil
		}
		c.TrainBehaviors = append(c.TrainBehaviors, core.TrainBehavior{
			UserID:       int32(i),
			HistoryIndex: []int32{1, 0},
			HistoryMask:  []float32{1, 0},
			Positive:     int32(i % newsNum),
			Negatives:    pool,
		})
	}
	for i := 0; i < 5; i++ {
		c.DevBehaviors = append(c.DevBehaviors, core.DevTestBehavior{
			UserID:       int32(i),
			HistoryIndex: []int32{2, 3},
			HistoryMask:  []float32{1, 1},
			Candidate:    int32(i),
			Label:        int8(i % 2),
		})
	}
	data, err := json.Marshal(c)
	require.NoError(t, err)
	path := filepath.Join(dir, "corpus.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func writeConfig(t *testing.T, dir, extra string) string {
	t.Helper()
	content := `
negative_sample_num: 2
max_history_num: 2
max_title_length: 3
max_abstract_length: 4
batch_size: 4
seed: 1
log_mode: dev
` + extra
	path := filepath.Join(dir, "mind.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestInspect_Train(t *testing.T) {
	dir := t.TempDir()
	corpusPath := writeCorpus(t, dir)
	cfgPath := writeConfig(t, dir, `train_filter: "behavior.pool_size > 0"
snapshot:
  enabled: true
  store:
    type: memory
`)

	out, err := run(t, "inspect", "-c", cfgPath, "--corpus", corpusPath, "--epochs", "2", "--json")
	require.NoError(t, err)

	var report inspectReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "train", report.Mode)
	assert.Equal(t, 10, report.Stats.TrainNum)
	assert.Equal(t, 9, report.Samples, "empty pool filtered out")
	require.Len(t, report.Fields, 21)
	assert.Equal(t, "news_title_text", report.Fields[15].Name)
	assert.Equal(t, []int{3, 3}, report.Fields[15].Shape)
	assert.Equal(t, []epochReport{
		{Epoch: 1, Batches: 3, Samples: 9},
		{Epoch: 2, Batches: 3, Samples: 9},
	}, report.Epochs)
}

func TestInspect_EmptyPoolWithoutFilter(t *testing.T) {
	dir := t.TempDir()
	corpusPath := writeCorpus(t, dir)
	cfgPath := writeConfig(t, dir, "")

	_, err := run(t, "inspect", "-c", cfgPath, "--corpus", corpusPath)
	require.Error(t, err)
	assert.True(t, core.IsEmptyCandidatePool(err))
	de := core.GetDomainError(err)
	require.NotNil(t, de)
	assert.Equal(t, 9, de.Index)
}

func TestInspect_Dev(t *testing.T) {
	dir := t.TempDir()
	corpusPath := writeCorpus(t, dir)
	cfgPath := writeConfig(t, dir, "")

	out, err := run(t, "inspect", "-c", cfgPath, "--corpus", corpusPath, "--mode", "dev")
	require.NoError(t, err)
	assert.Contains(t, out, "dev samples : 5")
	assert.Contains(t, out, "epoch 1 : 2 batches, 5 samples")
	assert.Contains(t, out, "candidate_news_title_text")
}

func TestInspect_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	corpusPath := writeCorpus(t, dir)

	tests := []struct {
		name string
		args []string
	}{
		{name: "bad mode", args: []string{"inspect", "-c", writeConfig(t, dir, ""), "--corpus", corpusPath, "--mode", "train2"}},
		{name: "dims differ from default config", args: []string{"inspect", "--corpus", corpusPath}},
		{name: "zero epochs", args: []string{"inspect", "-c", writeConfig(t, dir, ""), "--corpus", corpusPath, "--epochs", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.True(t, core.IsInvalidConfig(err))
		})
	}
}

func TestTruth(t *testing.T) {
	dir := t.TempDir()
	behaviors := filepath.Join(dir, "behaviors.tsv")
	require.NoError(t, os.WriteFile(behaviors, []byte(
		"1\tU1\t11/11/2019 9:05:58 AM\tN9\tN1-0 N2-1\n"+
			"2\tU2\t11/11/2019 9:06:58 AM\t\tN4-1\n"), 0o644))

	out, err := run(t, "truth", "--behaviors", behaviors)
	require.NoError(t, err)
	assert.Equal(t, "1 [0,1]\n2 [1]", out)

	target := filepath.Join(dir, "dev", "ref", "truth.txt")
	_, err = run(t, "truth", "--behaviors", behaviors, "-o", target)
	require.NoError(t, err)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "1 [0,1]\n2 [1]", string(data))
}
