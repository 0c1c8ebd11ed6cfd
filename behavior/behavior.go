// Package behavior 解析 MIND behaviors.tsv 的行，并生成 dev/test 评测使用的 truth 文件。
//
// 行格式：impression_id \t user_id \t time \t history \t impressions
//
//	1	U13740	11/11/2019 9:05:58 AM	N55189 N42782	N55689-1 N35729-0
//
// test 集的 impressions 可以不带标签（N55689 N35729）。
package behavior

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rushteam/mindkit/core"
)

// TimeLayout 是 behaviors.tsv 中的时间格式。
const TimeLayout = "1/2/2006 3:04:05 PM"

// NoLabel 表示曝光没有点击标签（test 集）。
const NoLabel int8 = -1

// Impression 是一次曝光：新闻 ID 与点击标签（1 点击 / 0 未点击 / NoLabel）。
type Impression struct {
	NewsID string
	Label  int8
}

// Impressions 是一行中的全部曝光。
type Impressions []Impression

// Split 把曝光分为点击与未点击两组，未点击组即该行的负样本候选池。
// 没有标签的曝光不属于任何一组。
func (imps Impressions) Split() (clicked, nonClicked []string) {
	for _, imp := range imps {
		switch imp.Label {
		case 1:
			clicked = append(clicked, imp.NewsID)
		case 0:
			nonClicked = append(nonClicked, imp.NewsID)
		}
	}
	return clicked, nonClicked
}

// Labels 返回按顺序排列的标签。
func (imps Impressions) Labels() []int8 {
	labels := make([]int8, len(imps))
	for i, imp := range imps {
		labels[i] = imp.Label
	}
	return labels
}

// Line 是 behaviors.tsv 的一行。
type Line struct {
	ImpressionID string
	UserID       string
	Time         time.Time
	History      []string
	Impressions  Impressions
}

// ParseLine 解析一行（不含换行符）。
func ParseLine(line string) (*Line, error) {
	cols := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
	if len(cols) != 5 {
		return nil, core.NewInvalidInputError(core.ModuleCorpus, -1, "behavior: want 5 columns, got %d", len(cols))
	}
	l := &Line{
		ImpressionID: cols[0],
		UserID:       cols[1],
		History:      strings.Fields(cols[3]),
	}
	if cols[2] != "" {
		t, err := time.Parse(TimeLayout, cols[2])
		if err != nil {
			return nil, core.NewInvalidInputError(core.ModuleCorpus, -1, "behavior: invalid time %q", cols[2])
		}
		l.Time = t
	}
	for _, field := range strings.Fields(cols[4]) {
		imp, err := parseImpression(field)
		if err != nil {
			return nil, err
		}
		l.Impressions = append(l.Impressions, imp)
	}
	return l, nil
}

func parseImpression(s string) (Impression, error) {
	id, label, ok := strings.Cut(s, "-")
	if !ok {
		return Impression{NewsID: s, Label: NoLabel}, nil
	}
	switch label {
	case "0":
		return Impression{NewsID: id, Label: 0}, nil
	case "1":
		return Impression{NewsID: id, Label: 1}, nil
	}
	return Impression{}, core.NewInvalidInputError(core.ModuleCorpus, -1, "behavior: invalid impression %q", s)
}

// WriteTruth 读取 behaviors.tsv，为每行写出 "<行号> [l1,l2,...]"（行号从 1 开始），
// 行之间以 "\n" 分隔，末尾没有换行。每个曝光都必须带标签。返回写出的行数。
func WriteTruth(r io.Reader, w io.Writer) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	bw := bufio.NewWriter(w)

	n := 0
	for scanner.Scan() {
		line, err := ParseLine(scanner.Text())
		if err != nil {
			return n, fmt.Errorf("line %d: %w", n+1, err)
		}
		if n > 0 {
			bw.WriteByte('\n')
		}
		bw.WriteString(strconv.Itoa(n + 1))
		bw.WriteString(" [")
		for i, label := range line.Impressions.Labels() {
			if label == NoLabel {
				return n, core.NewInvalidInputError(core.ModuleCorpus, n, "behavior: line %d impression %q has no label", n+1, line.Impressions[i].NewsID)
			}
			if i > 0 {
				bw.WriteByte(',')
			}
			bw.WriteString(strconv.Itoa(int(label)))
		}
		bw.WriteByte(']')
		n++
	}
	if err := scanner.Err(); err != nil {
		return n, fmt.Errorf("read behaviors: %w", err)
	}
	return n, bw.Flush()
}
