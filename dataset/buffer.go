package dataset

import (
	"github.com/rushteam/mindkit/core"
)

// SampleBuffer 是定长行的样本缓冲区：rows × (1+K) 的 news_index 稠密表，
// 第 i 行为 [positive_i, negative_1, ..., negative_K]。
// 整块内存一次分配，按行复用，epoch 之间不产生新的分配。
type SampleBuffer struct {
	data  []int32
	rows  int
	width int
}

// NewSampleBuffer 分配 rows × width 的零值缓冲区。
func NewSampleBuffer(rows, width int) *SampleBuffer {
	return &SampleBuffer{
		data:  make([]int32, rows*width),
		rows:  rows,
		width: width,
	}
}

// NewSampleBufferFrom 用已有数据构造缓冲区（快照恢复使用），长度必须为 rows × width。
func NewSampleBufferFrom(data []int32, rows, width int) (*SampleBuffer, error) {
	if rows < 0 || width <= 0 || len(data) != rows*width {
		return nil, core.NewInvalidInputError(core.ModuleDataset, -1,
			"dataset: buffer data length %d does not match %d x %d", len(data), rows, width)
	}
	return &SampleBuffer{data: data, rows: rows, width: width}, nil
}

// Rows 返回行数（训练行为数）。
func (b *SampleBuffer) Rows() int { return b.rows }

// Width 返回行宽 1+K。
func (b *SampleBuffer) Width() int { return b.width }

// Row 返回第 i 行的切片视图（共享底层内存，调用方不得保留到下一次重采样之后）。
func (b *SampleBuffer) Row(i int) []int32 {
	off := i * b.width
	return b.data[off : off+b.width : off+b.width]
}

// Data 返回底层平铺数据（只读使用）。
func (b *SampleBuffer) Data() []int32 { return b.data }

// CopyFrom 用 src 覆盖当前缓冲区，形状必须一致。
func (b *SampleBuffer) CopyFrom(src *SampleBuffer) error {
	if src.rows != b.rows || src.width != b.width {
		return core.NewInvalidInputError(core.ModuleDataset, -1,
			"dataset: buffer shape %dx%d does not match %dx%d", src.rows, src.width, b.rows, b.width)
	}
	copy(b.data, src.data)
	return nil
}
