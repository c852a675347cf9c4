package matting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillRect(m *Mask, x0, y0, x1, y1 int, v uint8) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			m.Pix[m.Offset(x, y)] = v
		}
	}
}

func TestLabel(t *testing.T) {
	t.Parallel()

	m := NewMask(8, 4)
	fillRect(m, 5, 0, 7, 2, 200) // 右上，先被扫描到
	fillRect(m, 0, 2, 2, 4, 200) // 左下
	m.Pix[m.Offset(2, 1)] = 200  // 与左下块斜向相连
	m.Pix[m.Offset(4, 3)] = 30   // 不超过阈值

	r := Label(m, 30)
	require.Equal(t, []int{4, 5}, r.Sizes)
	assert.Equal(t, int32(0), r.Labels[m.Offset(5, 0)])
	assert.Equal(t, int32(1), r.Labels[m.Offset(2, 1)])
	assert.Equal(t, int32(1), r.Labels[m.Offset(0, 3)])
	assert.Equal(t, int32(-1), r.Labels[m.Offset(4, 3)])
	assert.Equal(t, 5, r.Largest())
}

func TestDenoise_RemovesSpeck(t *testing.T) {
	t.Parallel()

	m := NewMask(100, 100)
	fillRect(m, 10, 10, 60, 50, 255) // 2000 像素
	m.Pix[m.Offset(90, 90)] = 255

	got, stats := Denoise(m, DefaultParams())
	assert.Equal(t, uint8(0), got.Pix[got.Offset(90, 90)])
	for i, v := range m.Pix {
		if i == m.Offset(90, 90) {
			continue
		}
		assert.Equal(t, v, got.Pix[i], "pixel %d", i)
	}

	assert.Equal(t, RegionStats{
		Regions:       2,
		Largest:       2000,
		Threshold:     200,
		RemovedCount:  1,
		RemovedPixels: 1,
	}, stats)
	// 输入不被修改
	assert.Equal(t, uint8(255), m.Pix[m.Offset(90, 90)])
}

func TestDenoise_UnlabeledKeepValue(t *testing.T) {
	t.Parallel()

	m := NewMask(100, 100)
	fillRect(m, 0, 0, 50, 40, 255)
	m.Pix[m.Offset(80, 80)] = 25

	got, _ := Denoise(m, DefaultParams())
	assert.Equal(t, uint8(25), got.Pix[got.Offset(80, 80)])
	assert.Equal(t, uint8(255), got.Pix[got.Offset(0, 0)])
}

func TestDenoise_NoRegions(t *testing.T) {
	t.Parallel()

	m := NewMask(10, 10)
	for i := range m.Pix {
		m.Pix[i] = 12
	}

	got, stats := Denoise(m, DefaultParams())
	assert.Equal(t, make([]uint8, 100), got.Pix)
	assert.Equal(t, 0, stats.Regions)
	assert.Equal(t, 0, stats.Largest)
}

func TestMinRegionSize(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	tests := []struct {
		name           string
		total, largest int
		want           int
	}{
		{"absolute floor", 10000, 2000, 200},
		{"ratio of total", 1_000_000, 5000, 1000},
		{"ratio of largest", 100_000, 50_000, 500},
		{"floors fractions", 250_999, 0, 250},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, minRegionSize(p, tt.total, tt.largest))
		})
	}
}
