package matting

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComposite_OpaqueFullAlphaKeepsSource(t *testing.T) {
	t.Parallel()

	backgrounds := []RGB{{}, {R: 255, G: 255, B: 255}, {G: 255}, {R: 17, G: 99, B: 201}}
	for _, bg := range backgrounds {
		for c := 0; c < 256; c++ {
			src := solidBuffer(1, 1, RGB{R: uint8(c), G: uint8(255 - c), B: uint8(c / 2)})
			out := Composite(src, []float64{1}, &bg)
			assert.Equal(t, []uint8{uint8(c), uint8(255 - c), uint8(c / 2), 255}, out.Pix, "c=%d bg=%v", c, bg)
		}
	}
}

func TestComposite_OpaqueZeroAlphaIsBackground(t *testing.T) {
	t.Parallel()

	bg := RGB{R: 12, G: 200, B: 77}
	out := Composite(solidBuffer(2, 2, RGB{R: 255}), []float64{0, 0, 0, 0}, &bg)
	for i := 0; i < len(out.Pix); i += 4 {
		assert.Equal(t, []uint8{12, 200, 77, 255}, out.Pix[i:i+4])
	}
}

func TestComposite_OpaqueHalfAlphaIsGammaCorrect(t *testing.T) {
	t.Parallel()

	bg := RGB{}
	out := Composite(solidBuffer(1, 1, RGB{R: 255, G: 255, B: 255}), []float64{0.5}, &bg)
	// 线性空间 0.5 -> 0.5^(1/2.2)*255 ≈ 186，而不是 128
	assert.Equal(t, uint8(186), out.Pix[0])
	assert.Equal(t, uint8(255), out.Pix[3])
}

func TestComposite_Transparent(t *testing.T) {
	t.Parallel()

	src := solidBuffer(3, 1, RGB{R: 200, G: 100, B: 50})
	out := Composite(src, []float64{0.5, 0.96, 0}, nil)

	// 0.5：去色边 d = 0.1，亮度 124.2
	assert.Equal(t, []uint8{192, 102, 57, 128}, out.Pix[0:4])
	// 0.96：不在去色边区间
	assert.Equal(t, []uint8{200, 100, 50, 245}, out.Pix[4:8])
	assert.Equal(t, []uint8{200, 100, 50, 0}, out.Pix[8:12])
}
