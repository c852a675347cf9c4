package matting

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

var (
	// ErrInvalidDimensions 掩码与图像尺寸不一致，或尺寸非法
	ErrInvalidDimensions = errors.New("invalid dimensions")
	// ErrInvalidParams 参数非法
	ErrInvalidParams = errors.New("invalid params")
)

const (
	// 平滑只作用于 (ambiguousLow, ambiguousHigh) 区间
	ambiguousLow  = 20
	ambiguousHigh = 250

	// 腐蚀时邻居 < backgroundLike 视为背景
	backgroundLike = 50

	// 连通域发现阈值
	regionThreshold = 30

	// 抠图采样阈值
	foregroundSample = 200
	backgroundSample = 30

	MaxChromaKeyTolerance     = 50
	DefaultChromaKeyTolerance = 10
)

// RGB 8 位颜色
type RGB struct {
	R, G, B uint8
}

// ParseHex 解析 #rrggbb / rrggbb
func ParseHex(s string) (RGB, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	if len(s) != 7 {
		return RGB{}, fmt.Errorf("%w: color %q must be #rrggbb", ErrInvalidParams, s)
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return RGB{}, fmt.Errorf("%w: color %q: %v", ErrInvalidParams, s, err)
	}
	r, g, b := c.RGB255()
	return RGB{R: r, G: g, B: b}, nil
}

func (c RGB) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Params 抠图管线参数
type Params struct {
	// AlphaThreshold 掩码值 <= 阈值的像素 alpha 为 0
	AlphaThreshold int
	GaussianSigma  float64
	// KernelSize 必须为奇数
	KernelSize int

	MinRegionAbsolute       int
	MinRegionRatioOfTotal   float64
	MinRegionRatioOfLargest float64

	MatteSampleRadius int

	// Background 非空时输出不透明合成图
	Background *RGB

	// ChromaKey 非空时额外按颜色抠除
	ChromaKey          *RGB
	ChromaKeyTolerance float64
}

// DefaultParams 默认参数
func DefaultParams() Params {
	return Params{
		AlphaThreshold:          128,
		GaussianSigma:           1.0,
		KernelSize:              5,
		MinRegionAbsolute:       200,
		MinRegionRatioOfTotal:   0.001,
		MinRegionRatioOfLargest: 0.01,
		MatteSampleRadius:       3,
		ChromaKeyTolerance:      DefaultChromaKeyTolerance,
	}
}

// Validate 检查参数
func (p Params) Validate() error {
	if p.AlphaThreshold < 0 || p.AlphaThreshold > 255 {
		return fmt.Errorf("%w: alpha threshold %d out of [0,255]", ErrInvalidParams, p.AlphaThreshold)
	}
	if p.KernelSize < 1 || p.KernelSize%2 == 0 {
		return fmt.Errorf("%w: kernel size %d must be odd and positive", ErrInvalidParams, p.KernelSize)
	}
	if p.GaussianSigma <= 0 {
		return fmt.Errorf("%w: gaussian sigma %v must be positive", ErrInvalidParams, p.GaussianSigma)
	}
	if p.MatteSampleRadius < 0 {
		return fmt.Errorf("%w: matte sample radius %d is negative", ErrInvalidParams, p.MatteSampleRadius)
	}
	if p.MinRegionAbsolute < 0 || p.MinRegionRatioOfTotal < 0 || p.MinRegionRatioOfLargest < 0 {
		return fmt.Errorf("%w: region minimums must not be negative", ErrInvalidParams)
	}
	return nil
}

// clampTolerance 容差限制在 [0, 50]
func clampTolerance(t float64) float64 {
	return clamp(t, 0, MaxChromaKeyTolerance)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

// toByte 四舍五入并限制到 [0,255]
func toByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
