package matting

import (
	"fmt"

	"go.uber.org/zap"
)

// Pipeline 抠图管线
//
//	平滑 -> 腐蚀 -> 膨胀 -> 连通域去噪 -> alpha/抠图修正 -> 色键 -> 合成
//
// 每一步产出新的缓冲区，不修改上一步的结果。Pipeline 本身无状态，可并发使用。
type Pipeline struct {
	params Params
	logger *zap.Logger
}

// NewPipeline 校验参数并创建管线，logger 为 nil 时不输出日志
func NewPipeline(p Params, logger *zap.Logger) (*Pipeline, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{params: p, logger: logger}, nil
}

// Params 返回管线参数
func (pl *Pipeline) Params() Params {
	return pl.params
}

// Process 使用默认日志执行一次管线
func Process(src *PixelBuffer, mask *Mask, p Params) (*PixelBuffer, error) {
	pl, err := NewPipeline(p, nil)
	if err != nil {
		return nil, err
	}
	return pl.Process(src, mask)
}

// Process 把原图与掩码转换为抠图结果
func (pl *Pipeline) Process(src *PixelBuffer, mask *Mask) (*PixelBuffer, error) {
	if err := src.validate(); err != nil {
		return nil, err
	}
	if err := mask.validate(); err != nil {
		return nil, err
	}
	if src.Width != mask.Width || src.Height != mask.Height {
		return nil, fmt.Errorf("%w: image %dx%d, mask %dx%d",
			ErrInvalidDimensions, src.Width, src.Height, mask.Width, mask.Height)
	}

	final, stats := pl.Refine(mask)
	pl.logger.Debug("region filter",
		zap.Int("regions", stats.Regions),
		zap.Int("largest", stats.Largest),
		zap.Int("threshold", stats.Threshold),
		zap.Int("removed_regions", stats.RemovedCount),
		zap.Int("removed_pixels", stats.RemovedPixels))

	alpha := ComputeAlpha(src, final, pl.params)
	if pl.params.ChromaKey != nil {
		alpha = ChromaKey(src, alpha, *pl.params.ChromaKey, pl.params.ChromaKeyTolerance)
	}
	return Composite(src, alpha, pl.params.Background), nil
}

// Refine 掩码精修：平滑、开运算、连通域去噪
//
// 全 0 或全 255 的退化掩码直接作为最终掩码。
func (pl *Pipeline) Refine(mask *Mask) (*Mask, RegionStats) {
	if mask.uniform(0) || mask.uniform(255) {
		return mask.clone(), RegionStats{}
	}
	blurred := Smooth(mask, pl.params.KernelSize, pl.params.GaussianSigma)
	opened := Open(blurred)
	return Denoise(opened, pl.params)
}
