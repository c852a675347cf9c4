package rembg

import (
	"context"

	"github.com/chaos-io/cutout/matting"
)

// AlphaBackend 直接使用图片自带的 alpha 通道作为掩码（已抠过图的输入、离线处理）
type AlphaBackend struct{}

func NewAlphaBackend() *AlphaBackend {
	return &AlphaBackend{}
}

func (a *AlphaBackend) Load(ctx context.Context, variant string) error {
	return ctx.Err()
}

func (a *AlphaBackend) Predict(ctx context.Context, variant string, img *matting.PixelBuffer) (*matting.Mask, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mask := matting.NewMask(img.Width, img.Height)
	for i := range mask.Pix {
		mask.Pix[i] = img.Pix[i*4+3]
	}
	return mask, nil
}

// HasUsefulAlpha 检查 alpha 通道是否真的包含透明信息
// 只要存在非 255（非完全不透明），就认为“已有抠图”
func HasUsefulAlpha(img *matting.PixelBuffer) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 255 {
			return true
		}
	}
	return false
}
