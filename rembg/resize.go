package rembg

import (
	"image"

	"github.com/chaos-io/cutout/matting"
	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// ResizeMask 双线性缩放到 width×height，尺寸一致时原样返回
func ResizeMask(mask *matting.Mask, width, height int) *matting.Mask {
	if mask.Width == width && mask.Height == height {
		return mask
	}
	resized := resize.Resize(uint(width), uint(height), mask.Gray(), resize.Bilinear)
	return MaskFromImage(resized)
}

// MaskFromImage 任意图像转灰度掩码
func MaskFromImage(img image.Image) *matting.Mask {
	gray, ok := img.(*image.Gray)
	if !ok {
		b := img.Bounds()
		gray = image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	}
	return matting.MaskFromGray(gray)
}

// resizeWithinMax 缩放（最长边 <= maxSize）
func resizeWithinMax(img image.Image, maxSize int) image.Image {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	longest := max(w, h)

	if maxSize <= 0 || longest <= maxSize {
		return img
	}

	scale := float64(maxSize) / float64(longest)
	newW := max(1, int(float64(w)*scale))
	newH := max(1, int(float64(h)*scale))

	dst := image.NewNRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}
