package matting

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// PixelBuffer 是 RGBA 像素缓冲区
//
//	每像素 4 字节 (R,G,B,A)，行优先，无填充
//	Stride = 4 * Width
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewPixelBuffer 分配一个全零的 RGBA 缓冲区
func NewPixelBuffer(width, height int) *PixelBuffer {
	return &PixelBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*4),
	}
}

// Stride 每行字节数
func (b *PixelBuffer) Stride() int {
	return b.Width * 4
}

// Offset 返回 (x, y) 像素 R 通道在 Pix 中的下标
func (b *PixelBuffer) Offset(x, y int) int {
	return y*b.Width*4 + x*4
}

// RGB 返回 (x, y) 的颜色分量
func (b *PixelBuffer) RGB(x, y int) (r, g, bl uint8) {
	i := b.Offset(x, y)
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2]
}

func (b *PixelBuffer) validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil pixel buffer", ErrInvalidDimensions)
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: image %dx%d", ErrInvalidDimensions, b.Width, b.Height)
	}
	if len(b.Pix) != b.Width*b.Height*4 {
		return fmt.Errorf("%w: image %dx%d has %d bytes", ErrInvalidDimensions, b.Width, b.Height, len(b.Pix))
	}
	return nil
}

// FromImage 把任意 image.Image 转换为非预乘的 RGBA 缓冲区
func FromImage(img image.Image) *PixelBuffer {
	b := img.Bounds()
	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Stride != b.Dx()*4 || b.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	}
	return &PixelBuffer{
		Width:  b.Dx(),
		Height: b.Dy(),
		Pix:    nrgba.Pix,
	}
}

// Image 以 *image.NRGBA 视图共享底层像素
func (b *PixelBuffer) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.Pix,
		Stride: b.Stride(),
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// Mask 单通道前景概率掩码，0 = 背景，255 = 前景
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewMask 分配一个全零掩码
func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// Offset 返回 (x, y) 在 Pix 中的下标
func (m *Mask) Offset(x, y int) int {
	return y*m.Width + x
}

// at 越界返回 0
func (m *Mask) at(x, y int) uint8 {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return 0
	}
	return m.Pix[y*m.Width+x]
}

func (m *Mask) clone() *Mask {
	out := &Mask{Width: m.Width, Height: m.Height, Pix: make([]uint8, len(m.Pix))}
	copy(out.Pix, m.Pix)
	return out
}

// uniform 判断掩码是否全部等于 v
func (m *Mask) uniform(v uint8) bool {
	for _, p := range m.Pix {
		if p != v {
			return false
		}
	}
	return true
}

// MaskFromGray 从灰度图构建掩码
func MaskFromGray(g *image.Gray) *Mask {
	b := g.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := 0; y < m.Height; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+m.Width]
		copy(m.Pix[y*m.Width:], row)
	}
	return m
}

// Gray 以 *image.Gray 视图共享底层数据
func (m *Mask) Gray() *image.Gray {
	return &image.Gray{
		Pix:    m.Pix,
		Stride: m.Width,
		Rect:   image.Rect(0, 0, m.Width, m.Height),
	}
}

func (m *Mask) validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil mask", ErrInvalidDimensions)
	}
	if len(m.Pix) != m.Width*m.Height {
		return fmt.Errorf("%w: mask %dx%d has %d bytes", ErrInvalidDimensions, m.Width, m.Height, len(m.Pix))
	}
	return nil
}
