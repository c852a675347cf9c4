package matting

import "math"

const displayGamma = 2.2

// linear 显示空间 -> 线性空间
func linear(c uint8) float64 {
	return math.Pow(float64(c)/255, displayGamma)
}

// display 线性空间 -> 显示空间 [0,255]
func display(v float64) uint8 {
	return toByte(math.Pow(clamp01(v), 1/displayGamma) * 255)
}

// Composite 按 alpha 输出最终图像
//
// 指定 Background 时在线性空间与背景混合，输出完全不透明；
// 否则保留原色，半透明边缘去色边，alpha = round(alpha*255)。
func Composite(src *PixelBuffer, alpha []float64, background *RGB) *PixelBuffer {
	out := NewPixelBuffer(src.Width, src.Height)
	if background != nil {
		compositeOpaque(out, src, alpha, *background)
	} else {
		compositeTransparent(out, src, alpha)
	}
	return out
}

func compositeOpaque(out, src *PixelBuffer, alpha []float64, bg RGB) {
	bgR, bgG, bgB := linear(bg.R), linear(bg.G), linear(bg.B)
	for i, a := range alpha {
		o := i * 4
		a = clamp01(a)
		inv := 1 - a
		out.Pix[o] = display(linear(src.Pix[o])*a + bgR*inv)
		out.Pix[o+1] = display(linear(src.Pix[o+1])*a + bgG*inv)
		out.Pix[o+2] = display(linear(src.Pix[o+2])*a + bgB*inv)
		out.Pix[o+3] = 255
	}
}

func compositeTransparent(out, src *PixelBuffer, alpha []float64) {
	for i, a := range alpha {
		o := i * 4
		a = clamp01(a)
		r, g, b := float64(src.Pix[o]), float64(src.Pix[o+1]), float64(src.Pix[o+2])

		// 半透明边缘向亮度去饱和，越透明去色越强
		if a > 0.3 && a < 0.95 {
			lum := 0.299*r + 0.587*g + 0.114*b
			d := (1 - a) * 0.2
			r = r*(1-d) + lum*d
			g = g*(1-d) + lum*d
			b = b*(1-d) + lum*d
		}

		out.Pix[o] = toByte(r)
		out.Pix[o+1] = toByte(g)
		out.Pix[o+2] = toByte(b)
		out.Pix[o+3] = toByte(a * 255)
	}
}
