package matting

import "math"

// gaussianKernel 生成归一化的 size×size 高斯核
func gaussianKernel(size int, sigma float64) []float64 {
	kernel := make([]float64, size*size)
	mean := size / 2
	var sum float64
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float64(x-mean), float64(y-mean)
			v := math.Exp(-(dx*dx+dy*dy)/(2*sigma*sigma)) / (2 * math.Pi * sigma * sigma)
			kernel[y*size+x] = v
			sum += v
		}
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// Smooth 选择性高斯模糊
//
// 只处理 (20, 250) 之间的模糊边缘像素，实心前景/背景原样保留。
// 画布外的邻居同时从加权和与权重和中剔除，边缘不会变暗。
func Smooth(mask *Mask, kernelSize int, sigma float64) *Mask {
	out := NewMask(mask.Width, mask.Height)
	kernel := gaussianKernel(kernelSize, sigma)
	half := kernelSize / 2
	w, h := mask.Width, mask.Height

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			v := mask.Pix[idx]
			if v <= ambiguousLow || v >= ambiguousHigh {
				out.Pix[idx] = v
				continue
			}

			var sum, weightSum float64
			for ky := -half; ky <= half; ky++ {
				ny := y + ky
				if ny < 0 || ny >= h {
					continue
				}
				for kx := -half; kx <= half; kx++ {
					nx := x + kx
					if nx < 0 || nx >= w {
						continue
					}
					weight := kernel[(ky+half)*kernelSize+kx+half]
					sum += float64(mask.Pix[ny*w+nx]) * weight
					weightSum += weight
				}
			}
			out.Pix[idx] = toByte(math.Floor(sum/weightSum + 0.5))
		}
	}
	return out
}
