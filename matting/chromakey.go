package matting

import "github.com/lucasb-eyer/go-colorful"

// ChromaKey 按与关键色的 CIE76 ΔE 距离压低 alpha
//
//	ΔE <= tol            -> 0
//	tol < ΔE < 2*tol     -> alpha * (ΔE-tol)/tol
//	其余                  -> 不变
//
// tol 限制在 [0, 50]。返回新的 alpha 数组。
func ChromaKey(src *PixelBuffer, alpha []float64, key RGB, tolerance float64) []float64 {
	tol := clampTolerance(tolerance)
	keyColor := colorful.Color{R: float64(key.R) / 255, G: float64(key.G) / 255, B: float64(key.B) / 255}

	out := make([]float64, len(alpha))
	// 相同颜色只算一次距离
	seen := make(map[uint32]float64)
	for i, a := range alpha {
		out[i] = a
		if a <= 0 {
			continue
		}

		o := i * 4
		packed := uint32(src.Pix[o])<<16 | uint32(src.Pix[o+1])<<8 | uint32(src.Pix[o+2])
		d, ok := seen[packed]
		if !ok {
			c := colorful.Color{R: float64(src.Pix[o]) / 255, G: float64(src.Pix[o+1]) / 255, B: float64(src.Pix[o+2]) / 255}
			d = c.DistanceLab(keyColor) * 100
			seen[packed] = d
		}

		switch {
		case d <= tol:
			out[i] = 0
		case d < 2*tol:
			out[i] = clamp01(a * (d - tol) / tol)
		}
	}
	return out
}
