package matting

import "math"

// baseAlpha 阈值斜坡：v <= t 为 0，否则 (v-t)/(255-t)
func baseAlpha(v uint8, threshold int) float64 {
	if int(v) <= threshold {
		return 0
	}
	return clamp01(float64(int(v)-threshold) / float64(255-threshold))
}

// ComputeAlpha 计算每像素 alpha，并在过渡带 (0.1, 0.9) 内用局部颜色修正
//
// 邻域内 final > 200 的像素为前景样本，< 30 的为背景样本；
// 指定了背景色时直接用它作为背景估计，不再采样背景。
// 结果为 [0,1] 的 float 数组，下标与掩码一致。
func ComputeAlpha(src *PixelBuffer, final *Mask, p Params) []float64 {
	alpha := make([]float64, len(final.Pix))
	for i, v := range final.Pix {
		a := baseAlpha(v, p.AlphaThreshold)
		if a > 0.1 && a < 0.9 {
			a = refineAlpha(src, final, i%final.Width, i/final.Width, a, p)
		}
		alpha[i] = clamp01(a)
	}
	return alpha
}

func refineAlpha(src *PixelBuffer, final *Mask, x, y int, a float64, p Params) float64 {
	var fgR, fgG, fgB, bgR, bgG, bgB float64
	var fgN, bgN int
	r := p.MatteSampleRadius
	w, h := final.Width, final.Height

	for ny := max(0, y-r); ny <= min(h-1, y+r); ny++ {
		for nx := max(0, x-r); nx <= min(w-1, x+r); nx++ {
			v := final.Pix[ny*w+nx]
			o := (ny*w + nx) * 4
			switch {
			case v > foregroundSample:
				fgR += float64(src.Pix[o])
				fgG += float64(src.Pix[o+1])
				fgB += float64(src.Pix[o+2])
				fgN++
			case v < backgroundSample && p.Background == nil:
				bgR += float64(src.Pix[o])
				bgG += float64(src.Pix[o+1])
				bgB += float64(src.Pix[o+2])
				bgN++
			}
		}
	}
	if fgN == 0 {
		return a
	}
	fgR, fgG, fgB = fgR/float64(fgN), fgG/float64(fgN), fgB/float64(fgN)

	// 没有背景样本时背景估计为黑色
	if p.Background != nil {
		bgR, bgG, bgB = float64(p.Background.R), float64(p.Background.G), float64(p.Background.B)
	} else if bgN > 0 {
		bgR, bgG, bgB = bgR/float64(bgN), bgG/float64(bgN), bgB/float64(bgN)
	}

	o := (y*w + x) * 4
	sr, sg, sb := float64(src.Pix[o]), float64(src.Pix[o+1]), float64(src.Pix[o+2])
	distFg := math.Sqrt((sr-fgR)*(sr-fgR) + (sg-fgG)*(sg-fgG) + (sb-fgB)*(sb-fgB))
	distBg := math.Sqrt((sr-bgR)*(sr-bgR) + (sg-bgG)*(sg-bgG) + (sb-bgB)*(sb-bgB))
	if distFg+distBg == 0 {
		return a
	}
	colorAlpha := distBg / (distFg + distBg)
	return 0.6*a + 0.4*colorAlpha
}
