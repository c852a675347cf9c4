package matting

import "math"

// Regions 连通域标记结果
type Regions struct {
	Width  int
	Height int
	// Labels 每像素区域 id，-1 表示未标记
	Labels []int32
	// Sizes 区域 id -> 像素数
	Sizes []int
}

// Largest 最大区域像素数，没有区域时为 0
func (r *Regions) Largest() int {
	largest := 0
	for _, s := range r.Sizes {
		largest = max(largest, s)
	}
	return largest
}

// RegionStats 去噪统计，用于日志
type RegionStats struct {
	Regions       int
	Largest       int
	Threshold     int
	RemovedCount  int
	RemovedPixels int
}

// Label 对值 > threshold 的像素做 8 连通标记，id 按光栅扫描发现顺序递增
func Label(mask *Mask, threshold uint8) *Regions {
	w, h := mask.Width, mask.Height
	labels := make([]int32, w*h)
	for i := range labels {
		labels[i] = -1
	}
	r := &Regions{Width: w, Height: h, Labels: labels}

	var queue []int
	for seed := range mask.Pix {
		if mask.Pix[seed] <= threshold || labels[seed] >= 0 {
			continue
		}

		id := int32(len(r.Sizes))
		size := 0
		labels[seed] = id
		queue = append(queue[:0], seed)

		for head := 0; head < len(queue); head++ {
			px := queue[head]
			size++
			x, y := px%w, px/w
			for dy := -1; dy <= 1; dy++ {
				ny := y + dy
				if ny < 0 || ny >= h {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					nx := x + dx
					if (dx == 0 && dy == 0) || nx < 0 || nx >= w {
						continue
					}
					n := ny*w + nx
					if mask.Pix[n] > threshold && labels[n] < 0 {
						labels[n] = id
						queue = append(queue, n)
					}
				}
			}
		}
		r.Sizes = append(r.Sizes, size)
	}
	return r
}

// minRegionSize 有效最小区域面积
//
//	max(MinRegionAbsolute, floor(total*ratioTotal), floor(largest*ratioLargest))
func minRegionSize(p Params, total, largest int) int {
	byTotal := int(math.Floor(float64(total) * p.MinRegionRatioOfTotal))
	byLargest := int(math.Floor(float64(largest) * p.MinRegionRatioOfLargest))
	return max(p.MinRegionAbsolute, byTotal, byLargest)
}

// Denoise 删除面积过小的连通域
//
// 未被标记的像素（本身已低于发现阈值）保留原值。
// 一个区域都没有时返回全零掩码。
func Denoise(opened *Mask, p Params) (*Mask, RegionStats) {
	regions := Label(opened, regionThreshold)
	stats := RegionStats{
		Regions: len(regions.Sizes),
		Largest: regions.Largest(),
	}
	if stats.Regions == 0 {
		return NewMask(opened.Width, opened.Height), stats
	}

	stats.Threshold = minRegionSize(p, len(opened.Pix), stats.Largest)
	for _, s := range regions.Sizes {
		if s < stats.Threshold {
			stats.RemovedCount++
		}
	}

	final := opened.clone()
	for i, id := range regions.Labels {
		if id >= 0 && regions.Sizes[id] < stats.Threshold {
			final.Pix[i] = 0
			stats.RemovedPixels++
		}
	}
	return final, stats
}
