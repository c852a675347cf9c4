package matting

// Erode 自适应腐蚀
//
// 四邻域中至少两个邻居是背景 (< 50) 才取最小值，
// 只有一侧弱邻居的细结构（头发、手指、线缆）保持不变。
// 画布外视为 0。
func Erode(mask *Mask) *Mask {
	out := NewMask(mask.Width, mask.Height)
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			idx := y*mask.Width + x
			v := mask.Pix[idx]
			if v == 0 {
				continue
			}

			up, down := mask.at(x, y-1), mask.at(x, y+1)
			left, right := mask.at(x-1, y), mask.at(x+1, y)

			bg := 0
			for _, n := range [4]uint8{up, down, left, right} {
				if n < backgroundLike {
					bg++
				}
			}
			if bg >= 2 {
				v = min(v, up, down, left, right)
			}
			out.Pix[idx] = v
		}
	}
	return out
}

// Dilate 四邻域膨胀，值为 0 的像素保持为 0
func Dilate(mask *Mask) *Mask {
	out := NewMask(mask.Width, mask.Height)
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			idx := y*mask.Width + x
			v := mask.Pix[idx]
			if v == 0 {
				continue
			}
			out.Pix[idx] = max(v, mask.at(x, y-1), mask.at(x, y+1), mask.at(x-1, y), mask.at(x+1, y))
		}
	}
	return out
}

// Open 形态学开运算：先腐蚀再膨胀
func Open(mask *Mask) *Mask {
	return Dilate(Erode(mask))
}
