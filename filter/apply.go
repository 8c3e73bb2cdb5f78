package filter

import (
	"image"
	"math"

	xdraw "golang.org/x/image/draw"
)

// Apply 将滤镜栈按顺序应用到图片上，返回新的 NRGBA 图像，原图不被修改。
// opacity 取值 [0,1]，在滤镜之后整体作用于 alpha 通道。
func Apply(src image.Image, ops []Op, opacity float64) *image.NRGBA {
	bounds := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	xdraw.Draw(dst, dst.Bounds(), src, bounds.Min, xdraw.Src)

	for _, op := range ops {
		applyOp(dst, op)
	}

	if opacity < 1 {
		if opacity < 0 {
			opacity = 0
		}
		for i := 3; i < len(dst.Pix); i += 4 {
			dst.Pix[i] = uint8(float64(dst.Pix[i]) * opacity)
		}
	}
	return dst
}

// Resample 以 Catmull-Rom 核重采样到目标像素尺寸，用于导出时的高质量缩放。
func Resample(src image.Image, width, height int) *image.NRGBA {
	if width <= 0 || height <= 0 {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0))
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}

func applyOp(img *image.NRGBA, op Op) {
	switch op.Kind {
	case OpBrightness:
		delta := op.Amount * 255
		mapChannels(img, func(v float64) float64 { return v + delta })
	case OpContrast:
		factor := 1 + op.Amount
		mapChannels(img, func(v float64) float64 { return (v-128)*factor + 128 })
	case OpSaturate:
		applySaturate(img, op.Amount)
	case OpChromaKey:
		applyChromaKey(img, op)
	}
}

func mapChannels(img *image.NRGBA, f func(float64) float64) {
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = clamp255(f(float64(img.Pix[i])))
		img.Pix[i+1] = clamp255(f(float64(img.Pix[i+1])))
		img.Pix[i+2] = clamp255(f(float64(img.Pix[i+2])))
	}
}

// applySaturate 以 Rec.601 亮度为基准在灰度与原色之间插值。
func applySaturate(img *image.NRGBA, amount float64) {
	factor := 1 + amount
	for i := 0; i < len(img.Pix); i += 4 {
		r := float64(img.Pix[i])
		g := float64(img.Pix[i+1])
		b := float64(img.Pix[i+2])
		luma := 0.299*r + 0.587*g + 0.114*b
		img.Pix[i] = clamp255(luma + (r-luma)*factor)
		img.Pix[i+1] = clamp255(luma + (g-luma)*factor)
		img.Pix[i+2] = clamp255(luma + (b-luma)*factor)
	}
}

// applyChromaKey 将与指定颜色足够接近的像素抠为全透明。
func applyChromaKey(img *image.NRGBA, op Op) {
	// 容差按三通道欧氏距离归一化
	limit := op.Tolerance * math.Sqrt(3) * 255
	for i := 0; i < len(img.Pix); i += 4 {
		dr := float64(img.Pix[i]) - float64(op.KeyR)
		dg := float64(img.Pix[i+1]) - float64(op.KeyG)
		db := float64(img.Pix[i+2]) - float64(op.KeyB)
		if math.Sqrt(dr*dr+dg*dg+db*db) <= limit {
			img.Pix[i+3] = 0
		}
	}
}

func clamp255(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
