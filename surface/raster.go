package surface

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"

	"github.com/ByLCY/imprint/filter"
	"github.com/ByLCY/imprint/geom"
	"github.com/ByLCY/imprint/scene"
)

// 该文件负责把场景图绘制到 tdewolff/canvas 上：
// 既用于栅格化（PNG/PDF/TIFF 导出），也用于矢量输出（SVG 导出）。
// 裁剪通过坐标平移完成：只有落在区域内的内容出现在结果里。

// Rasterize 将区域 [left,top,left+w,top+h] 栅格化为像素，
// 输出尺寸为 width*multiplier × height*multiplier。
func (s *Surface) Rasterize(region geom.EditableArea, multiplier float64) (*image.RGBA, error) {
	if err := region.Validate(); err != nil {
		return nil, err
	}
	if multiplier <= 0 {
		return nil, fmt.Errorf("分辨率倍率无效: %g", multiplier)
	}
	c, err := s.buildCanvas(region)
	if err != nil {
		return nil, err
	}
	return rasterizer.Draw(c, canvas.DPMM(multiplier), canvas.DefaultColorSpace), nil
}

// VectorCanvas 构建区域的矢量画布，供 SVG 序列化使用。
func (s *Surface) VectorCanvas(region geom.EditableArea) (*canvas.Canvas, error) {
	if err := region.Validate(); err != nil {
		return nil, err
	}
	return s.buildCanvas(region)
}

// buildCanvas 按当前可见性状态把场景画到一块区域大小的画布上。
func (s *Surface) buildCanvas(region geom.EditableArea) (*canvas.Canvas, error) {
	c := canvas.New(region.Width, region.Height)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 与场景坐标一致：左上角为原点

	offX, offY := region.Left, region.Top

	if s.bgVisible {
		if s.bgFill != nil {
			ctx.Push()
			ctx.SetFillColor(colorOf(*s.bgFill, 1))
			ctx.DrawPath(0, 0, canvas.Rectangle(region.Width, region.Height))
			ctx.Pop()
		}
		if s.bgImage != nil {
			// 底图铺满渲染面的逻辑边界
			dpmm := float64(s.bgImage.Bounds().Dx()) / s.width
			if dpmm <= 0 {
				dpmm = 1
			}
			ctx.DrawImage(0-offX, 0-offY, s.bgImage, canvas.DPMM(dpmm))
		}
	}

	for _, obj := range s.objects {
		if !obj.Visible {
			continue
		}
		if err := s.drawObject(ctx, obj, offX, offY); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (s *Surface) drawObject(ctx *canvas.Context, obj *scene.Object, offX, offY float64) error {
	box := obj.BoundingBox()
	x := box.Left - offX
	y := box.Top - offY

	ctx.Push()
	defer ctx.Pop()
	if obj.Transform.Angle != 0 {
		ctx.RotateAbout(obj.Transform.Angle, x+box.Width/2, y+box.Height/2)
	}

	switch obj.Kind {
	case scene.KindShape:
		s.drawShape(ctx, obj, x, y)
		return nil
	case scene.KindImage:
		return s.drawImage(ctx, obj, x, y)
	case scene.KindText:
		return s.drawText(ctx, obj, x, y, box.Width)
	}
	return nil
}

func (s *Surface) drawShape(ctx *canvas.Context, obj *scene.Object, x, y float64) {
	sh := obj.Shape
	if sh == nil {
		return
	}
	w := sh.Width * obj.Transform.ScaleX
	h := sh.Height * obj.Transform.ScaleY
	opacity := obj.Transform.Opacity

	if sh.Fill != nil {
		ctx.SetFillColor(colorOf(*sh.Fill, opacity))
	} else {
		ctx.SetFillColor(canvas.Transparent)
	}
	ctx.SetStrokeColor(colorOf(sh.Stroke, opacity))
	sw := sh.StrokeWidth
	if sw <= 0 {
		sw = 1
	}
	ctx.SetStrokeWidth(sw)
	if len(sh.Dash) > 0 {
		ctx.SetDashes(0, sh.Dash...)
	}

	if strings.EqualFold(sh.Geometry, "ellipse") {
		ctx.DrawPath(x+w/2, y+h/2, canvas.Ellipse(w/2, h/2))
		return
	}
	ctx.DrawPath(x, y, canvas.Rectangle(w, h))
}

func (s *Surface) drawImage(ctx *canvas.Context, obj *scene.Object, x, y float64) error {
	props := obj.Image
	if props == nil {
		return nil
	}
	px, ok := s.pixels[obj.ID]
	if !ok || px == nil {
		return fmt.Errorf("图片对象 %s 的像素尚未加载", obj.ID)
	}

	ops, err := filter.Parse(props.Filters)
	if err != nil {
		return err
	}
	out := filter.Apply(px, ops, obj.Transform.Opacity)

	dispW := props.NaturalWidth * obj.Transform.ScaleX
	dispH := props.NaturalHeight * obj.Transform.ScaleY
	if dispW <= 0 || dispH <= 0 {
		return nil
	}
	// 大幅缩小时先重采样，避免栅格化阶段的锯齿
	if float64(out.Bounds().Dx()) > dispW*2 {
		out = filter.Resample(out, int(dispW*2), int(dispH*2))
	}
	dpmm := float64(out.Bounds().Dx()) / dispW
	if dpmm <= 0 {
		dpmm = 1
	}
	ctx.DrawImage(x, y, out, canvas.DPMM(dpmm))
	return nil
}

func (s *Surface) drawText(ctx *canvas.Context, obj *scene.Object, x, y, boxW float64) error {
	props := obj.Text
	if props == nil {
		return nil
	}
	sx := obj.Transform.ScaleX
	sy := obj.Transform.ScaleY
	size := props.FontSize * sy
	if size <= 0 {
		return nil
	}
	opacity := obj.Transform.Opacity

	face, err := s.fonts.face(props, size, props.Fill, opacity)
	if err != nil {
		return err
	}

	// 宽高比校正：字形按 scaleY 缩放，水平推进按 scaleX/scaleY 修正
	ratio := 1.0
	if sy != 0 {
		ratio = sx / sy
	}
	letter := props.LetterSpacing * sx
	spacing := props.LineSpacing
	if spacing <= 0 {
		spacing = 1.16
	}
	lineHeight := props.FontSize * spacing * sy
	ascent := face.Metrics().Ascent

	var shadowFace, strokeFace *canvas.FontFace
	if props.Shadow != nil {
		if shadowFace, err = s.fonts.face(props, size, props.Shadow.Color, opacity); err != nil {
			return err
		}
	}
	if props.Stroke != nil && props.Stroke.Width > 0 {
		if strokeFace, err = s.fonts.face(props, size, props.Stroke.Color, opacity); err != nil {
			return err
		}
	}

	cursorY := y
	for _, line := range strings.Split(props.Content, "\n") {
		lineW := lineWidth(face, line, ratio, letter)
		startX := x
		switch strings.ToLower(props.Align) {
		case "center":
			startX = x + (boxW-lineW)/2
		case "right":
			startX = x + boxW - lineW
		}
		baseline := cursorY + ascent

		if shadowFace != nil {
			dx := props.Shadow.OffsetX * sx
			dy := props.Shadow.OffsetY * sy
			drawLine(ctx, shadowFace, line, startX+dx, baseline+dy, ratio, letter)
		}
		if strokeFace != nil {
			// 四向偏移绘制近似描边
			d := props.Stroke.Width
			for _, off := range [][2]float64{{-d, 0}, {d, 0}, {0, -d}, {0, d}} {
				drawLine(ctx, strokeFace, line, startX+off[0], baseline+off[1], ratio, letter)
			}
		}
		drawLine(ctx, face, line, startX, baseline, ratio, letter)
		cursorY += lineHeight
	}
	return nil
}

// drawLine 绘制一行文本。无字距与比例修正时整行绘制，否则逐字推进。
func drawLine(ctx *canvas.Context, face *canvas.FontFace, line string, x, baseline, ratio, letter float64) {
	if line == "" {
		return
	}
	if letter == 0 && ratio == 1 {
		ctx.DrawText(x, baseline, canvas.NewTextLine(face, line, canvas.Left))
		return
	}
	cursor := x
	for _, r := range line {
		ch := string(r)
		ctx.DrawText(cursor, baseline, canvas.NewTextLine(face, ch, canvas.Left))
		cursor += face.TextWidth(ch)*ratio + letter
	}
}

func lineWidth(face *canvas.FontFace, line string, ratio, letter float64) float64 {
	if letter == 0 && ratio == 1 {
		return face.TextWidth(line)
	}
	w := 0.0
	n := 0
	for _, r := range line {
		w += face.TextWidth(string(r)) * ratio
		n++
	}
	if n > 1 {
		w += letter * float64(n-1)
	}
	return w
}

func colorOf(c scene.Color, opacity float64) color.Color {
	if opacity < 0 {
		opacity = 0
	} else if opacity > 1 {
		opacity = 1
	}
	return canvas.RGBA(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255, opacity)
}
