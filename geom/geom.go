package geom

import (
	"encoding/json"
	"fmt"
)

// 该文件定义画布坐标系下的基础几何类型，供场景模型、约束与导出共用。
// 坐标单位统一为场景单位（1 单位 = 96 DPI 下的 1 逻辑像素）。

// Conversion constants between scene units and pt (for font faces).
const (
	UnitToPt = 72.0 / 96.0
	PtToUnit = 96.0 / 72.0
)

// BaseDPI 是场景单位对应的基准屏幕密度，导出倍率按 dpi/BaseDPI 换算。
const BaseDPI = 96.0

// EditableArea 表示产品上允许设计的矩形区域（可打印区域）。
// 每份文档创建后不再变化。
type EditableArea struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Validate 在任何渲染状态被修改之前校验区域尺寸。
func (a EditableArea) Validate() error {
	if a.Width <= 0 || a.Height <= 0 {
		return fmt.Errorf("可编辑区域尺寸无效: width=%g height=%g", a.Width, a.Height)
	}
	return nil
}

// Right 返回区域右边界坐标。
func (a EditableArea) Right() float64 { return a.Left + a.Width }

// Bottom 返回区域下边界坐标。
func (a EditableArea) Bottom() float64 { return a.Top + a.Height }

// CenterX 与 CenterY 返回区域中心点，新对象默认落在这里。
func (a EditableArea) CenterX() float64 { return a.Left + a.Width/2 }
func (a EditableArea) CenterY() float64 { return a.Top + a.Height/2 }

// Rect 是一个松散的矩形包围盒，用于命中测试与约束计算。
type Rect struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// Contains reports whether the point (x, y) falls inside the rect.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.Left && x <= r.Left+r.Width && y >= r.Top && y <= r.Top+r.Height
}

// Inside reports whether r is fully contained in the area.
func (r Rect) Inside(a EditableArea) bool {
	return r.Left >= a.Left && r.Top >= a.Top &&
		r.Left+r.Width <= a.Right() && r.Top+r.Height <= a.Bottom()
}

// Transform 描述对象在场景中的位置与形变。
// Angle 使用角度制；Opacity 取值 [0,1]。
type Transform struct {
	Left    float64 `json:"left"`
	Top     float64 `json:"top"`
	ScaleX  float64 `json:"scaleX"`
	ScaleY  float64 `json:"scaleY"`
	Angle   float64 `json:"angle"`
	Opacity float64 `json:"opacity"`
}

// DefaultTransform 返回缩放 1、完全不透明的初始形变。
func DefaultTransform(left, top float64) Transform {
	return Transform{Left: left, Top: top, ScaleX: 1, ScaleY: 1, Opacity: 1}
}

// transformWire 以指针字段区分“字段缺失”与“显式的零值”：
// 旧文件缺失缩放或不透明度时补默认 1，显式写入的 0 原样保留。
type transformWire struct {
	Left    float64  `json:"left"`
	Top     float64  `json:"top"`
	ScaleX  *float64 `json:"scaleX"`
	ScaleY  *float64 `json:"scaleY"`
	Angle   float64  `json:"angle"`
	Opacity *float64 `json:"opacity"`
}

func (t *Transform) UnmarshalJSON(data []byte) error {
	var w transformWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	t.Left, t.Top, t.Angle = w.Left, w.Top, w.Angle
	t.ScaleX, t.ScaleY, t.Opacity = 1, 1, 1
	if w.ScaleX != nil {
		t.ScaleX = *w.ScaleX
	}
	if w.ScaleY != nil {
		t.ScaleY = *w.ScaleY
	}
	if w.Opacity != nil {
		t.Opacity = *w.Opacity
	}
	return nil
}

// BoundingBox 按当前缩放系数计算对象的包围盒。
// baseW/baseH 为对象未缩放时的尺寸；旋转刻意不计入包围盒，
// 约束与命中测试都以未旋转的外框为准。
func (t Transform) BoundingBox(baseW, baseH float64) Rect {
	w := baseW * t.ScaleX
	h := baseH * t.ScaleY
	if w < 0 {
		w = -w
	}
	if h < 0 {
		h = -h
	}
	return Rect{Left: t.Left, Top: t.Top, Width: w, Height: h}
}

// ClampInto 将包围盒为 (w,h) 的对象位置夹入区域内。
// 对象大于区域时贴齐最近的边，而不是拒绝移动。
func ClampInto(t Transform, baseW, baseH float64, a EditableArea) Transform {
	box := t.BoundingBox(baseW, baseH)
	t.Left = clampAxis(box.Left, box.Width, a.Left, a.Right())
	t.Top = clampAxis(box.Top, box.Height, a.Top, a.Bottom())
	return t
}

func clampAxis(pos, size, lo, hi float64) float64 {
	if size > hi-lo {
		// 超出区域宽度：贴齐最近的边
		if pos > lo {
			return lo
		}
		if pos+size < hi {
			return hi - size
		}
		return pos
	}
	if pos < lo {
		return lo
	}
	if pos+size > hi {
		return hi - size
	}
	return pos
}
