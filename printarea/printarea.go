// Package printarea 定义可打印区域：绘制其可视标记，
// 并按配置的策略约束对象摆放。
package printarea

import (
	"fmt"

	"github.com/ByLCY/imprint/geom"
	"github.com/ByLCY/imprint/scene"
	"github.com/ByLCY/imprint/surface"
)

// Policy 是区域的执行策略。
type Policy int

const (
	// PolicyClamp 严格约束：对象的包围盒始终被夹在区域内。
	PolicyClamp Policy = iota
	// PolicyFree 自由摆放：标记仅作提示，并在每次变更后保持在最前。
	PolicyFree
)

// 标记外观：虚线描边、固定颜色、零填充。
var markerStroke = scene.Color{R: 64, G: 128, B: 255}

var markerDash = []float64{4, 2}

// Overlay 将可打印区域装配到渲染面上。
type Overlay struct {
	area    geom.EditableArea
	policy  Policy
	surface *surface.Surface
}

// NewMarker 构造区域标记对象：不可选中、不可删除、不参与命中测试，
// 使用保留名称以便所有子系统按名称过滤。
func NewMarker(area geom.EditableArea) *scene.Object {
	obj := &scene.Object{
		ID:         scene.MarkerName,
		Kind:       scene.KindShape,
		Name:       scene.MarkerName,
		Transform:  geom.DefaultTransform(area.Left, area.Top),
		Visible:    true,
		Locked:     true,
		Selectable: false,
		Shape: &scene.ShapeProps{
			Geometry:    "rect",
			Width:       area.Width,
			Height:      area.Height,
			Fill:        nil, // 透明
			Stroke:      markerStroke,
			StrokeWidth: 1,
			Dash:        append([]float64(nil), markerDash...),
		},
	}
	return obj
}

// Install 在渲染面上创建标记并挂接约束回调。
// 区域尺寸非法时立即失败，不改动任何渲染状态。
func Install(s *surface.Surface, area geom.EditableArea, policy Policy) (*Overlay, error) {
	if err := area.Validate(); err != nil {
		return nil, err
	}
	if _, ok := s.Marker(); ok {
		return nil, fmt.Errorf("渲染面上已存在区域标记")
	}
	ov := &Overlay{area: area, policy: policy, surface: s}
	if err := s.Add(NewMarker(area)); err != nil {
		return nil, err
	}
	ov.install()
	return ov, nil
}

// Area 返回可打印区域。
func (ov *Overlay) Area() geom.EditableArea { return ov.area }

// Policy 返回当前策略。
func (ov *Overlay) Policy() Policy { return ov.policy }

// SetPolicy 在运行时切换策略。
func (ov *Overlay) SetPolicy(p Policy) {
	ov.policy = p
	ov.install()
}

func (ov *Overlay) install() {
	switch ov.policy {
	case PolicyClamp:
		ov.surface.SetConstraint(ov.Clamp)
		ov.surface.SetAfterMutate(nil)
	case PolicyFree:
		ov.surface.SetConstraint(nil)
		ov.surface.SetAfterMutate(ov.surface.PromoteMarker)
		ov.surface.PromoteMarker()
	}
}

// Clamp 把对象的包围盒夹入区域内；对象大于区域时贴齐最近的边。
// 系统图层不受约束。
func (ov *Overlay) Clamp(obj *scene.Object) {
	if obj == nil || obj.IsSystem() {
		return
	}
	w, h := obj.BaseSize()
	obj.Transform = geom.ClampInto(obj.Transform, w, h, ov.area)
}
