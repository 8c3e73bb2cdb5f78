// Package surface 实现渲染面适配器：场景图的唯一所有者。
// 所有对象增删、排序、变换与命中测试都经由它的 API 进行，
// 历史子系统因此获得单一的变更观察点。
package surface

import (
	"fmt"
	"image"
	"math"

	"github.com/ByLCY/imprint/binding"
	"github.com/ByLCY/imprint/scene"
)

// Direction 是 z 轴排序操作的方向。
type Direction string

const (
	ToFront  Direction = "front"
	ToBack   Direction = "back"
	Forward  Direction = "forward"
	Backward Direction = "backward"
)

// VisState 记录导出期间需要临时改动的可见性状态。
type VisState struct {
	BackgroundVisible bool
	BackgroundFill    *scene.Color
	MarkerVisible     bool
}

// Surface 持有一块逻辑画布上的全部渲染状态。
// 并发模型为单线程事件驱动：场景图的修改不加锁，只有字体缓存内部同步。
type Surface struct {
	width  float64
	height float64

	objects []*scene.Object // 自底向上，含区域标记；底图独立于对象序列

	bgImage   image.Image
	bgFill    *scene.Color
	bgVisible bool

	selection string

	pixels map[string]image.Image // 图片对象解码后的像素，按对象 id

	pendingLoads map[string]uint64
	loadSeq      uint64

	fonts *fontCache

	// onChange 是历史子系统的观察点；constraint 由约束子系统注入，
	// 在移动/缩放提交时执行；afterMutate 在每次变更后执行（自由摆放
	// 模式用它把标记提升到最前）。
	onChange    func()
	constraint  func(*scene.Object)
	afterMutate func()
}

// New 创建逻辑尺寸为 width×height 的渲染面。
func New(width, height float64) *Surface {
	return &Surface{
		width:     width,
		height:    height,
		bgVisible: true,
		pixels:    map[string]image.Image{},
		fonts:     newFontCache(),
	}
}

func (s *Surface) Width() float64  { return s.width }
func (s *Surface) Height() float64 { return s.height }

// SetChangeHook 注册提交变更的观察回调。
func (s *Surface) SetChangeHook(fn func()) { s.onChange = fn }

// SetConstraint 注册移动/缩放时的约束回调。
func (s *Surface) SetConstraint(fn func(*scene.Object)) { s.constraint = fn }

// SetAfterMutate 注册每次变更后的整理回调。
func (s *Surface) SetAfterMutate(fn func()) { s.afterMutate = fn }

func (s *Surface) notify() {
	if s.afterMutate != nil {
		s.afterMutate()
	}
	if s.onChange != nil {
		s.onChange()
	}
}

// RegisterFont 注入外部字体数据供文本对象使用。
func (s *Surface) RegisterFont(family, weight, style string, data []byte) {
	props := scene.TextProps{Weight: weight, Style: style}
	s.fonts.register(family, fontStyleOf(&props), data)
}

// ---- 对象生命周期 ----

// Add 将对象加入场景图最前端。
func (s *Surface) Add(obj *scene.Object) error {
	if obj == nil {
		return fmt.Errorf("对象为空")
	}
	if _, ok := s.byID(obj.ID); ok {
		return fmt.Errorf("对象 %s 已存在", obj.ID)
	}
	s.objects = append(s.objects, obj)
	s.notify()
	return nil
}

// Remove 删除对象。系统图层（标记、底图）按名称过滤，通用删除命令无法移除。
func (s *Surface) Remove(id string) error {
	obj, ok := s.byID(id)
	if !ok {
		return fmt.Errorf("对象 %s 不存在", id)
	}
	if obj.IsSystem() || obj.Locked {
		return fmt.Errorf("系统图层 %s 不可删除", obj.Name)
	}
	s.objects = removeByID(s.objects, id)
	delete(s.pixels, id)
	if s.selection == id {
		s.selection = ""
	}
	s.notify()
	return nil
}

// Object 按 id 返回对象。
func (s *Surface) Object(id string) (*scene.Object, bool) { return s.byID(id) }

// Objects 返回暴露给外部协作方的图层列表：自底向上，不含系统图层。
func (s *Surface) Objects() []*scene.Object {
	out := make([]*scene.Object, 0, len(s.objects))
	for _, obj := range s.objects {
		if obj.IsSystem() {
			continue
		}
		out = append(out, obj)
	}
	return out
}

// SetPixels 直接为图片对象挂接解码后的像素（同步路径；异步见 loader.go）。
func (s *Surface) SetPixels(id string, img image.Image) error {
	obj, ok := s.byID(id)
	if !ok {
		return fmt.Errorf("对象 %s 不存在", id)
	}
	if obj.Kind != scene.KindImage {
		return fmt.Errorf("对象 %s 不是图片对象", id)
	}
	s.pixels[id] = img
	if obj.Image != nil && obj.Image.NaturalWidth == 0 && img != nil {
		obj.Image.NaturalWidth = float64(img.Bounds().Dx())
		obj.Image.NaturalHeight = float64(img.Bounds().Dy())
	}
	return nil
}

// ---- 变换与属性 ----

// Move 提交一次移动。一次拖拽交互只调用一次（落点），不按帧调用。
func (s *Surface) Move(id string, left, top float64) error {
	obj, ok := s.byID(id)
	if !ok {
		return fmt.Errorf("对象 %s 不存在", id)
	}
	obj.Transform.Left = left
	obj.Transform.Top = top
	if s.constraint != nil {
		s.constraint(obj)
	}
	s.notify()
	return nil
}

// Resize 提交一次缩放。
func (s *Surface) Resize(id string, scaleX, scaleY float64) error {
	obj, ok := s.byID(id)
	if !ok {
		return fmt.Errorf("对象 %s 不存在", id)
	}
	obj.Transform.ScaleX = scaleX
	obj.Transform.ScaleY = scaleY
	if s.constraint != nil {
		s.constraint(obj)
	}
	s.notify()
	return nil
}

// SetProperty 修改对象属性并提交。位置类键同样经过约束回调。
func (s *Surface) SetProperty(id, key string, value any) error {
	obj, ok := s.byID(id)
	if !ok {
		return fmt.Errorf("对象 %s 不存在", id)
	}
	obj.SetProperty(key, value)
	switch key {
	case "left", "top", "scaleX", "scaleY":
		if s.constraint != nil {
			s.constraint(obj)
		}
	}
	s.notify()
	return nil
}

// ---- z 轴排序 ----

// Reorder 调整对象的叠放次序。对象永远不会被移到固定系统图层之下：
// 底图独立于序列天然在最底，区域标记在序列内按其约定位置保持不变。
func (s *Surface) Reorder(id string, dir Direction) error {
	obj, ok := s.byID(id)
	if !ok {
		return fmt.Errorf("对象 %s 不存在", id)
	}
	if obj.IsSystem() {
		return fmt.Errorf("系统图层 %s 不参与排序", obj.Name)
	}
	idx := indexOf(s.objects, id)
	floor := 0
	for floor < len(s.objects) && s.objects[floor].IsSystem() {
		floor++
	}

	target := idx
	switch dir {
	case ToFront:
		target = len(s.objects) - 1
	case ToBack:
		target = floor
	case Forward:
		if idx < len(s.objects)-1 {
			target = idx + 1
		}
	case Backward:
		if idx > floor {
			target = idx - 1
		}
	default:
		return fmt.Errorf("未知的排序方向: %q", dir)
	}
	if target != idx {
		s.objects = removeAt(s.objects, idx)
		s.objects = insertAt(s.objects, target, obj)
	}
	s.notify()
	return nil
}

// PromoteMarker 把区域标记提升到序列最前（自由摆放模式）。
func (s *Surface) PromoteMarker() {
	idx := -1
	for i, obj := range s.objects {
		if obj.IsMarker() {
			idx = i
			break
		}
	}
	if idx < 0 || idx == len(s.objects)-1 {
		return
	}
	marker := s.objects[idx]
	s.objects = removeAt(s.objects, idx)
	s.objects = append(s.objects, marker)
}

// ---- 选区与命中测试 ----

// Select 设置当前选中对象；系统图层不可选中。
func (s *Surface) Select(id string) error {
	obj, ok := s.byID(id)
	if !ok {
		return fmt.Errorf("对象 %s 不存在", id)
	}
	if !obj.Selectable || obj.IsSystem() {
		return fmt.Errorf("对象 %s 不可选中", id)
	}
	s.selection = id
	return nil
}

func (s *Surface) Deselect()         { s.selection = "" }
func (s *Surface) Selection() string { return s.selection }

// HitTest 自顶向下查找命中点的首个可选中对象，标记与隐藏对象不参与。
func (s *Surface) HitTest(x, y float64) (*scene.Object, bool) {
	for i := len(s.objects) - 1; i >= 0; i-- {
		obj := s.objects[i]
		if !obj.Visible || !obj.Selectable || obj.IsSystem() {
			continue
		}
		if hitObject(obj, x, y) {
			return obj, true
		}
	}
	return nil, false
}

// hitObject 将命中点逆旋转回对象局部坐标后做包围盒测试。
func hitObject(obj *scene.Object, x, y float64) bool {
	box := obj.BoundingBox()
	if obj.Transform.Angle != 0 {
		cx := box.Left + box.Width/2
		cy := box.Top + box.Height/2
		rad := -obj.Transform.Angle * math.Pi / 180
		dx, dy := x-cx, y-cy
		x = cx + dx*math.Cos(rad) - dy*math.Sin(rad)
		y = cy + dx*math.Sin(rad) + dy*math.Cos(rad)
	}
	return box.Contains(x, y)
}

// ---- 底图 ----

// SetBackgroundImage 同步设置底图（异步路径使用 BeginLoad/FinishLoad）。
func (s *Surface) SetBackgroundImage(img image.Image) { s.bgImage = img }

func (s *Surface) SetBackgroundFill(c *scene.Color) { s.bgFill = c }
func (s *Surface) BackgroundFill() *scene.Color     { return s.bgFill }

func (s *Surface) SetBackgroundVisible(v bool) { s.bgVisible = v }
func (s *Surface) BackgroundVisible() bool     { return s.bgVisible }

// ---- 标记 ----

// Marker 返回区域标记对象（若存在）。
func (s *Surface) Marker() (*scene.Object, bool) {
	for _, obj := range s.objects {
		if obj.IsMarker() {
			return obj, true
		}
	}
	return nil, false
}

// SetMarkerVisible 切换标记可见性（导出时隐藏）。
func (s *Surface) SetMarkerVisible(v bool) {
	if marker, ok := s.Marker(); ok {
		marker.Visible = v
	}
}

// VisibilityState 快照导出前需要临时改动的可见性状态。
func (s *Surface) VisibilityState() VisState {
	state := VisState{
		BackgroundVisible: s.bgVisible,
		BackgroundFill:    s.bgFill,
	}
	if marker, ok := s.Marker(); ok {
		state.MarkerVisible = marker.Visible
	}
	return state
}

// ApplyVisibility 恢复（或应用）一份可见性状态。
func (s *Surface) ApplyVisibility(state VisState) {
	s.bgVisible = state.BackgroundVisible
	s.bgFill = state.BackgroundFill
	s.SetMarkerVisible(state.MarkerVisible)
}

// ---- 快照与模板 ----

// SnapshotJSON 序列化当前全部非系统对象。
func (s *Surface) SnapshotJSON() ([]byte, error) {
	return scene.Encode(s.objects)
}

// Restore 用快照重建场景：先解析，解析失败时场景保持原样；
// 成功后替换全部非系统对象，标记与底图显式保留。
// 本方法不触发变更回调，由历史子系统自行管理游标。
func (s *Surface) Restore(data []byte) error {
	objects, _, err := scene.Decode(data)
	if err != nil {
		return err
	}
	s.replaceUserObjects(objects)
	return nil
}

// LoadTemplate 载入模板快照：清空当前非系统对象并重建，
// 文本内容中的 ${path} 占位符按 data 插值。与历史恢复走同一条重建路径。
// 返回值 skipped 报告因 kind 未识别而被跳过的条目数。
func (s *Surface) LoadTemplate(snapshot []byte, data any) (skipped int, err error) {
	objects, skipped, err := scene.Decode(snapshot)
	if err != nil {
		return 0, err
	}
	if data != nil {
		for _, obj := range objects {
			if obj.Text != nil {
				obj.Text.Content = binding.Apply(obj.Text.Content, data)
			}
		}
	}
	s.replaceUserObjects(objects)
	s.notify()
	return skipped, nil
}

// Clear 移除全部非系统对象。
func (s *Surface) Clear() {
	s.replaceUserObjects(nil)
	s.notify()
}

func (s *Surface) replaceUserObjects(objects []*scene.Object) {
	kept := make([]*scene.Object, 0, len(s.objects))
	for _, obj := range s.objects {
		if obj.IsSystem() {
			kept = append(kept, obj)
		}
	}
	s.objects = append(kept, objects...)
	s.selection = ""
	// 仅保留 id 仍然存在的像素缓存
	alive := map[string]bool{}
	for _, obj := range s.objects {
		alive[obj.ID] = true
	}
	for id := range s.pixels {
		if !alive[id] {
			delete(s.pixels, id)
		}
	}
	if s.afterMutate != nil {
		s.afterMutate()
	}
}

// ---- 内部辅助 ----

func (s *Surface) byID(id string) (*scene.Object, bool) {
	for _, obj := range s.objects {
		if obj.ID == id {
			return obj, true
		}
	}
	return nil, false
}

func indexOf(objects []*scene.Object, id string) int {
	for i, obj := range objects {
		if obj.ID == id {
			return i
		}
	}
	return -1
}

func removeByID(objects []*scene.Object, id string) []*scene.Object {
	idx := indexOf(objects, id)
	if idx < 0 {
		return objects
	}
	return removeAt(objects, idx)
}

func removeAt(objects []*scene.Object, idx int) []*scene.Object {
	return append(objects[:idx:idx], objects[idx+1:]...)
}

func insertAt(objects []*scene.Object, idx int, obj *scene.Object) []*scene.Object {
	if idx >= len(objects) {
		return append(objects, obj)
	}
	objects = append(objects, nil)
	copy(objects[idx+1:], objects[idx:])
	objects[idx] = obj
	return objects
}
