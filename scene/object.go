package scene

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ByLCY/imprint/geom"
)

// 该文件定义可放置到画布上的场景对象模型：文本、图片与形状，
// 以及它们的创建、克隆与属性修改。

// Kind 标识对象变体。
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindShape Kind = "shape"
)

// MarkerName 是可打印区域标记的保留名称。
// 其他子系统（快照、导出、图层列表、删除命令）都按该名称过滤标记。
const MarkerName = "area-marker"

// BackgroundName 是产品底图图层的保留名称。
const BackgroundName = "background-mockup"

// 新对象在没有可打印区域时的固定落点。
const fallbackOriginX, fallbackOriginY = 24.0, 24.0

// cloneOffset 是克隆对象相对原对象的偏移，避免完全重叠。
const cloneOffset = 20.0

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// ParseColor 解析 #rgb/#rrggbb 形式的颜色值。
func ParseColor(value string) (Color, error) {
	value = strings.TrimPrefix(value, "#")
	switch len(value) {
	case 3:
		r := strings.Repeat(string(value[0]), 2)
		g := strings.Repeat(string(value[1]), 2)
		b := strings.Repeat(string(value[2]), 2)
		return Color{R: mustHex(r), G: mustHex(g), B: mustHex(b)}, nil
	case 6, 8:
		return Color{R: mustHex(value[0:2]), G: mustHex(value[2:4]), B: mustHex(value[4:6])}, nil
	default:
		return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
}

func mustHex(s string) int {
	v, _ := strconv.ParseInt(s, 16, 64)
	return int(v)
}

// Object 是场景对象的统一载体：公共基座加上按 Kind 填充的变体字段。
// zOrder 由渲染面中的序列位置隐式决定，不在对象上保存。
type Object struct {
	ID         string         `json:"id"`
	Kind       Kind           `json:"kind"`
	Name       string         `json:"name,omitempty"`
	Transform  geom.Transform `json:"transform"`
	Visible    bool           `json:"visible"`
	Locked     bool           `json:"locked,omitempty"`     // 系统图层禁止通过通用删除命令移除
	Selectable bool           `json:"selectable,omitempty"` // 标记等系统图层不可选中、不参与命中测试

	Text  *TextProps  `json:"text,omitempty"`
	Image *ImageProps `json:"image,omitempty"`
	Shape *ShapeProps `json:"shape,omitempty"`
}

// TextProps 保存文本对象的样式属性。
type TextProps struct {
	Content       string  `json:"content"`
	FontFamily    string  `json:"fontFamily,omitempty"`
	FontSize      float64 `json:"fontSize"`
	Fill          Color   `json:"fill"`
	Weight        string  `json:"weight,omitempty"` // normal/bold
	Style         string  `json:"style,omitempty"`  // normal/italic
	Align         string  `json:"align,omitempty"`  // left/center/right
	LetterSpacing float64 `json:"letterSpacing,omitempty"`
	LineSpacing   float64 `json:"lineSpacing,omitempty"` // 行高系数，<=0 时取 1.16
	Stroke        *Stroke `json:"stroke,omitempty"`
	Shadow        *Shadow `json:"shadow,omitempty"`
}

// Stroke 描述文本描边。
type Stroke struct {
	Color Color   `json:"color"`
	Width float64 `json:"width"`
}

// Shadow 描述文本阴影（偏移与颜色）。
type Shadow struct {
	Color   Color   `json:"color"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// ImageProps 保存图片对象的像素来源与滤镜信息。
// 解码后的像素由渲染面持有，不随对象序列化。
type ImageProps struct {
	Src           string  `json:"src"`
	Filters       string  `json:"filters,omitempty"` // 滤镜表达式，见 filter 包
	NaturalWidth  float64 `json:"naturalWidth,omitempty"`
	NaturalHeight float64 `json:"naturalHeight,omitempty"`
}

// ShapeProps 保存形状对象的几何与填充描边。
type ShapeProps struct {
	Geometry    string    `json:"geometry"` // rect/ellipse
	Width       float64   `json:"width"`
	Height      float64   `json:"height"`
	Fill        *Color    `json:"fill,omitempty"` // 为空表示不填充
	Stroke      Color     `json:"stroke"`
	StrokeWidth float64   `json:"strokeWidth,omitempty"`
	Dash        []float64 `json:"dash,omitempty"`
}

// New 创建指定变体的场景对象并分配新 id。
// 提供可打印区域时默认居中摆放，否则落在固定起点；仅在 kind 非法时失败。
func New(kind Kind, area *geom.EditableArea) (*Object, error) {
	obj := &Object{
		ID:         uuid.NewString(),
		Kind:       kind,
		Visible:    true,
		Selectable: true,
	}
	switch kind {
	case KindText:
		obj.Text = &TextProps{Content: "", FontSize: 16, Fill: Color{R: 30, G: 30, B: 30}}
	case KindImage:
		obj.Image = &ImageProps{}
	case KindShape:
		obj.Shape = &ShapeProps{Geometry: "rect", Width: 40, Height: 40, Stroke: Color{R: 30, G: 30, B: 30}}
	default:
		return nil, fmt.Errorf("未知的对象类型: %q", kind)
	}

	x, y := fallbackOriginX, fallbackOriginY
	if area != nil {
		w, h := obj.BaseSize()
		x = area.CenterX() - w/2
		y = area.CenterY() - h/2
	}
	obj.Transform = geom.DefaultTransform(x, y)
	return obj, nil
}

// IsMarker 判断对象是否为可打印区域标记。
func (o *Object) IsMarker() bool { return o != nil && o.Name == MarkerName }

// IsSystem 判断对象是否属于系统图层（标记或底图），按名称而非类型判定。
func (o *Object) IsSystem() bool {
	return o != nil && (o.Name == MarkerName || o.Name == BackgroundName)
}

// BaseSize 返回对象未缩放时的基础尺寸。
// 文本按内容与字号估算；图片取自然尺寸；形状取几何尺寸。
func (o *Object) BaseSize() (float64, float64) {
	switch o.Kind {
	case KindText:
		t := o.Text
		if t == nil {
			return 0, 0
		}
		lines := strings.Split(t.Content, "\n")
		maxRunes := 0
		for _, l := range lines {
			if n := len([]rune(l)); n > maxRunes {
				maxRunes = n
			}
		}
		w := t.FontSize*0.55*float64(maxRunes) + t.LetterSpacing*float64(maxRunes)
		spacing := t.LineSpacing
		if spacing <= 0 {
			spacing = 1.16
		}
		h := t.FontSize * spacing * float64(len(lines))
		return w, h
	case KindImage:
		if o.Image == nil {
			return 0, 0
		}
		return o.Image.NaturalWidth, o.Image.NaturalHeight
	case KindShape:
		if o.Shape == nil {
			return 0, 0
		}
		return o.Shape.Width, o.Shape.Height
	}
	return 0, 0
}

// BoundingBox 返回对象当前的包围盒（含缩放，不含旋转）。
func (o *Object) BoundingBox() geom.Rect {
	w, h := o.BaseSize()
	return o.Transform.BoundingBox(w, h)
}

// Clone 复制对象并分配新 id，位置偏移 (+20,+20) 避免与原对象重叠。
func (o *Object) Clone() *Object {
	dup := *o
	dup.ID = uuid.NewString()
	dup.Transform.Left += cloneOffset
	dup.Transform.Top += cloneOffset
	if o.Text != nil {
		t := *o.Text
		if o.Text.Stroke != nil {
			s := *o.Text.Stroke
			t.Stroke = &s
		}
		if o.Text.Shadow != nil {
			s := *o.Text.Shadow
			t.Shadow = &s
		}
		dup.Text = &t
	}
	if o.Image != nil {
		img := *o.Image
		dup.Image = &img
	}
	if o.Shape != nil {
		sh := *o.Shape
		if o.Shape.Fill != nil {
			f := *o.Shape.Fill
			sh.Fill = &f
		}
		sh.Dash = append([]float64(nil), o.Shape.Dash...)
		dup.Shape = &sh
	}
	return &dup
}

// SetProperty 直接修改对象属性。除类型匹配外不做校验，
// 未识别的键按约定静默忽略（与“宽松配置”模型一致）。
func (o *Object) SetProperty(key string, value any) {
	switch key {
	case "left":
		if v, ok := toFloat(value); ok {
			o.Transform.Left = v
		}
	case "top":
		if v, ok := toFloat(value); ok {
			o.Transform.Top = v
		}
	case "scaleX":
		if v, ok := toFloat(value); ok {
			o.Transform.ScaleX = v
		}
	case "scaleY":
		if v, ok := toFloat(value); ok {
			o.Transform.ScaleY = v
		}
	case "angle":
		if v, ok := toFloat(value); ok {
			o.Transform.Angle = v
		}
	case "opacity":
		if v, ok := toFloat(value); ok {
			o.Transform.Opacity = v
		}
	case "visible":
		if v, ok := value.(bool); ok {
			o.Visible = v
		}
	}

	switch {
	case o.Text != nil:
		o.setTextProperty(key, value)
	case o.Image != nil:
		o.setImageProperty(key, value)
	case o.Shape != nil:
		o.setShapeProperty(key, value)
	}
}

func (o *Object) setTextProperty(key string, value any) {
	t := o.Text
	switch key {
	case "content":
		if v, ok := value.(string); ok {
			t.Content = v
		}
	case "fontFamily":
		if v, ok := value.(string); ok {
			t.FontFamily = v
		}
	case "fontSize":
		if v, ok := toFloat(value); ok {
			t.FontSize = v
		}
	case "fill":
		setColor(&t.Fill, value)
	case "weight":
		if v, ok := value.(string); ok {
			t.Weight = v
		}
	case "style":
		if v, ok := value.(string); ok {
			t.Style = v
		}
	case "align":
		if v, ok := value.(string); ok {
			t.Align = v
		}
	case "letterSpacing":
		if v, ok := toFloat(value); ok {
			t.LetterSpacing = v
		}
	case "lineSpacing":
		if v, ok := toFloat(value); ok {
			t.LineSpacing = v
		}
	}
}

func (o *Object) setImageProperty(key string, value any) {
	img := o.Image
	switch key {
	case "src":
		if v, ok := value.(string); ok {
			img.Src = v
		}
	case "filters":
		if v, ok := value.(string); ok {
			img.Filters = v
		}
	}
}

func (o *Object) setShapeProperty(key string, value any) {
	sh := o.Shape
	switch key {
	case "geometry":
		if v, ok := value.(string); ok {
			sh.Geometry = v
		}
	case "width":
		if v, ok := toFloat(value); ok {
			sh.Width = v
		}
	case "height":
		if v, ok := toFloat(value); ok {
			sh.Height = v
		}
	case "fill":
		var c Color
		if setColor(&c, value) {
			sh.Fill = &c
		}
	case "stroke":
		setColor(&sh.Stroke, value)
	case "strokeWidth":
		if v, ok := toFloat(value); ok {
			sh.StrokeWidth = v
		}
	}
}

func setColor(dst *Color, value any) bool {
	switch v := value.(type) {
	case Color:
		*dst = v
		return true
	case string:
		if c, err := ParseColor(v); err == nil {
			*dst = c
			return true
		}
	}
	return false
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}
