package scene

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Document Snapshot：所有非系统对象的自描述序列化，
// 历史记录与文件导入导出共用同一格式。标记与底图永远不出现在快照中。

// Snapshot 是持久化格式的根结构。
type Snapshot struct {
	Objects []Object `json:"objects"`
}

// Encode 将对象列表序列化为快照 JSON，系统图层按名称过滤。
func Encode(objects []*Object) ([]byte, error) {
	snap := Snapshot{Objects: make([]Object, 0, len(objects))}
	for _, obj := range objects {
		if obj == nil || obj.IsSystem() {
			continue
		}
		snap.Objects = append(snap.Objects, *obj)
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("序列化快照失败: %w", err)
	}
	return data, nil
}

// Decode 从快照 JSON 重建对象列表。
// 未识别的 kind 被跳过而不中断导入，返回值 skipped 报告跳过的条目数；
// 对象 id 缺失时重新生成（id 在导入后允许变化）。
func Decode(data []byte) (objects []*Object, skipped int, err error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, 0, fmt.Errorf("解析快照失败: %w", err)
	}
	objects = make([]*Object, 0, len(snap.Objects))
	for i := range snap.Objects {
		obj := snap.Objects[i]
		if !knownKind(obj.Kind) {
			skipped++
			continue
		}
		if obj.IsSystem() {
			// 防御：旧文件混入的系统图层同样不参与重建
			skipped++
			continue
		}
		if obj.ID == "" {
			obj.ID = uuid.NewString()
		}
		normalizeProps(&obj)
		objects = append(objects, &obj)
	}
	return objects, skipped, nil
}

func knownKind(k Kind) bool {
	switch k {
	case KindText, KindImage, KindShape:
		return true
	}
	return false
}

// normalizeProps 保证变体字段与 Kind 一致，缺失时补默认值，
// 使导入后的对象可以直接参与渲染。
func normalizeProps(obj *Object) {
	switch obj.Kind {
	case KindText:
		if obj.Text == nil {
			obj.Text = &TextProps{FontSize: 16, Fill: Color{R: 30, G: 30, B: 30}}
		}
		obj.Image, obj.Shape = nil, nil
	case KindImage:
		if obj.Image == nil {
			obj.Image = &ImageProps{}
		}
		obj.Text, obj.Shape = nil, nil
	case KindShape:
		if obj.Shape == nil {
			obj.Shape = &ShapeProps{Geometry: "rect", Width: 40, Height: 40}
		}
		obj.Text, obj.Image = nil, nil
	}
	// 导入的用户对象永远可选中；Selectable 仅由系统图层置否。
	// 缩放与不透明度的缺省补齐在 Transform 的反序列化里完成，
	// 显式写入的零值（如 opacity 0）原样保留。
	obj.Selectable = true
	obj.Locked = false
}
