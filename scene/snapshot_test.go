package scene_test

import (
	"strings"
	"testing"

	"github.com/ByLCY/imprint/scene"
)

func TestSnapshotExcludesSystemLayers(t *testing.T) {
	text, _ := scene.New(scene.KindText, nil)
	text.Text.Content = "hello"
	marker := &scene.Object{ID: "m", Kind: scene.KindShape, Name: scene.MarkerName, Visible: true}
	mockup := &scene.Object{ID: "b", Kind: scene.KindImage, Name: scene.BackgroundName, Visible: true}

	data, err := scene.Encode([]*scene.Object{marker, text, mockup})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if strings.Contains(string(data), scene.MarkerName) || strings.Contains(string(data), scene.BackgroundName) {
		t.Fatalf("system layers leaked into snapshot: %s", data)
	}

	objects, skipped, err := scene.Decode(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if skipped != 0 {
		t.Fatalf("expected no skipped entries, got %d", skipped)
	}
	if len(objects) != 1 || objects[0].Text.Content != "hello" {
		t.Fatalf("round trip lost user objects: %+v", objects)
	}
}

func TestDecodeSkipsUnknownKinds(t *testing.T) {
	data := []byte(`{"objects":[
		{"id":"a","kind":"text","transform":{},"visible":true,"text":{"content":"x","fontSize":12,"fill":{"r":0,"g":0,"b":0}}},
		{"id":"b","kind":"video","transform":{},"visible":true},
		{"id":"c","kind":"shape","transform":{},"visible":true,"shape":{"geometry":"rect","width":10,"height":10,"stroke":{"r":0,"g":0,"b":0}}}
	]}`)
	objects, skipped, err := scene.Decode(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if skipped != 1 {
		t.Fatalf("expected 1 skipped entry, got %d", skipped)
	}
	if len(objects) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(objects))
	}
}

func TestDecodeRegeneratesMissingIDs(t *testing.T) {
	data := []byte(`{"objects":[{"kind":"text","transform":{},"visible":true}]}`)
	objects, _, err := scene.Decode(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(objects) != 1 || objects[0].ID == "" {
		t.Fatalf("expected regenerated id, got %+v", objects)
	}
}

func TestDecodeNormalizesDefaults(t *testing.T) {
	// 缩放与不透明度为零值时恢复为 1，变体字段缺失时补默认
	data := []byte(`{"objects":[{"id":"a","kind":"shape","transform":{"left":5,"top":5},"visible":true,"locked":true}]}`)
	objects, _, err := scene.Decode(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	obj := objects[0]
	if obj.Transform.ScaleX != 1 || obj.Transform.ScaleY != 1 || obj.Transform.Opacity != 1 {
		t.Fatalf("defaults not normalized: %+v", obj.Transform)
	}
	if obj.Shape == nil || obj.Shape.Geometry != "rect" {
		t.Fatalf("missing shape props not filled: %+v", obj.Shape)
	}
	if !obj.Selectable || obj.Locked {
		t.Fatalf("imported user object must be selectable and unlocked")
	}
}

func TestDecodeKeepsExplicitZeroValues(t *testing.T) {
	// 显式写入的零值不是缺省：opacity 0 的对象必须原样往返
	obj, err := scene.New(scene.KindShape, nil)
	if err != nil {
		t.Fatalf("create shape failed: %v", err)
	}
	obj.SetProperty("opacity", 0.0)
	obj.SetProperty("scaleX", 0.0)

	data, err := scene.Encode([]*scene.Object{obj})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	objects, _, err := scene.Decode(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	got := objects[0].Transform
	if got.Opacity != 0 {
		t.Fatalf("opacity 0 round-tripped to %g", got.Opacity)
	}
	if got.ScaleX != 0 {
		t.Fatalf("scaleX 0 round-tripped to %g", got.ScaleX)
	}
	// 未被改动的字段保持原值
	if got.ScaleY != 1 {
		t.Fatalf("scaleY changed across round trip: %g", got.ScaleY)
	}
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	if _, _, err := scene.Decode([]byte(`{"objects":[`)); err == nil {
		t.Fatalf("expected error for malformed snapshot")
	}
}
