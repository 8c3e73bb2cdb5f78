package surface

import (
	"testing"

	"github.com/ByLCY/imprint/scene"
)

func TestPromoteMarkerMovesToTop(t *testing.T) {
	s := New(200, 200)
	marker := &scene.Object{
		ID:      scene.MarkerName,
		Kind:    scene.KindShape,
		Name:    scene.MarkerName,
		Visible: true,
		Shape:   &scene.ShapeProps{Geometry: "rect", Width: 100, Height: 100},
	}
	_ = s.Add(marker)
	a, _ := scene.New(scene.KindShape, nil)
	b, _ := scene.New(scene.KindShape, nil)
	_ = s.Add(a)
	_ = s.Add(b)

	s.PromoteMarker()
	if got := s.objects[len(s.objects)-1]; !got.IsMarker() {
		t.Fatalf("expected marker on top, got %+v", got)
	}

	// 已在最前时保持不变
	before := append([]*scene.Object(nil), s.objects...)
	s.PromoteMarker()
	for i := range before {
		if s.objects[i] != before[i] {
			t.Fatalf("promote on topmost marker reshuffled the slice")
		}
	}
}

func TestPromoteMarkerWithoutMarkerIsNoop(t *testing.T) {
	s := New(200, 200)
	a, _ := scene.New(scene.KindShape, nil)
	_ = s.Add(a)
	s.PromoteMarker()
	if len(s.objects) != 1 || s.objects[0] != a {
		t.Fatalf("promote without marker mutated the scene")
	}
}
