package geom_test

import (
	"testing"

	"github.com/ByLCY/imprint/geom"
)

func TestEditableAreaValidate(t *testing.T) {
	ok := geom.EditableArea{Left: 10, Top: 10, Width: 100, Height: 50}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid area rejected: %v", err)
	}

	for _, bad := range []geom.EditableArea{
		{Width: 0, Height: 50},
		{Width: 100, Height: 0},
		{Width: -1, Height: 50},
	} {
		if err := bad.Validate(); err == nil {
			t.Fatalf("expected error for area %+v", bad)
		}
	}
}

func TestBoundingBoxUsesAbsoluteScale(t *testing.T) {
	tr := geom.DefaultTransform(5, 6)
	tr.ScaleX = -2
	tr.ScaleY = 3
	box := tr.BoundingBox(10, 10)
	if box.Width != 20 || box.Height != 30 {
		t.Fatalf("expected 20x30 box, got %gx%g", box.Width, box.Height)
	}
	if box.Left != 5 || box.Top != 6 {
		t.Fatalf("expected box at (5,6), got (%g,%g)", box.Left, box.Top)
	}
}

func TestClampIntoKeepsObjectInside(t *testing.T) {
	area := geom.EditableArea{Left: 10, Top: 10, Width: 100, Height: 100}

	// 区域内的对象不被移动
	tr := geom.DefaultTransform(40, 40)
	got := geom.ClampInto(tr, 20, 20, area)
	if got.Left != 40 || got.Top != 40 {
		t.Fatalf("inside object moved to (%g,%g)", got.Left, got.Top)
	}

	// 越过右下边界的对象被夹回
	tr = geom.DefaultTransform(200, 300)
	got = geom.ClampInto(tr, 20, 20, area)
	if got.Left != 90 || got.Top != 90 {
		t.Fatalf("expected clamp to (90,90), got (%g,%g)", got.Left, got.Top)
	}

	// 越过左上边界的对象被夹回
	tr = geom.DefaultTransform(-50, -50)
	got = geom.ClampInto(tr, 20, 20, area)
	if got.Left != 10 || got.Top != 10 {
		t.Fatalf("expected clamp to (10,10), got (%g,%g)", got.Left, got.Top)
	}

	// 夹取后包围盒必须完全落在区域内
	box := got.BoundingBox(20, 20)
	if !box.Inside(area) {
		t.Fatalf("clamped box %+v escapes area %+v", box, area)
	}
}

func TestClampIntoOversizedObject(t *testing.T) {
	area := geom.EditableArea{Left: 10, Top: 10, Width: 100, Height: 100}

	// 对象大于区域：贴齐最近的边而不是拒绝
	tr := geom.DefaultTransform(50, 50)
	got := geom.ClampInto(tr, 300, 300, area)
	if got.Left != 10 || got.Top != 10 {
		t.Fatalf("expected pin to (10,10), got (%g,%g)", got.Left, got.Top)
	}

	tr = geom.DefaultTransform(-500, -500)
	got = geom.ClampInto(tr, 300, 300, area)
	if got.Left != -190 || got.Top != -190 {
		t.Fatalf("expected pin to (-190,-190), got (%g,%g)", got.Left, got.Top)
	}

	// 已经覆盖整个区域时保持原位
	tr = geom.DefaultTransform(-20, -20)
	got = geom.ClampInto(tr, 300, 300, area)
	if got.Left != -20 || got.Top != -20 {
		t.Fatalf("covering object moved to (%g,%g)", got.Left, got.Top)
	}
}

func TestRectContains(t *testing.T) {
	r := geom.Rect{Left: 0, Top: 0, Width: 10, Height: 10}
	if !r.Contains(5, 5) || !r.Contains(0, 0) || !r.Contains(10, 10) {
		t.Fatalf("expected points inside rect")
	}
	if r.Contains(11, 5) || r.Contains(5, -1) {
		t.Fatalf("expected points outside rect")
	}
}
