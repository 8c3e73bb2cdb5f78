package surface_test

import (
	"testing"

	"github.com/ByLCY/imprint/geom"
	"github.com/ByLCY/imprint/scene"
	"github.com/ByLCY/imprint/surface"
)

func redRect(t *testing.T, left, top, w, h float64) *scene.Object {
	t.Helper()
	obj, err := scene.New(scene.KindShape, nil)
	if err != nil {
		t.Fatalf("create shape failed: %v", err)
	}
	obj.Transform.Left = left
	obj.Transform.Top = top
	obj.Shape.Width = w
	obj.Shape.Height = h
	obj.Shape.Fill = &scene.Color{R: 255}
	obj.Shape.Stroke = scene.Color{R: 255}
	return obj
}

func TestRasterizeOutputDimensions(t *testing.T) {
	s := surface.New(100, 50)
	region := geom.EditableArea{Left: 0, Top: 0, Width: 100, Height: 50}

	img, err := s.Rasterize(region, 2)
	if err != nil {
		t.Fatalf("rasterize failed: %v", err)
	}
	if img.Bounds().Dx() != 200 || img.Bounds().Dy() != 100 {
		t.Fatalf("expected 200x100 pixels, got %v", img.Bounds())
	}
}

func TestRasterizeRejectsBadInput(t *testing.T) {
	s := surface.New(100, 50)
	region := geom.EditableArea{Width: 100, Height: 50}
	if _, err := s.Rasterize(region, 0); err == nil {
		t.Fatalf("expected error for zero multiplier")
	}
	if _, err := s.Rasterize(geom.EditableArea{Width: -1, Height: 50}, 1); err == nil {
		t.Fatalf("expected error for invalid region")
	}
}

func TestRasterizeBackgroundFill(t *testing.T) {
	s := surface.New(40, 40)
	s.SetBackgroundFill(&scene.Color{R: 255})
	region := geom.EditableArea{Width: 40, Height: 40}

	img, err := s.Rasterize(region, 1)
	if err != nil {
		t.Fatalf("rasterize failed: %v", err)
	}
	r, _, _, a := img.At(20, 20).RGBA()
	if r>>8 < 200 || a>>8 != 255 {
		t.Fatalf("expected red background pixel, got r=%d a=%d", r>>8, a>>8)
	}

	// 背景隐藏后同一像素变为透明
	s.SetBackgroundVisible(false)
	img, err = s.Rasterize(region, 1)
	if err != nil {
		t.Fatalf("rasterize failed: %v", err)
	}
	if _, _, _, a := img.At(20, 20).RGBA(); a != 0 {
		t.Fatalf("expected transparent pixel with hidden background, got a=%d", a)
	}
}

func TestRasterizeCropsToRegion(t *testing.T) {
	s := surface.New(200, 200)
	_ = s.Add(redRect(t, 100, 100, 40, 40))

	region := geom.EditableArea{Left: 100, Top: 100, Width: 40, Height: 40}
	img, err := s.Rasterize(region, 1)
	if err != nil {
		t.Fatalf("rasterize failed: %v", err)
	}
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 40 {
		t.Fatalf("unexpected crop size %v", img.Bounds())
	}
	r, _, _, a := img.At(20, 20).RGBA()
	if r>>8 < 200 || a>>8 != 255 {
		t.Fatalf("expected shape to fill the crop, got r=%d a=%d", r>>8, a>>8)
	}
}

func TestRasterizeSkipsHiddenObjects(t *testing.T) {
	s := surface.New(40, 40)
	obj := redRect(t, 0, 0, 40, 40)
	obj.Visible = false
	_ = s.Add(obj)

	img, err := s.Rasterize(geom.EditableArea{Width: 40, Height: 40}, 1)
	if err != nil {
		t.Fatalf("rasterize failed: %v", err)
	}
	if _, _, _, a := img.At(20, 20).RGBA(); a != 0 {
		t.Fatalf("hidden object leaked into output")
	}
}

func TestRasterizeFailsOnMissingPixels(t *testing.T) {
	s := surface.New(40, 40)
	obj, _ := scene.New(scene.KindImage, nil)
	obj.Image.NaturalWidth = 10
	obj.Image.NaturalHeight = 10
	_ = s.Add(obj)

	if _, err := s.Rasterize(geom.EditableArea{Width: 40, Height: 40}, 1); err == nil {
		t.Fatalf("expected error for image object without pixels")
	}
}

func TestVectorCanvasSize(t *testing.T) {
	s := surface.New(100, 50)
	c, err := s.VectorCanvas(geom.EditableArea{Left: 10, Top: 10, Width: 80, Height: 30})
	if err != nil {
		t.Fatalf("vector canvas failed: %v", err)
	}
	if c.W != 80 || c.H != 30 {
		t.Fatalf("unexpected canvas size %gx%g", c.W, c.H)
	}
}
