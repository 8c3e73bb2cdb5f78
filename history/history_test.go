package history

import (
	"math"
	"testing"

	"github.com/ByLCY/imprint/scene"
	"github.com/ByLCY/imprint/surface"
)

func addShape(t *testing.T, s *surface.Surface) *scene.Object {
	t.Helper()
	obj, err := scene.New(scene.KindShape, nil)
	if err != nil {
		t.Fatalf("create shape failed: %v", err)
	}
	if err := s.Add(obj); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	return obj
}

func TestUndoRedoScenario(t *testing.T) {
	s := surface.New(200, 200)
	h, err := Attach(s)
	if err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	if h.Len() != 0 || h.Cursor() != -1 {
		t.Fatalf("fresh history must be empty, len=%d cursor=%d", h.Len(), h.Cursor())
	}
	if h.CanUndo() || h.CanRedo() {
		t.Fatalf("fresh history must not offer undo or redo")
	}

	// 两次提交：基线 + 两个状态
	addShape(t, s)
	if h.Len() != 2 || h.Cursor() != 1 {
		t.Fatalf("after first commit: len=%d cursor=%d", h.Len(), h.Cursor())
	}
	addShape(t, s)
	if h.Len() != 3 || h.Cursor() != 2 {
		t.Fatalf("after second commit: len=%d cursor=%d", h.Len(), h.Cursor())
	}

	// N 次变更之后历史长度为 N+1
	if h.Len() != 3 {
		t.Fatalf("expected N+1 entries, got %d", h.Len())
	}

	if err := h.Undo(); err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	if len(s.Objects()) != 1 || h.Cursor() != 1 {
		t.Fatalf("after undo: objects=%d cursor=%d", len(s.Objects()), h.Cursor())
	}

	if err := h.Undo(); err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	if len(s.Objects()) != 0 || h.Cursor() != 0 {
		t.Fatalf("after second undo: objects=%d cursor=%d", len(s.Objects()), h.Cursor())
	}

	// 游标在起点：撤销是无操作
	if err := h.Undo(); err != nil {
		t.Fatalf("undo at base errored: %v", err)
	}
	if h.Cursor() != 0 {
		t.Fatalf("undo at base moved the cursor to %d", h.Cursor())
	}

	if err := h.Redo(); err != nil {
		t.Fatalf("redo failed: %v", err)
	}
	if len(s.Objects()) != 1 || h.Cursor() != 1 {
		t.Fatalf("after redo: objects=%d cursor=%d", len(s.Objects()), h.Cursor())
	}
}

func TestRedoAtTipIsNoop(t *testing.T) {
	s := surface.New(200, 200)
	h, _ := Attach(s)
	addShape(t, s)

	if err := h.Redo(); err != nil {
		t.Fatalf("redo at tip errored: %v", err)
	}
	if h.Cursor() != 1 || len(s.Objects()) != 1 {
		t.Fatalf("redo at tip mutated state: cursor=%d objects=%d", h.Cursor(), len(s.Objects()))
	}
}

func TestCommitTruncatesRedoBranch(t *testing.T) {
	s := surface.New(200, 200)
	h, _ := Attach(s)
	obj := addShape(t, s)
	addShape(t, s)

	if err := h.Undo(); err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	if !h.CanRedo() {
		t.Fatalf("expected redo branch before new commit")
	}

	// 新提交截断重做分支
	if err := s.Move(obj.ID, 99, 99); err != nil {
		t.Fatalf("move failed: %v", err)
	}
	if h.CanRedo() {
		t.Fatalf("redo branch survived a new commit")
	}
	if h.Len() != 3 || h.Cursor() != 2 {
		t.Fatalf("after truncating commit: len=%d cursor=%d", h.Len(), h.Cursor())
	}
}

func TestRestoreDoesNotRecordNewEntries(t *testing.T) {
	s := surface.New(200, 200)
	h, _ := Attach(s)
	addShape(t, s)
	addShape(t, s)

	before := h.Len()
	if err := h.Undo(); err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	if err := h.Redo(); err != nil {
		t.Fatalf("redo failed: %v", err)
	}
	if h.Len() != before {
		t.Fatalf("restore recorded new entries: %d -> %d", before, h.Len())
	}
}

func TestCorruptEntryLeavesStateIntact(t *testing.T) {
	s := surface.New(200, 200)
	h, _ := Attach(s)
	addShape(t, s)
	addShape(t, s)

	// 人为破坏目标条目
	h.entries[1].Snapshot = []byte(`{"objects":[`)

	if err := h.Undo(); err == nil {
		t.Fatalf("expected error for corrupt snapshot")
	}
	if h.Cursor() != 2 {
		t.Fatalf("cursor moved despite failed undo: %d", h.Cursor())
	}
	if len(s.Objects()) != 2 {
		t.Fatalf("scene mutated despite failed undo: %d objects", len(s.Objects()))
	}
}

func TestHookCommitErrorSurfacesViaErr(t *testing.T) {
	s := surface.New(200, 200)
	h, _ := Attach(s)
	obj := addShape(t, s)
	if h.Err() != nil {
		t.Fatalf("unexpected commit error: %v", h.Err())
	}

	// NaN 无法序列化为 JSON，提交在快照阶段失败
	if err := s.SetProperty(obj.ID, "left", math.NaN()); err != nil {
		t.Fatalf("set property failed: %v", err)
	}
	if h.Err() == nil {
		t.Fatalf("failed commit must surface through Err")
	}

	// 下一次成功提交清空错误
	if err := s.SetProperty(obj.ID, "left", 5.0); err != nil {
		t.Fatalf("set property failed: %v", err)
	}
	if h.Err() != nil {
		t.Fatalf("Err not cleared after successful commit: %v", h.Err())
	}
}

func TestHistoryIgnoresSystemLayers(t *testing.T) {
	s := surface.New(200, 200)
	marker := &scene.Object{
		ID:      scene.MarkerName,
		Kind:    scene.KindShape,
		Name:    scene.MarkerName,
		Visible: true,
		Shape:   &scene.ShapeProps{Geometry: "rect", Width: 50, Height: 50},
	}
	_ = s.Add(marker)

	h, _ := Attach(s)
	addShape(t, s)
	if err := h.Undo(); err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	// 撤销清空用户对象，但标记保留
	if len(s.Objects()) != 0 {
		t.Fatalf("expected empty layer list, got %d", len(s.Objects()))
	}
	if _, ok := s.Marker(); !ok {
		t.Fatalf("marker lost across undo")
	}
}
