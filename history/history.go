// Package history 基于快照实现线性撤销/重做。
// 历史持有序列化副本而非活动引用，恢复某一条目不会被
// 之后对场景对象的直接修改所破坏。
package history

import (
	"fmt"
	"time"

	"github.com/ByLCY/imprint/surface"
)

// Entry 是一条历史记录：一份文档快照加上序号与时间戳。
type Entry struct {
	Seq      int
	At       time.Time
	Snapshot []byte
}

// History 维护有序的快照列表与游标。
// 状态机：空历史在首次提交时记录基线（下标 0），此后每次提交追加一条，
// 并截断游标之后的所有条目（线性模型，无重做分支）。
type History struct {
	surface *surface.Surface
	entries []Entry
	cursor  int
	seq     int

	// baseline 是挂接时的场景状态，首次提交时成为下标 0 的基线条目。
	baseline []byte

	// replaying 在快照恢复期间抑制提交，阻断
	// “应用快照 → 观察到变更 → 再记录快照”的死循环。
	replaying bool

	// commitErr 保存经由变更回调触发的最近一次提交的结果，
	// 回调本身无处返回错误，调用方通过 Err 检查。
	commitErr error
}

// Attach 把历史挂接到渲染面的变更观察点上。
func Attach(s *surface.Surface) (*History, error) {
	base, err := s.SnapshotJSON()
	if err != nil {
		return nil, fmt.Errorf("记录历史基线失败: %w", err)
	}
	h := &History{surface: s, baseline: base}
	s.SetChangeHook(func() { h.commitErr = h.Commit() })
	return h, nil
}

// Err 返回最近一次由变更回调触发的提交错误；下一次成功提交后清空。
func (h *History) Err() error { return h.commitErr }

// Len 返回条目数，Cursor 返回当前游标（空历史时为 -1）。
func (h *History) Len() int { return len(h.entries) }

func (h *History) Cursor() int {
	if len(h.entries) == 0 {
		return -1
	}
	return h.cursor
}

func (h *History) CanUndo() bool { return len(h.entries) > 0 && h.cursor > 0 }
func (h *History) CanRedo() bool { return len(h.entries) > 0 && h.cursor < len(h.entries)-1 }

// Commit 记录一次已提交的变更。恢复期间的重入调用被静默抑制。
func (h *History) Commit() error {
	if h.replaying {
		return nil
	}
	snap, err := h.surface.SnapshotJSON()
	if err != nil {
		return fmt.Errorf("记录历史快照失败: %w", err)
	}
	if len(h.entries) == 0 {
		// 首次提交：基线成为下标 0
		h.entries = append(h.entries, Entry{Seq: h.nextSeq(), At: time.Now(), Snapshot: h.baseline})
	} else {
		// 截断游标之后的条目（不保留重做分支）
		h.entries = h.entries[:h.cursor+1]
	}
	h.entries = append(h.entries, Entry{Seq: h.nextSeq(), At: time.Now(), Snapshot: snap})
	h.cursor = len(h.entries) - 1
	return nil
}

// Undo 回退一步。游标已在 0 或历史为空时为无操作。
// 快照损坏时报错并保持场景与游标不变。
func (h *History) Undo() error {
	if !h.CanUndo() {
		return nil
	}
	if err := h.restore(h.entries[h.cursor-1]); err != nil {
		return fmt.Errorf("撤销失败: %w", err)
	}
	h.cursor--
	return nil
}

// Redo 前进一步。游标已在末尾时为无操作。
func (h *History) Redo() error {
	if !h.CanRedo() {
		return nil
	}
	if err := h.restore(h.entries[h.cursor+1]); err != nil {
		return fmt.Errorf("重做失败: %w", err)
	}
	h.cursor++
	return nil
}

// restore 应用一条历史快照。标记与底图不在快照内，
// 由渲染面的恢复逻辑显式保留。
func (h *History) restore(entry Entry) error {
	h.replaying = true
	defer func() { h.replaying = false }()
	return h.surface.Restore(entry.Snapshot)
}

func (h *History) nextSeq() int {
	h.seq++
	return h.seq
}
