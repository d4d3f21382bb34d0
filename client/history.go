package client

import (
	"github.com/sirupsen/logrus"

	"github.com/vexnetworkgroup/BoardJS/internal/domain"
	"github.com/vexnetworkgroup/BoardJS/internal/dto"
)

// entryKind 标识历史条目对应的编辑类型。
type entryKind int

const (
	entryAdd entryKind = iota
	entryDelete
	entryMove
	entryClear
)

// historyEntry 记录一次本地编辑，携带撤销它所需的数据：
//   - add:    笔画 id（撤销时现场抓取快照供重做）
//   - delete: 被删笔画的完整快照
//   - move:   id 列表和累计位移
//   - clear:  清空前整个笔画表的深快照
type historyEntry struct {
	kind      entryKind
	strokeID  string
	stroke    domain.Stroke
	strokeIDs []string
	dx, dy    float64
	snapshot  map[string]domain.Stroke
}

// History 是线性的撤销/重做栈，只追踪本地用户自己的编辑。
// 远端成员的编辑不入栈。栈操作必须经由 Engine 调用（引擎锁内）。
type History struct {
	undoStack []historyEntry
	redoStack []historyEntry
}

// NewHistory 创建空的历史栈。
func NewHistory() *History {
	return &History{}
}

// CanUndo 报告撤销栈是否非空。
func (h *History) CanUndo() bool { return len(h.undoStack) > 0 }

// CanRedo 报告重做栈是否非空。
func (h *History) CanRedo() bool { return len(h.redoStack) > 0 }

// record 压入一条新编辑并清空重做栈。
// 任何新编辑都会让已撤销的分支失效，这是线性历史的定义。
func (h *History) record(e historyEntry) {
	h.undoStack = append(h.undoStack, e)
	h.redoStack = nil
}

// Undo 撤销最近一次本地编辑。
// 撤销产生的修改和普通编辑一样走乐观路径：先改本地，再发消息。
func (e *Engine) Undo() {
	e.mu.Lock()
	h := e.history
	if len(h.undoStack) == 0 {
		e.mu.Unlock()
		return
	}
	entry := h.undoStack[len(h.undoStack)-1]
	h.undoStack = h.undoStack[:len(h.undoStack)-1]

	var msgs []dto.ClientMessage
	redoable := true

	switch entry.kind {
	case entryAdd:
		// 撤销添加 = 删除；抓取当前快照，重做时按它恢复。
		// 笔画已被远端删除时撤销无事可做，条目直接丢弃，
		// 否则重做会把一条零点的空笔画发给服务端。
		if s, ok := e.strokes[entry.strokeID]; ok {
			entry.stroke = s
			delete(e.strokes, entry.strokeID)
			msgs = append(msgs, dto.ClientMessage{Type: dto.MsgDeleteStroke, RoomID: e.roomID, StrokeID: entry.strokeID})
		} else {
			redoable = false
		}
	case entryDelete:
		// 撤销删除 = 按快照恢复
		restored := entry.stroke
		e.strokes[entry.strokeID] = restored
		msgs = append(msgs, dto.ClientMessage{Type: dto.MsgAddStroke, RoomID: e.roomID, Stroke: &restored})
	case entryMove:
		// 撤销平移 = 反向位移
		for _, id := range entry.strokeIDs {
			if s, ok := e.strokes[id]; ok {
				e.strokes[id] = s.Translate(-entry.dx, -entry.dy)
			}
		}
		msgs = append(msgs, dto.ClientMessage{
			Type:      dto.MsgUpdateStrokes,
			RoomID:    e.roomID,
			StrokeIDs: entry.strokeIDs,
			Dx:        -entry.dx,
			Dy:        -entry.dy,
		})
	case entryClear:
		// 撤销清空 = 逐条重新添加，每条一个消息
		for id, s := range entry.snapshot {
			restored := s
			e.strokes[id] = restored
			msgs = append(msgs, dto.ClientMessage{Type: dto.MsgAddStroke, RoomID: e.roomID, Stroke: &restored})
		}
	}

	if redoable {
		h.redoStack = append(h.redoStack, entry)
	}
	e.mu.Unlock()

	for _, m := range msgs {
		e.sender.Send(m)
	}
	logrus.WithField("kind", entry.kind).Debug("Undo applied")
}

// Redo 重做最近一次被撤销的编辑。
func (e *Engine) Redo() {
	e.mu.Lock()
	h := e.history
	if len(h.redoStack) == 0 {
		e.mu.Unlock()
		return
	}
	entry := h.redoStack[len(h.redoStack)-1]
	h.redoStack = h.redoStack[:len(h.redoStack)-1]

	var msgs []dto.ClientMessage

	switch entry.kind {
	case entryAdd:
		restored := entry.stroke
		restored.ID = entry.strokeID
		e.strokes[entry.strokeID] = restored
		msgs = append(msgs, dto.ClientMessage{Type: dto.MsgAddStroke, RoomID: e.roomID, Stroke: &restored})
	case entryDelete:
		if _, ok := e.strokes[entry.strokeID]; ok {
			delete(e.strokes, entry.strokeID)
			msgs = append(msgs, dto.ClientMessage{Type: dto.MsgDeleteStroke, RoomID: e.roomID, StrokeID: entry.strokeID})
		}
	case entryMove:
		for _, id := range entry.strokeIDs {
			if s, ok := e.strokes[id]; ok {
				e.strokes[id] = s.Translate(entry.dx, entry.dy)
			}
		}
		msgs = append(msgs, dto.ClientMessage{
			Type:      dto.MsgUpdateStrokes,
			RoomID:    e.roomID,
			StrokeIDs: entry.strokeIDs,
			Dx:        entry.dx,
			Dy:        entry.dy,
		})
	case entryClear:
		e.strokes = make(map[string]domain.Stroke)
		msgs = append(msgs, dto.ClientMessage{Type: dto.MsgClearBoard, RoomID: e.roomID})
	}

	// 重做后条目回到撤销栈，但不清空重做栈
	h.undoStack = append(h.undoStack, entry)
	e.mu.Unlock()

	for _, m := range msgs {
		e.sender.Send(m)
	}
	logrus.WithField("kind", entry.kind).Debug("Redo applied")
}
