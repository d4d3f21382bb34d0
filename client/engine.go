// Package client 实现画板的客户端引擎：乐观编辑与服务端回声的对账、
// 撤销/重做、框选与拖拽平移、视口变换，以及 WebSocket 传输。
//
// 所有用户编辑都先应用到本地状态（乐观更新），再异步发送给服务端；
// 服务端的权威广播到达后以幂等方式再次应用。本地乐观路径和
// 网络接收路径共享笔画状态，由引擎内部的互斥锁串行化。
package client

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/vexnetworkgroup/BoardJS/internal/domain"
	"github.com/vexnetworkgroup/BoardJS/internal/dto"
)

// Sender 抽象了到服务端的单向消息通道。
// 发送是 fire-and-forget：没有确认也没有重试。
type Sender interface {
	Send(msg dto.ClientMessage)
}

// Engine 维护客户端的本地笔画状态。
type Engine struct {
	mu      sync.Mutex
	roomID  string
	strokes map[string]domain.Stroke
	sender  Sender
	history *History
}

// NewEngine 创建引擎。initial 通常来自 room-joined 返回的画板文档，
// 可以为 nil。
func NewEngine(roomID string, sender Sender, initial map[string]domain.Stroke) *Engine {
	if sender == nil {
		panic("Sender cannot be nil for Engine")
	}
	strokes := make(map[string]domain.Stroke, len(initial))
	for id, s := range initial {
		strokes[id] = s
	}
	return &Engine{
		roomID:  roomID,
		strokes: strokes,
		sender:  sender,
		history: NewHistory(),
	}
}

// Strokes 返回当前笔画状态的副本，供渲染路径使用。
func (e *Engine) Strokes() map[string]domain.Stroke {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]domain.Stroke, len(e.strokes))
	for id, s := range e.strokes {
		out[id] = s
	}
	return out
}

// Stroke 返回单条笔画；不存在时 ok 为 false。
func (e *Engine) Stroke(id string) (domain.Stroke, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.strokes[id]
	return s, ok
}

// History 返回引擎的撤销/重做栈。
func (e *Engine) History() *History { return e.history }

// --- 本地编辑（乐观路径） ---

// FinishStroke 完成一条笔画的绘制。
// 不足 2 个点的笔画在本地丢弃，不发送给服务端。
// 本地生成的 id 会原样出现在服务端回声中，记录无需替换。
func (e *Engine) FinishStroke(stroke domain.Stroke) {
	if len(stroke.Points) < 2 {
		logrus.Debug("Discarding stroke with fewer than 2 points")
		return
	}
	if stroke.ID == "" {
		stroke.ID = newLocalStrokeID()
	}

	e.mu.Lock()
	e.strokes[stroke.ID] = stroke
	e.history.record(historyEntry{kind: entryAdd, strokeID: stroke.ID})
	e.mu.Unlock()

	s := stroke
	e.sender.Send(dto.ClientMessage{Type: dto.MsgAddStroke, RoomID: e.roomID, Stroke: &s})
}

// EraseStroke 删除一条笔画（乐观删除）。
// 本地不存在的 id 是空操作，不发送。
func (e *Engine) EraseStroke(id string) {
	e.mu.Lock()
	stroke, ok := e.strokes[id]
	if !ok {
		e.mu.Unlock()
		return
	}
	delete(e.strokes, id)
	e.history.record(historyEntry{kind: entryDelete, strokeID: id, stroke: stroke})
	e.mu.Unlock()

	e.sender.Send(dto.ClientMessage{Type: dto.MsgDeleteStroke, RoomID: e.roomID, StrokeID: id})
}

// EraseAt 删除命中给定圆形区域（世界坐标）的所有笔画。
// radius 应已按当前缩放换算为世界单位（见 Camera.ScaleToWorld）。
func (e *Engine) EraseAt(p domain.Point, radius float64) {
	e.mu.Lock()
	var hit []string
	for id, s := range e.strokes {
		if strokeHit(s, p, radius) {
			hit = append(hit, id)
		}
	}
	e.mu.Unlock()

	for _, id := range hit {
		e.EraseStroke(id)
	}
}

// translateLocal 只更新本地副本，不发送也不记录历史。
// 拖拽过程中的实时反馈走这里；网络消息在释放时一次性发出。
func (e *Engine) translateLocal(ids []string, dx, dy float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range ids {
		if s, ok := e.strokes[id]; ok {
			e.strokes[id] = s.Translate(dx, dy)
		}
	}
}

// CommitMove 在拖拽释放时提交累计位移：
// 本地副本已就位，这里只记录历史并发送一条聚合的 update-strokes。
func (e *Engine) CommitMove(ids []string, dx, dy float64) {
	if len(ids) == 0 || (dx == 0 && dy == 0) {
		return
	}
	e.mu.Lock()
	e.history.record(historyEntry{kind: entryMove, strokeIDs: append([]string(nil), ids...), dx: dx, dy: dy})
	e.mu.Unlock()

	e.sender.Send(dto.ClientMessage{
		Type:      dto.MsgUpdateStrokes,
		RoomID:    e.roomID,
		StrokeIDs: ids,
		Dx:        dx,
		Dy:        dy,
	})
}

// Clear 清空本地画板并请求服务端清空。
// 服务端的 board-cleared 回声会再清空一次，幂等无害。
func (e *Engine) Clear() {
	e.mu.Lock()
	snapshot := e.strokes
	e.strokes = make(map[string]domain.Stroke)
	e.history.record(historyEntry{kind: entryClear, snapshot: snapshot})
	e.mu.Unlock()

	e.sender.Send(dto.ClientMessage{Type: dto.MsgClearBoard, RoomID: e.roomID})
}

// MoveCursor 广播光标位置（fire-and-forget，不参与对账）。
func (e *Engine) MoveCursor(p domain.Point) {
	pos := p
	e.sender.Send(dto.ClientMessage{Type: dto.MsgCursorMove, Pos: &pos})
}

// --- 服务端事件（权威路径，均为幂等应用） ---

// HandleNewStroke 应用权威的 new-stroke 广播。
// 自己发出的笔画携带相同 id，再次写入即原地确认。
func (e *Engine) HandleNewStroke(stroke *domain.Stroke) {
	if stroke == nil || stroke.ID == "" {
		return
	}
	e.mu.Lock()
	e.strokes[stroke.ID] = *stroke
	e.mu.Unlock()
}

// HandleStrokeDeleted 应用权威的 stroke-deleted 广播。
// 自己乐观删除过的 id 再删一次是空操作。
func (e *Engine) HandleStrokeDeleted(id string) {
	e.mu.Lock()
	delete(e.strokes, id)
	e.mu.Unlock()
}

// HandleStrokesUpdated 应用远端成员的平移增量。
// 服务端广播排除了发送者本人，不会出现二次平移。
func (e *Engine) HandleStrokesUpdated(ids []string, dx, dy float64) {
	e.translateLocal(ids, dx, dy)
}

// HandleBoardCleared 应用权威的 board-cleared 广播。
func (e *Engine) HandleBoardCleared() {
	e.mu.Lock()
	e.strokes = make(map[string]domain.Stroke)
	e.mu.Unlock()
}

// --- 私有辅助函数 ---

// strokeHit 判断笔画是否有点落在给定圆形区域内。
func strokeHit(s domain.Stroke, center domain.Point, radius float64) bool {
	r2 := radius * radius
	for _, p := range s.Points {
		dx := p.X - center.X
		dy := p.Y - center.Y
		if dx*dx+dy*dy <= r2 {
			return true
		}
	}
	return false
}

// newLocalStrokeID 生成本地笔画 id。
// 服务端保留客户端提供的 id，所以回声到达时无需换 id。
func newLocalStrokeID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		panic("failed to generate local stroke id")
	}
	return hex.EncodeToString(b)
}
