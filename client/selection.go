package client

import (
	"github.com/vexnetworkgroup/BoardJS/internal/domain"
)

// Rect 是世界坐标中的轴对齐矩形。
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// normalized 返回 min/max 排序正确的矩形（拖出的框可能反向）。
func (r Rect) normalized() Rect {
	if r.MinX > r.MaxX {
		r.MinX, r.MaxX = r.MaxX, r.MinX
	}
	if r.MinY > r.MaxY {
		r.MinY, r.MaxY = r.MaxY, r.MinY
	}
	return r
}

// Contains 判断点是否落在矩形内。
func (r Rect) Contains(p domain.Point) bool {
	n := r.normalized()
	return p.X >= n.MinX && p.X <= n.MaxX && p.Y >= n.MinY && p.Y <= n.MaxY
}

// intersects 判断两个矩形是否相交。
func (r Rect) intersects(minX, minY, maxX, maxY float64) bool {
	n := r.normalized()
	return n.MinX <= maxX && n.MaxX >= minX && n.MinY <= maxY && n.MaxY >= minY
}

// Selection 实现框选与选中笔画的拖拽平移。
// 入选判定是包围盒相交（不要求完全包含）。
// 拖拽期间位移只应用到本地并累计；释放时通过引擎发送
// 唯一一条聚合的 update-strokes。坐标全部是世界坐标，
// 调用方负责先用 Camera.ScreenToWorld 换算。
type Selection struct {
	engine *Engine

	ids []string // 当前选中的笔画

	marquee    bool // 正在拖框
	dragging   bool // 正在拖动选中笔画
	anchor     domain.Point
	last       domain.Point
	rect       Rect
	accX, accY float64
}

// NewSelection 创建选择控制器。
func NewSelection(engine *Engine) *Selection {
	if engine == nil {
		panic("Engine cannot be nil for Selection")
	}
	return &Selection{engine: engine}
}

// IDs 返回当前选中的笔画 id 副本。
func (s *Selection) IDs() []string {
	return append([]string(nil), s.ids...)
}

// Active 报告当前是否有选中的笔画。
func (s *Selection) Active() bool { return len(s.ids) > 0 }

// Clear 取消选择。
func (s *Selection) Clear() {
	s.ids = nil
	s.marquee = false
	s.dragging = false
}

// PointerDown 处理按下：
// 落在已有选区包围盒内开始拖动，否则开始新的框选。
func (s *Selection) PointerDown(p domain.Point) {
	s.anchor = p
	s.last = p

	if s.Active() && s.boundsOfSelected().Contains(p) {
		s.dragging = true
		s.accX, s.accY = 0, 0
		return
	}

	s.ids = nil
	s.marquee = true
	s.rect = Rect{MinX: p.X, MinY: p.Y, MaxX: p.X, MaxY: p.Y}
}

// PointerMove 处理移动：
// 拖动中把增量实时应用到本地笔画；框选中更新矩形。
func (s *Selection) PointerMove(p domain.Point) {
	switch {
	case s.dragging:
		dx := p.X - s.last.X
		dy := p.Y - s.last.Y
		s.engine.translateLocal(s.ids, dx, dy)
		s.accX += dx
		s.accY += dy
		s.last = p
	case s.marquee:
		s.rect.MaxX = p.X
		s.rect.MaxY = p.Y
	}
}

// PointerUp 处理释放：
// 结束拖动时提交累计位移（恰好一条网络消息）；
// 结束框选时按包围盒相交确定选中集合。
func (s *Selection) PointerUp(p domain.Point) {
	switch {
	case s.dragging:
		s.dragging = false
		s.engine.CommitMove(s.ids, s.accX, s.accY)
		s.accX, s.accY = 0, 0
	case s.marquee:
		s.marquee = false
		s.rect.MaxX = p.X
		s.rect.MaxY = p.Y
		s.ids = s.hitTest(s.rect)
	}
}

// Marquee 返回进行中的框选矩形；没有框选时 ok 为 false。
func (s *Selection) Marquee() (Rect, bool) {
	return s.rect.normalized(), s.marquee
}

// hitTest 返回包围盒与矩形相交的所有笔画 id。
func (s *Selection) hitTest(r Rect) []string {
	var hit []string
	for id, stroke := range s.engine.Strokes() {
		if len(stroke.Points) == 0 {
			continue
		}
		minX, minY, maxX, maxY := stroke.BoundingBox()
		if r.intersects(minX, minY, maxX, maxY) {
			hit = append(hit, id)
		}
	}
	return hit
}

// boundsOfSelected 返回当前选中笔画的联合包围盒。
// 选中笔画可能已被远端删除，存活的才参与计算。
func (s *Selection) boundsOfSelected() Rect {
	first := true
	var r Rect
	for _, id := range s.ids {
		stroke, ok := s.engine.Stroke(id)
		if !ok || len(stroke.Points) == 0 {
			continue
		}
		minX, minY, maxX, maxY := stroke.BoundingBox()
		if first {
			r = Rect{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
			first = false
			continue
		}
		if minX < r.MinX {
			r.MinX = minX
		}
		if minY < r.MinY {
			r.MinY = minY
		}
		if maxX > r.MaxX {
			r.MaxX = maxX
		}
		if maxY > r.MaxY {
			r.MaxY = maxY
		}
	}
	return r
}
