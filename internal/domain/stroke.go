package domain

// Point 表示世界坐标系中的一个点。
// 世界坐标独立于客户端当前的平移/缩放状态。
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke 表示一条笔画：带颜色和笔宽的有序点序列。
// 一条可见笔画至少包含 2 个点。
type Stroke struct {
	ID     string  `json:"id"`     // 唯一标识，客户端生成或服务端分配
	Color  string  `json:"color"`  // 例如 "#FF0000"
	Size   float64 `json:"size"`   // 笔宽（世界单位）
	Points []Point `json:"points"` // 有序点序列
}

// Translate 返回整体平移 (dx, dy) 之后的笔画副本。
// 不修改接收者，调用方负责写回。
func (s Stroke) Translate(dx, dy float64) Stroke {
	moved := make([]Point, len(s.Points))
	for i, p := range s.Points {
		moved[i] = Point{X: p.X + dx, Y: p.Y + dy}
	}
	s.Points = moved
	return s
}

// BoundingBox 返回笔画的轴对齐包围盒 (minX, minY, maxX, maxY)。
// 空笔画返回全零。
func (s Stroke) BoundingBox() (minX, minY, maxX, maxY float64) {
	if len(s.Points) == 0 {
		return 0, 0, 0, 0
	}
	minX, maxX = s.Points[0].X, s.Points[0].X
	minY, maxY = s.Points[0].Y, s.Points[0].Y
	for _, p := range s.Points[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return minX, minY, maxX, maxY
}
