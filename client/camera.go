package client

import (
	"math"

	"github.com/vexnetworkgroup/BoardJS/internal/domain"
)

// 缩放限制与滚轮步长
const (
	defaultMinZoom   = 0.1
	defaultMaxZoom   = 10.0
	defaultWheelStep = 0.1
)

// Camera 实现视口变换：screen = world*zoom + offset。
// 画板本身是无限平面，相机只决定可见窗口。
type Camera struct {
	X, Y    float64 // 屏幕空间偏移
	Zoom    float64
	MinZoom float64
	MaxZoom float64

	wheelStep float64

	// 双指缩放的中间状态
	pinching bool
	pinchMid domain.Point
	pinchLen float64
}

// NewCamera 创建默认相机：无偏移、缩放 1.0。
func NewCamera() *Camera {
	return &Camera{
		Zoom:      1.0,
		MinZoom:   defaultMinZoom,
		MaxZoom:   defaultMaxZoom,
		wheelStep: defaultWheelStep,
	}
}

// WorldToScreen 把世界坐标换算到屏幕坐标。
func (c *Camera) WorldToScreen(p domain.Point) domain.Point {
	return domain.Point{X: p.X*c.Zoom + c.X, Y: p.Y*c.Zoom + c.Y}
}

// ScreenToWorld 把屏幕坐标换算到世界坐标。
// 笔画、橡皮擦命中、框选都在世界坐标里进行。
func (c *Camera) ScreenToWorld(p domain.Point) domain.Point {
	return domain.Point{X: (p.X - c.X) / c.Zoom, Y: (p.Y - c.Y) / c.Zoom}
}

// ScaleToWorld 把屏幕空间长度换算为世界单位。
// 橡皮擦半径、网格间距等视觉上固定的尺寸用它保持不变。
func (c *Camera) ScaleToWorld(screenLen float64) float64 {
	return screenLen / c.Zoom
}

// Pan 按屏幕空间增量平移视口。
func (c *Camera) Pan(dx, dy float64) {
	c.X += dx
	c.Y += dy
}

// WheelZoom 处理滚轮缩放：缩放因子为 exp(-sign(deltaY)*k)，
// 向上滚（deltaY < 0）放大。anchor 是指针的屏幕坐标，
// 缩放前后指针下方的世界点保持不动。
func (c *Camera) WheelZoom(deltaY float64, anchor domain.Point) {
	if deltaY == 0 {
		return
	}
	factor := math.Exp(c.wheelStep)
	if deltaY > 0 {
		factor = math.Exp(-c.wheelStep)
	}
	c.zoomAt(c.Zoom*factor, anchor)
}

// PinchStart 开始双指缩放，记录两指的初始中点与间距。
func (c *Camera) PinchStart(p1, p2 domain.Point) {
	c.pinching = true
	c.pinchMid = midpoint(p1, p2)
	c.pinchLen = distance(p1, p2)
}

// PinchMove 处理双指移动：按两指间距比例缩放（锚定在中点），
// 并跟随中点的移动平移视口。
func (c *Camera) PinchMove(p1, p2 domain.Point) {
	if !c.pinching || c.pinchLen == 0 {
		return
	}
	mid := midpoint(p1, p2)
	length := distance(p1, p2)

	c.zoomAt(c.Zoom*(length/c.pinchLen), c.pinchMid)
	c.Pan(mid.X-c.pinchMid.X, mid.Y-c.pinchMid.Y)

	c.pinchMid = mid
	c.pinchLen = length
}

// PinchEnd 结束双指缩放。
func (c *Camera) PinchEnd() {
	c.pinching = false
}

// zoomAt 把缩放设置为 target（夹在 [MinZoom, MaxZoom] 内），
// 同时调整偏移使 anchor 下方的世界点位置不变。
func (c *Camera) zoomAt(target float64, anchor domain.Point) {
	target = math.Min(math.Max(target, c.MinZoom), c.MaxZoom)
	if target == c.Zoom {
		return
	}
	world := c.ScreenToWorld(anchor)
	c.Zoom = target
	c.X = anchor.X - world.X*c.Zoom
	c.Y = anchor.Y - world.Y*c.Zoom
}

func midpoint(p1, p2 domain.Point) domain.Point {
	return domain.Point{X: (p1.X + p2.X) / 2, Y: (p1.Y + p2.Y) / 2}
}

func distance(p1, p2 domain.Point) float64 {
	return math.Hypot(p2.X-p1.X, p2.Y-p1.Y)
}
