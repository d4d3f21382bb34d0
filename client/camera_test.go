package client_test // 测试包

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vexnetworkgroup/BoardJS/client"
	"github.com/vexnetworkgroup/BoardJS/internal/domain"
)

const epsilon = 1e-9

func assertPointNear(t *testing.T, expected, actual domain.Point) {
	t.Helper()
	assert.InDelta(t, expected.X, actual.X, epsilon)
	assert.InDelta(t, expected.Y, actual.Y, epsilon)
}

func TestCamera_WorldScreenRoundTrip(t *testing.T) {
	// Arrange
	camera := client.NewCamera()
	camera.Pan(100, 50)
	camera.WheelZoom(-1, domain.Point{X: 0, Y: 0})

	// Act & Assert: 变换和逆变换互逆
	world := domain.Point{X: 37.5, Y: -12.25}
	assertPointNear(t, world, camera.ScreenToWorld(camera.WorldToScreen(world)))
}

func TestCamera_PanShiftsViewport(t *testing.T) {
	// Arrange
	camera := client.NewCamera()
	world := domain.Point{X: 10, Y: 10}
	before := camera.WorldToScreen(world)

	// Act
	camera.Pan(30, -20)

	// Assert: 平移只移动屏幕位置，不改变缩放
	after := camera.WorldToScreen(world)
	assert.InDelta(t, before.X+30, after.X, epsilon)
	assert.InDelta(t, before.Y-20, after.Y, epsilon)
	assert.Equal(t, 1.0, camera.Zoom)
}

func TestCamera_WheelZoomKeepsAnchorFixed(t *testing.T) {
	// Arrange: 指针悬停在屏幕 (200, 150)
	camera := client.NewCamera()
	camera.Pan(40, 40)
	anchor := domain.Point{X: 200, Y: 150}
	worldUnderPointer := camera.ScreenToWorld(anchor)

	// Act: 滚轮向上放大
	camera.WheelZoom(-120, anchor)

	// Assert: 指针下方的世界点缩放前后不动
	assert.Greater(t, camera.Zoom, 1.0, "向上滚动应放大")
	assertPointNear(t, worldUnderPointer, camera.ScreenToWorld(anchor))
}

func TestCamera_WheelZoomOutKeepsAnchorFixed(t *testing.T) {
	// Arrange
	camera := client.NewCamera()
	anchor := domain.Point{X: 320, Y: 240}
	worldUnderPointer := camera.ScreenToWorld(anchor)

	// Act: 滚轮向下缩小
	camera.WheelZoom(120, anchor)

	// Assert
	assert.Less(t, camera.Zoom, 1.0, "向下滚动应缩小")
	assertPointNear(t, worldUnderPointer, camera.ScreenToWorld(anchor))
}

func TestCamera_ZoomClampedToLimits(t *testing.T) {
	// Arrange
	camera := client.NewCamera()
	anchor := domain.Point{X: 0, Y: 0}

	// Act: 疯狂缩小
	for i := 0; i < 100; i++ {
		camera.WheelZoom(120, anchor)
	}
	assert.Equal(t, camera.MinZoom, camera.Zoom, "缩放应被夹在下限")

	// Act: 疯狂放大
	for i := 0; i < 200; i++ {
		camera.WheelZoom(-120, anchor)
	}
	assert.Equal(t, camera.MaxZoom, camera.Zoom, "缩放应被夹在上限")
}

func TestCamera_PinchZoomAnchorsAtMidpoint(t *testing.T) {
	// Arrange: 双指按在屏幕上，中点 (150, 150)
	camera := client.NewCamera()
	p1 := domain.Point{X: 100, Y: 150}
	p2 := domain.Point{X: 200, Y: 150}
	mid := domain.Point{X: 150, Y: 150}
	worldUnderMid := camera.ScreenToWorld(mid)

	// Act: 两指分开到 2 倍间距（中点不动）
	camera.PinchStart(p1, p2)
	camera.PinchMove(domain.Point{X: 50, Y: 150}, domain.Point{X: 250, Y: 150})
	camera.PinchEnd()

	// Assert: 缩放按间距比例，中点下方的世界点不动
	assert.InDelta(t, 2.0, camera.Zoom, epsilon)
	assertPointNear(t, worldUnderMid, camera.ScreenToWorld(mid))
}

func TestCamera_PinchFollowsMidpointMovement(t *testing.T) {
	// Arrange
	camera := client.NewCamera()
	p1 := domain.Point{X: 100, Y: 100}
	p2 := domain.Point{X: 200, Y: 100}
	worldUnderMid := camera.ScreenToWorld(domain.Point{X: 150, Y: 100})

	// Act: 间距不变，两指整体右移 60（纯平移）
	camera.PinchStart(p1, p2)
	camera.PinchMove(domain.Point{X: 160, Y: 100}, domain.Point{X: 260, Y: 100})

	// Assert: 原中点下方的世界点跟到了新中点
	assert.InDelta(t, 1.0, camera.Zoom, epsilon)
	assertPointNear(t, worldUnderMid, camera.ScreenToWorld(domain.Point{X: 210, Y: 100}))
}

func TestCamera_ScaleToWorldTracksZoom(t *testing.T) {
	// Arrange: 橡皮擦在屏幕上半径 20 像素
	camera := client.NewCamera()

	// Act & Assert: 缩放 1.0 时世界半径等于屏幕半径
	assert.InDelta(t, 20.0, camera.ScaleToWorld(20), epsilon)

	// 放大一倍后，同样的屏幕半径对应一半的世界半径
	camera.PinchStart(domain.Point{X: 0, Y: 0}, domain.Point{X: 100, Y: 0})
	camera.PinchMove(domain.Point{X: 0, Y: 0}, domain.Point{X: 200, Y: 0})
	assert.InDelta(t, 10.0, camera.ScaleToWorld(20), epsilon)
}
