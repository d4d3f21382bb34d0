package client_test // 测试包

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vexnetworkgroup/BoardJS/client"
	"github.com/vexnetworkgroup/BoardJS/internal/domain"
	"github.com/vexnetworkgroup/BoardJS/internal/dto"
)

// captureSender 收集引擎发出的全部消息，供断言。
type captureSender struct {
	mu   sync.Mutex
	sent []dto.ClientMessage
}

func (s *captureSender) Send(msg dto.ClientMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
}

func (s *captureSender) messages() []dto.ClientMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]dto.ClientMessage(nil), s.sent...)
}

func (s *captureSender) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = nil
}

func twoPointStroke(id string, x, y float64) domain.Stroke {
	return domain.Stroke{
		ID:     id,
		Color:  "#000000",
		Size:   2,
		Points: []domain.Point{{X: x, Y: y}, {X: x + 10, Y: y + 10}},
	}
}

// --- 乐观编辑 ---

func TestEngine_FinishStroke_AppliesLocallyAndSends(t *testing.T) {
	// Arrange
	sender := &captureSender{}
	engine := client.NewEngine("ABC123", sender, nil)

	// Act
	engine.FinishStroke(twoPointStroke("s1", 0, 0))

	// Assert: 本地先生效，再异步发送
	_, ok := engine.Stroke("s1")
	assert.True(t, ok, "笔画应立即出现在本地状态中")

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, dto.MsgAddStroke, msgs[0].Type)
	assert.Equal(t, "ABC123", msgs[0].RoomID)
	require.NotNil(t, msgs[0].Stroke)
	assert.Equal(t, "s1", msgs[0].Stroke.ID)
}

func TestEngine_FinishStroke_DiscardsDegenerateStroke(t *testing.T) {
	// Arrange: 不足 2 个点的笔画（比如原地点击）
	sender := &captureSender{}
	engine := client.NewEngine("ABC123", sender, nil)

	// Act
	engine.FinishStroke(domain.Stroke{ID: "dot", Points: []domain.Point{{X: 1, Y: 1}}})

	// Assert: 本地丢弃，不发送
	_, ok := engine.Stroke("dot")
	assert.False(t, ok)
	assert.Empty(t, sender.messages())
}

func TestEngine_FinishStroke_GeneratesLocalID(t *testing.T) {
	// Arrange
	sender := &captureSender{}
	engine := client.NewEngine("ABC123", sender, nil)

	// Act
	engine.FinishStroke(domain.Stroke{Points: []domain.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}})

	// Assert
	msgs := sender.messages()
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].Stroke)
	assert.Len(t, msgs[0].Stroke.ID, 16, "本地生成的笔画 id 应为 16 个十六进制字符")
}

func TestEngine_EraseStroke_AbsentIsNoOp(t *testing.T) {
	// Arrange
	sender := &captureSender{}
	engine := client.NewEngine("ABC123", sender, nil)

	// Act
	engine.EraseStroke("ghost")

	// Assert: 本地没有的笔画不发送删除
	assert.Empty(t, sender.messages())
}

func TestEngine_EraseAt_RemovesHitStrokes(t *testing.T) {
	// Arrange: 一条在命中范围内，一条在远处
	sender := &captureSender{}
	initial := map[string]domain.Stroke{
		"near": twoPointStroke("near", 0, 0),
		"far":  twoPointStroke("far", 1000, 1000),
	}
	engine := client.NewEngine("ABC123", sender, initial)

	// Act
	engine.EraseAt(domain.Point{X: 1, Y: 1}, 5)

	// Assert
	_, nearOK := engine.Stroke("near")
	_, farOK := engine.Stroke("far")
	assert.False(t, nearOK, "命中的笔画应被删除")
	assert.True(t, farOK, "范围外的笔画应保留")

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, dto.MsgDeleteStroke, msgs[0].Type)
	assert.Equal(t, "near", msgs[0].StrokeID)
}

// --- 服务端回声对账（幂等） ---

func TestEngine_HandleNewStroke_EchoConfirmsInPlace(t *testing.T) {
	// Arrange: 自己的乐观添加已在本地
	sender := &captureSender{}
	engine := client.NewEngine("ABC123", sender, nil)
	stroke := twoPointStroke("s1", 0, 0)
	engine.FinishStroke(stroke)

	// Act: 服务端回声携带相同 id
	echo := stroke
	engine.HandleNewStroke(&echo)

	// Assert: 原地确认，笔画总数不变
	assert.Len(t, engine.Strokes(), 1)
}

func TestEngine_HandleStrokeDeleted_Idempotent(t *testing.T) {
	// Arrange: 本地已乐观删除
	sender := &captureSender{}
	engine := client.NewEngine("ABC123", sender, map[string]domain.Stroke{"s1": twoPointStroke("s1", 0, 0)})
	engine.EraseStroke("s1")

	// Act: 回声再删一次
	engine.HandleStrokeDeleted("s1")
	engine.HandleStrokeDeleted("s1")

	// Assert
	assert.Empty(t, engine.Strokes())
}

func TestEngine_HandleStrokesUpdated_AppliesRemoteDelta(t *testing.T) {
	// Arrange
	sender := &captureSender{}
	engine := client.NewEngine("ABC123", sender, map[string]domain.Stroke{"s1": twoPointStroke("s1", 0, 0)})

	// Act: 远端成员的平移（服务端广播排除了发送者本人）
	engine.HandleStrokesUpdated([]string{"s1", "ghost"}, 5, 5)

	// Assert: 存在的平移，缺失的跳过
	s, ok := engine.Stroke("s1")
	require.True(t, ok)
	assert.Equal(t, domain.Point{X: 5, Y: 5}, s.Points[0])
}

func TestEngine_HandleBoardCleared_Idempotent(t *testing.T) {
	// Arrange
	sender := &captureSender{}
	engine := client.NewEngine("ABC123", sender, map[string]domain.Stroke{"s1": twoPointStroke("s1", 0, 0)})

	// Act
	engine.HandleBoardCleared()
	engine.HandleBoardCleared()

	// Assert
	assert.Empty(t, engine.Strokes())
}

// --- 并发：渲染路径与网络路径共享状态 ---

func TestEngine_ConcurrentLocalAndRemoteEdits(t *testing.T) {
	// Arrange
	sender := &captureSender{}
	engine := client.NewEngine("ABC123", sender, nil)

	// Act: 本地编辑和远端回声并发执行，不应竞争
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			engine.FinishStroke(domain.Stroke{Points: []domain.Point{{X: float64(i), Y: 0}, {X: float64(i), Y: 1}}})
		}(i)
		go func(i int) {
			defer wg.Done()
			remote := twoPointStroke("remote", float64(i), float64(i))
			engine.HandleNewStroke(&remote)
			engine.Strokes()
		}(i)
	}
	wg.Wait()

	// Assert: 20 条本地笔画 + 1 条远端笔画
	assert.Len(t, engine.Strokes(), 21)
}
