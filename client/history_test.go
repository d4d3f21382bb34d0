package client_test // 测试包

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vexnetworkgroup/BoardJS/client"
	"github.com/vexnetworkgroup/BoardJS/internal/domain"
	"github.com/vexnetworkgroup/BoardJS/internal/dto"
)

func TestHistory_UndoAdd_DeletesStroke(t *testing.T) {
	// Arrange
	sender := &captureSender{}
	engine := client.NewEngine("ABC123", sender, nil)
	engine.FinishStroke(twoPointStroke("s1", 0, 0))
	sender.reset()

	// Act
	engine.Undo()

	// Assert: 撤销添加 = 删除，走和普通删除一样的乐观路径
	_, ok := engine.Stroke("s1")
	assert.False(t, ok)
	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, dto.MsgDeleteStroke, msgs[0].Type)
	assert.Equal(t, "s1", msgs[0].StrokeID)
	assert.True(t, engine.History().CanRedo())
}

func TestHistory_RedoAdd_RestoresStroke(t *testing.T) {
	// Arrange
	sender := &captureSender{}
	engine := client.NewEngine("ABC123", sender, nil)
	engine.FinishStroke(twoPointStroke("s1", 3, 4))
	engine.Undo()
	sender.reset()

	// Act
	engine.Redo()

	// Assert: 重做按撤销时抓取的快照恢复，id 不变
	s, ok := engine.Stroke("s1")
	require.True(t, ok)
	assert.Equal(t, domain.Point{X: 3, Y: 4}, s.Points[0])
	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, dto.MsgAddStroke, msgs[0].Type)
}

func TestHistory_UndoDelete_RestoresSnapshot(t *testing.T) {
	// Arrange
	sender := &captureSender{}
	engine := client.NewEngine("ABC123", sender, map[string]domain.Stroke{"s1": twoPointStroke("s1", 7, 8)})
	engine.EraseStroke("s1")
	sender.reset()

	// Act
	engine.Undo()

	// Assert: 被删笔画按完整快照恢复
	s, ok := engine.Stroke("s1")
	require.True(t, ok)
	assert.Equal(t, domain.Point{X: 7, Y: 8}, s.Points[0])
	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, dto.MsgAddStroke, msgs[0].Type)
	require.NotNil(t, msgs[0].Stroke)
	assert.Equal(t, "s1", msgs[0].Stroke.ID)
}

func TestHistory_UndoMove_SendsInverseDelta(t *testing.T) {
	// Arrange
	sender := &captureSender{}
	engine := client.NewEngine("ABC123", sender, map[string]domain.Stroke{"s1": twoPointStroke("s1", 0, 0)})
	selection := client.NewSelection(engine)
	selection.PointerDown(domain.Point{X: -100, Y: -100})
	selection.PointerUp(domain.Point{X: 100, Y: 100}) // 框选中 s1
	selection.PointerDown(domain.Point{X: 5, Y: 5})
	selection.PointerMove(domain.Point{X: 15, Y: 25})
	selection.PointerUp(domain.Point{X: 15, Y: 25}) // 提交 (10, 20)
	sender.reset()

	// Act
	engine.Undo()

	// Assert: 撤销平移 = 反向位移，回到原位
	s, _ := engine.Stroke("s1")
	assert.Equal(t, domain.Point{X: 0, Y: 0}, s.Points[0])
	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, dto.MsgUpdateStrokes, msgs[0].Type)
	assert.Equal(t, float64(-10), msgs[0].Dx)
	assert.Equal(t, float64(-20), msgs[0].Dy)
}

func TestHistory_UndoClear_ReAddsEachStroke(t *testing.T) {
	// Arrange: 清空前有 3 条笔画
	sender := &captureSender{}
	initial := map[string]domain.Stroke{
		"a": twoPointStroke("a", 0, 0),
		"b": twoPointStroke("b", 10, 10),
		"c": twoPointStroke("c", 20, 20),
	}
	engine := client.NewEngine("ABC123", sender, initial)
	engine.Clear()
	sender.reset()

	// Act
	engine.Undo()

	// Assert: 按快照逐条恢复，每条一个 add-stroke 消息
	assert.Len(t, engine.Strokes(), 3)
	msgs := sender.messages()
	require.Len(t, msgs, 3)
	for _, m := range msgs {
		assert.Equal(t, dto.MsgAddStroke, m.Type)
	}
}

func TestHistory_RedoClear_EmptiesAgain(t *testing.T) {
	// Arrange
	sender := &captureSender{}
	engine := client.NewEngine("ABC123", sender, map[string]domain.Stroke{"a": twoPointStroke("a", 0, 0)})
	engine.Clear()
	engine.Undo()
	sender.reset()

	// Act
	engine.Redo()

	// Assert
	assert.Empty(t, engine.Strokes())
	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, dto.MsgClearBoard, msgs[0].Type)
}

func TestHistory_UndoAdd_StrokeAlreadyGoneIsNoOp(t *testing.T) {
	// Arrange: 本地添加的笔画已被远端成员删除
	sender := &captureSender{}
	engine := client.NewEngine("ABC123", sender, nil)
	engine.FinishStroke(twoPointStroke("s1", 0, 0))
	engine.HandleStrokeDeleted("s1")
	sender.reset()

	// Act
	engine.Undo()
	engine.Redo()

	// Assert: 撤销无事可做，也不能留下可重做的空笔画
	assert.Empty(t, sender.messages(), "对已消失笔画的撤销不应发出任何消息")
	assert.False(t, engine.History().CanRedo())
	assert.Empty(t, engine.Strokes())
}

func TestHistory_NewEditClearsRedoStack(t *testing.T) {
	// Arrange: 撤销后做一次新编辑
	sender := &captureSender{}
	engine := client.NewEngine("ABC123", sender, nil)
	engine.FinishStroke(twoPointStroke("s1", 0, 0))
	engine.Undo()
	require.True(t, engine.History().CanRedo())

	// Act
	engine.FinishStroke(twoPointStroke("s2", 5, 5))

	// Assert: 线性历史——新编辑让已撤销的分支失效
	assert.False(t, engine.History().CanRedo())
}

func TestHistory_UndoOnEmptyStackIsNoOp(t *testing.T) {
	// Arrange
	sender := &captureSender{}
	engine := client.NewEngine("ABC123", sender, nil)

	// Act
	engine.Undo()
	engine.Redo()

	// Assert
	assert.Empty(t, sender.messages())
	assert.False(t, engine.History().CanUndo())
	assert.False(t, engine.History().CanRedo())
}

func TestHistory_RemoteEditsAreNotRecorded(t *testing.T) {
	// Arrange: 只有远端的回声，没有本地编辑
	sender := &captureSender{}
	engine := client.NewEngine("ABC123", sender, nil)
	remote := twoPointStroke("remote", 0, 0)

	// Act
	engine.HandleNewStroke(&remote)
	engine.HandleStrokesUpdated([]string{"remote"}, 1, 1)
	engine.HandleStrokeDeleted("remote")

	// Assert: 历史只追踪本地用户自己的编辑
	assert.False(t, engine.History().CanUndo())
}
