package canvas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowcanvas/internal/geometry"
	"github.com/rendis/flowcanvas/pkg/schema"
)

func TestDragTransitionLifecycle(t *testing.T) {
	fsm := NewDragFSM()
	state := DragState{Status: DragIdle}

	state, err := fsm.Transition(state, DragDragging, "a1", 12, 7)
	require.NoError(t, err)
	assert.Equal(t, DragDragging, state.Status)
	assert.Equal(t, "a1", state.AgentID)
	assert.Equal(t, 12.0, state.OffsetX)
	assert.Equal(t, 7.0, state.OffsetY)

	state, err = fsm.Transition(state, DragIdle, "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, DragIdle, state.Status)
	assert.Empty(t, state.AgentID, "payload cleared on return to idle")
}

func TestDragTransitionRejectsDoubleStart(t *testing.T) {
	fsm := NewDragFSM()
	state, err := fsm.Transition(DragState{Status: DragIdle}, DragDragging, "a1", 0, 0)
	require.NoError(t, err)

	next, err := fsm.Transition(state, DragDragging, "a2", 0, 0)
	require.Error(t, err)

	var fe *schema.FlowError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, schema.ErrCodeInvalidTransition, fe.Code)
	assert.Equal(t, state, next, "state unchanged on rejected transition")
}

func TestDragHooksFire(t *testing.T) {
	fsm := NewDragFSM()
	var fired []string
	fsm.OnAfter(DragIdle, DragDragging, func(from, to string) {
		fired = append(fired, from+"->"+to)
	})

	_, err := fsm.Transition(DragState{Status: DragIdle}, DragDragging, "a1", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"idle->dragging"}, fired)
}

func TestConnectTransitionLifecycle(t *testing.T) {
	fsm := NewConnectFSM()
	state := ConnectState{Status: ConnectIdle}

	state, err := fsm.Transition(state, ConnectDrawing, "a1", schema.PortOutput, geometry.Point{X: 160, Y: 40})
	require.NoError(t, err)
	assert.Equal(t, ConnectDrawing, state.Status)
	assert.Equal(t, "a1", state.StartAgentID)
	assert.Equal(t, schema.PortOutput, state.StartPort)
	assert.Equal(t, geometry.Point{X: 160, Y: 40}, state.Pointer)

	state, err = fsm.Transition(state, ConnectIdle, "", "", geometry.Point{})
	require.NoError(t, err)
	assert.Equal(t, ConnectIdle, state.Status)
	assert.Empty(t, state.StartAgentID)
}

func TestConnectTransitionRejectsDoubleStart(t *testing.T) {
	fsm := NewConnectFSM()
	state, err := fsm.Transition(ConnectState{Status: ConnectIdle}, ConnectDrawing, "a1", schema.PortOutput, geometry.Point{})
	require.NoError(t, err)

	_, err = fsm.Transition(state, ConnectDrawing, "a2", schema.PortInput, geometry.Point{})
	require.Error(t, err)

	var fe *schema.FlowError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, schema.ErrCodeInvalidTransition, fe.Code)
}
