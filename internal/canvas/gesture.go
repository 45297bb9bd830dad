package canvas

import (
	"github.com/rendis/flowcanvas/internal/geometry"
	"github.com/rendis/flowcanvas/pkg/schema"
)

// TransitionHook is called after a gesture state transition.
type TransitionHook func(from, to string)

// --- Drag gesture ---

// DragStatus is the state tag of the drag-to-move gesture.
type DragStatus string

const (
	DragIdle     DragStatus = "idle"
	DragDragging DragStatus = "dragging"
)

// ValidDragTransitions defines the allowed drag gesture transitions.
// A drag in progress is only ended by pointer-up; there is no timeout.
var ValidDragTransitions = map[DragStatus][]DragStatus{
	DragIdle:     {DragDragging},
	DragDragging: {DragIdle},
}

// DragState is the tagged drag gesture variant. The payload fields are only
// meaningful while Status is DragDragging.
type DragState struct {
	Status  DragStatus
	AgentID string
	// Pointer offset from the node origin at pointer-down, so the node
	// does not jump under the cursor.
	OffsetX float64
	OffsetY float64
}

// DragFSM validates drag gesture transitions.
type DragFSM struct {
	after map[dragKey][]TransitionHook
}

type dragKey struct {
	from, to DragStatus
}

// NewDragFSM creates a DragFSM with no hooks registered.
func NewDragFSM() *DragFSM {
	return &DragFSM{after: make(map[dragKey][]TransitionHook)}
}

// OnAfter registers a hook called after a drag transition.
func (f *DragFSM) OnAfter(from, to DragStatus, hook TransitionHook) {
	key := dragKey{from, to}
	f.after[key] = append(f.after[key], hook)
}

// Transition validates and applies a drag transition, returning the next state.
func (f *DragFSM) Transition(state DragState, to DragStatus, agentID string, offsetX, offsetY float64) (DragState, error) {
	if !isValidDragTransition(state.Status, to) {
		return state, schema.NewErrorf(schema.ErrCodeInvalidTransition,
			"invalid drag transition: %s -> %s", state.Status, to).
			WithDetails(map[string]any{"agent_id": agentID})
	}

	next := DragState{Status: to}
	if to == DragDragging {
		next.AgentID = agentID
		next.OffsetX = offsetX
		next.OffsetY = offsetY
	}

	for _, hook := range f.after[dragKey{state.Status, to}] {
		hook(string(state.Status), string(to))
	}
	return next, nil
}

func isValidDragTransition(from, to DragStatus) bool {
	for _, a := range ValidDragTransitions[from] {
		if a == to {
			return true
		}
	}
	return false
}

// --- Connection-drawing gesture ---

// ConnectStatus is the state tag of the connection-drawing gesture.
type ConnectStatus string

const (
	ConnectIdle    ConnectStatus = "idle"
	ConnectDrawing ConnectStatus = "drawing"
)

// ValidConnectTransitions defines the allowed connection gesture transitions.
// Drawing returns to idle on a completing port click or on a cancel.
var ValidConnectTransitions = map[ConnectStatus][]ConnectStatus{
	ConnectIdle:    {ConnectDrawing},
	ConnectDrawing: {ConnectIdle},
}

// ConnectState is the tagged connection gesture variant. StartAgentID and
// StartPort are only meaningful while Status is ConnectDrawing; Pointer is
// the current preview endpoint, updated on every pointer-move.
type ConnectState struct {
	Status       ConnectStatus
	StartAgentID string
	StartPort    string
	Pointer      geometry.Point
}

// ConnectFSM validates connection gesture transitions.
type ConnectFSM struct {
	after map[connectKey][]TransitionHook
}

type connectKey struct {
	from, to ConnectStatus
}

// NewConnectFSM creates a ConnectFSM with no hooks registered.
func NewConnectFSM() *ConnectFSM {
	return &ConnectFSM{after: make(map[connectKey][]TransitionHook)}
}

// OnAfter registers a hook called after a connection gesture transition.
func (f *ConnectFSM) OnAfter(from, to ConnectStatus, hook TransitionHook) {
	key := connectKey{from, to}
	f.after[key] = append(f.after[key], hook)
}

// Transition validates and applies a connection gesture transition,
// returning the next state. The preview endpoint of a new drawing state
// starts at the starting port's anchor; Pointer moves with the pointer.
func (f *ConnectFSM) Transition(state ConnectState, to ConnectStatus, startAgentID, startPort string, pointer geometry.Point) (ConnectState, error) {
	if !isValidConnectTransition(state.Status, to) {
		return state, schema.NewErrorf(schema.ErrCodeInvalidTransition,
			"invalid connection gesture transition: %s -> %s", state.Status, to).
			WithDetails(map[string]any{"agent_id": startAgentID, "port": startPort})
	}

	next := ConnectState{Status: to}
	if to == ConnectDrawing {
		next.StartAgentID = startAgentID
		next.StartPort = startPort
		next.Pointer = pointer
	}

	for _, hook := range f.after[connectKey{state.Status, to}] {
		hook(string(state.Status), string(to))
	}
	return next, nil
}

func isValidConnectTransition(from, to ConnectStatus) bool {
	for _, a := range ValidConnectTransitions[from] {
		if a == to {
			return true
		}
	}
	return false
}
