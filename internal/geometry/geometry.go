package geometry

import "github.com/rendis/flowcanvas/pkg/schema"

// Default node box dimensions in canvas pixels. Every agent node is drawn
// at this size; port anchors are derived from it.
const (
	DefaultNodeWidth  = 160.0
	DefaultNodeHeight = 80.0
)

// Point is an absolute canvas coordinate.
type Point struct {
	X float64
	Y float64
}

// Size holds node box dimensions.
type Size struct {
	Width  float64
	Height float64
}

// DefaultNodeSize returns the standard node box size.
func DefaultNodeSize() Size {
	return Size{Width: DefaultNodeWidth, Height: DefaultNodeHeight}
}

// Segment is a straight line between two canvas points.
type Segment struct {
	From Point
	To   Point
}

// PortAnchor computes the on-canvas coordinate of a port for a node at the
// given position. The input port sits at the midpoint of the left edge, the
// output port at the midpoint of the right edge. Unknown port labels anchor
// at the node center.
func PortAnchor(pos schema.Position, size Size, port string) Point {
	switch port {
	case schema.PortInput:
		return Point{X: pos.X, Y: pos.Y + size.Height/2}
	case schema.PortOutput:
		return Point{X: pos.X + size.Width, Y: pos.Y + size.Height/2}
	default:
		return Point{X: pos.X + size.Width/2, Y: pos.Y + size.Height/2}
	}
}

// ConnectionSegment computes the line between the source agent's output port
// and the target agent's input port.
func ConnectionSegment(source, target schema.Position, size Size) Segment {
	return Segment{
		From: PortAnchor(source, size, schema.PortOutput),
		To:   PortAnchor(target, size, schema.PortInput),
	}
}

// ClampPosition clamps a candidate node position to non-negative canvas
// coordinates. Dragging past the top or left edge pins the node to the edge.
func ClampPosition(x, y float64) schema.Position {
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return schema.Position{X: x, Y: y}
}

// ToCanvas translates an on-screen pointer coordinate into canvas space,
// accounting for the canvas origin and its scroll offset.
func ToCanvas(screenX, screenY, originX, originY, scrollX, scrollY float64) Point {
	return Point{
		X: screenX - originX + scrollX,
		Y: screenY - originY + scrollY,
	}
}
