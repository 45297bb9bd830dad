package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rendis/flowcanvas/pkg/schema"
)

func TestPortAnchor(t *testing.T) {
	pos := schema.Position{X: 100, Y: 200}
	size := Size{Width: 160, Height: 80}

	input := PortAnchor(pos, size, schema.PortInput)
	assert.Equal(t, Point{X: 100, Y: 240}, input)

	output := PortAnchor(pos, size, schema.PortOutput)
	assert.Equal(t, Point{X: 260, Y: 240}, output)

	unknown := PortAnchor(pos, size, "side")
	assert.Equal(t, Point{X: 180, Y: 240}, unknown)
}

func TestConnectionSegment(t *testing.T) {
	size := Size{Width: 160, Height: 80}
	seg := ConnectionSegment(schema.Position{X: 0, Y: 0}, schema.Position{X: 300, Y: 100}, size)

	assert.Equal(t, Point{X: 160, Y: 40}, seg.From)
	assert.Equal(t, Point{X: 300, Y: 140}, seg.To)
}

func TestClampPosition(t *testing.T) {
	assert.Equal(t, schema.Position{X: 10, Y: 20}, ClampPosition(10, 20))
	assert.Equal(t, schema.Position{X: 0, Y: 20}, ClampPosition(-5, 20))
	assert.Equal(t, schema.Position{X: 10, Y: 0}, ClampPosition(10, -1))
	assert.Equal(t, schema.Position{X: 0, Y: 0}, ClampPosition(-100, -100))
}

func TestToCanvas(t *testing.T) {
	// Screen (150, 90), canvas origin at (50, 40), scrolled by (30, 10).
	p := ToCanvas(150, 90, 50, 40, 30, 10)
	assert.Equal(t, Point{X: 130, Y: 60}, p)
}
