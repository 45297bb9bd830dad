// Package render turns mirror state into a drawable scene and formats it
// as text. Connection lines are recomputed from port geometry on every
// build, never cached, so they stay correct under drag and node movement.
package render

import (
	"sort"

	"github.com/rendis/flowcanvas/internal/geometry"
	"github.com/rendis/flowcanvas/internal/mirror"
	"github.com/rendis/flowcanvas/pkg/schema"
)

// NodeBox is a positioned agent node ready for drawing.
type NodeBox struct {
	ID       string
	Name     string
	Type     string
	Position schema.Position
	Size     geometry.Size
	Selected bool
}

// Line is a drawn connection between two port anchors.
type Line struct {
	ConnectionID string
	Segment      geometry.Segment
	Dashed       bool
}

// Scene is the full drawable state of the canvas.
type Scene struct {
	Nodes   []NodeBox
	Lines   []Line
	Preview *Line
	Panel   *PanelView
}

// PanelField is one editable key/value pair on the properties panel.
type PanelField struct {
	Key   string
	Value string
}

// PanelView is the properties panel for the selected agent, or a
// placeholder when nothing is selected.
type PanelView struct {
	AgentID string
	Name    string
	Type    string
	Fields  []PanelField
}

// BuildScene assembles the complete scene from the mirror: every node,
// every connection line, and the properties panel. A connection whose
// source or target agent is missing from the mirror is silently skipped.
func BuildScene(m *mirror.Mirror, size geometry.Size) *Scene {
	scene := &Scene{
		Nodes: buildNodes(m, size),
		Lines: BuildConnectionLines(m, size),
	}
	if selected := m.SelectedAgent(); selected != nil {
		scene.Panel = BuildPanel(selected)
	}
	return scene
}

// BuildConnectionLines recomputes every connection line from live mirror
// geometry. Used alone during a drag for a lines-only redraw.
func BuildConnectionLines(m *mirror.Mirror, size geometry.Size) []Line {
	var lines []Line
	for _, c := range m.Connections() {
		source := m.Agent(c.SourceAgentID)
		target := m.Agent(c.TargetAgentID)
		if source == nil || target == nil {
			continue // dangling endpoint, skip this line only
		}
		lines = append(lines, Line{
			ConnectionID: c.ID,
			Segment:      geometry.ConnectionSegment(source.Position, target.Position, size),
		})
	}
	return lines
}

// PreviewLine builds the dashed in-progress connection line from a start
// port anchor to the current pointer position.
func PreviewLine(start schema.Position, size geometry.Size, startPort string, pointer geometry.Point) *Line {
	return &Line{
		Segment: geometry.Segment{
			From: geometry.PortAnchor(start, size, startPort),
			To:   pointer,
		},
		Dashed: true,
	}
}

// BuildPanel builds the properties panel view for an agent: the editable
// name, the read-only type, one field per present config key, and a
// synthesized empty field for each recognized key the agent does not
// carry yet.
func BuildPanel(a *schema.Agent) *PanelView {
	present := make(map[string]bool, len(a.Config))
	var fields []PanelField
	for k, v := range a.Config {
		present[k] = true
		fields = append(fields, PanelField{Key: k, Value: v})
	}
	for _, k := range schema.RecognizedConfigKeys(a.Type) {
		if !present[k] {
			fields = append(fields, PanelField{Key: k})
		}
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Key < fields[j].Key })
	return &PanelView{
		AgentID: a.ID,
		Name:    a.Name,
		Type:    a.Type,
		Fields:  fields,
	}
}

func buildNodes(m *mirror.Mirror, size geometry.Size) []NodeBox {
	agents := m.Agents()
	nodes := make([]NodeBox, 0, len(agents))
	selected := m.Selected()
	for _, a := range agents {
		nodes = append(nodes, NodeBox{
			ID:       a.ID,
			Name:     a.Name,
			Type:     a.Type,
			Position: a.Position,
			Size:     size,
			Selected: a.ID == selected,
		})
	}
	return nodes
}
