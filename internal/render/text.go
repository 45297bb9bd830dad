package render

import (
	"fmt"
	"strings"
)

// RenderText renders a scene as a text diagram: one box per node ordered
// left-to-right then top-to-bottom, followed by the connection lines and
// the properties panel.
func RenderText(scene *Scene) string {
	var b strings.Builder

	for _, node := range sortedByPosition(scene.Nodes) {
		renderBox(&b, node)
	}

	if len(scene.Lines) > 0 || scene.Preview != nil {
		b.WriteString("connections:\n")
		for _, line := range scene.Lines {
			renderLine(&b, line)
		}
		if scene.Preview != nil {
			renderLine(&b, *scene.Preview)
		}
	}

	b.WriteString(RenderPanel(scene.Panel))
	return b.String()
}

// RenderPanel renders the properties panel, or the placeholder when no
// agent is selected.
func RenderPanel(panel *PanelView) string {
	if panel == nil {
		return "properties: select an agent to edit its properties\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "properties: %s\n", panel.AgentID)
	fmt.Fprintf(&b, "  name: %s\n", panel.Name)
	fmt.Fprintf(&b, "  type: %s (read-only)\n", panel.Type)
	for _, f := range panel.Fields {
		fmt.Fprintf(&b, "  %s: %s\n", f.Key, f.Value)
	}
	return b.String()
}

// renderBox draws a single node box with box-drawing characters.
func renderBox(b *strings.Builder, node NodeBox) {
	marker := ""
	if node.Selected {
		marker = " *"
	}
	content := []string{
		fmt.Sprintf("%s%s", firstLine(node.Name), marker),
		node.Type,
		fmt.Sprintf("(%.0f, %.0f)", node.Position.X, node.Position.Y),
	}

	maxLen := 0
	for _, line := range content {
		if len(line) > maxLen {
			maxLen = len(line)
		}
	}
	width := maxLen + 4

	b.WriteString("┌" + strings.Repeat("─", width-2) + "┐\n")
	for _, line := range content {
		padded := line + strings.Repeat(" ", maxLen-len(line))
		b.WriteString("│ " + padded + " │\n")
	}
	b.WriteString("└" + strings.Repeat("─", width-2) + "┘\n")
}

func renderLine(b *strings.Builder, line Line) {
	style := "─→"
	if line.Dashed {
		style = "╌→"
	}
	fmt.Fprintf(b, "  (%.0f, %.0f) %s (%.0f, %.0f)\n",
		line.Segment.From.X, line.Segment.From.Y, style,
		line.Segment.To.X, line.Segment.To.Y)
}

func firstLine(s string) string {
	if i := strings.Index(s, "\n"); i >= 0 {
		return s[:i]
	}
	return s
}

// sortedByPosition orders nodes top-to-bottom then left-to-right so the
// text output is stable across renders.
func sortedByPosition(nodes []NodeBox) []NodeBox {
	out := make([]NodeBox, len(nodes))
	copy(out, nodes)
	for i := 1; i < len(out); i++ {
		key := out[i]
		j := i - 1
		for j >= 0 && positionAfter(out[j], key) {
			out[j+1] = out[j]
			j--
		}
		out[j+1] = key
	}
	return out
}

func positionAfter(a, b NodeBox) bool {
	if a.Position.Y != b.Position.Y {
		return a.Position.Y > b.Position.Y
	}
	if a.Position.X != b.Position.X {
		return a.Position.X > b.Position.X
	}
	return a.ID > b.ID
}
