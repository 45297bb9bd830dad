package render

import (
	"strings"

	"github.com/rendis/flowcanvas/pkg/schema"
)

// FormatRunReport formats a flow run response for the output panel.
// The controller performs no interpretation of the execution order or
// details; it only lays them out.
func FormatRunReport(report *schema.RunReport) string {
	var b strings.Builder
	b.WriteString("Run Result:\n")
	b.WriteString(report.Message)
	b.WriteString("\n\nExecution Order:\n")
	b.WriteString(strings.Join(report.ExecutionOrder, " -> "))
	b.WriteString("\n\nSimulation Details:\n")
	b.WriteString(strings.Join(report.SimulationDetails, "\n"))
	b.WriteString("\n")
	return b.String()
}
