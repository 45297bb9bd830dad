// Command flowcanvas is the flow graph editor backend: it serves the Flow
// Store API, runs flows from the command line, and exposes the canvas over
// MCP stdio.
package main

import (
	"fmt"
	"os"
)

const usage = `flowcanvas - flow graph editor backend

Usage:
  flowcanvas serve [-addr :5001] [-db path]   Start the Flow Store Service
  flowcanvas run   [-addr url] [-query expr]  Run the flow and print the report
  flowcanvas mcp   [-db path]                 Serve canvas tools over MCP stdio
  flowcanvas version                          Print version information
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = cmdServe(os.Args[2:])
	case "run":
		err = cmdRun(os.Args[2:])
	case "mcp":
		err = cmdMCP(os.Args[2:])
	case "version":
		fmt.Println(versionString())
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
