package main

import (
	"fmt"
	"runtime/debug"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func versionString() string {
	if version != "dev" {
		return "flowcanvas " + version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return "flowcanvas " + info.Main.Version
	}
	return fmt.Sprintf("flowcanvas %s", version)
}
