// Package main is the single-binary entrypoint for WattQuest.
package main

import "github.com/wattquest/wattquest/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
