// Package main is the single-binary entrypoint for MemeForge.
package main

import "github.com/memeforge-network/memeforge/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
