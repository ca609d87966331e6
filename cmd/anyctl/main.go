// Package main is the entry point for the anyctl CLI.
package main

import (
	"fmt"
	"os"

	"github.com/tOgg1/anyrun/internal/cli"
)

// Version information (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(cli.Execute(fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)))
}
