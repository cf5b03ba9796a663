package main

import (
	"github.com/CVO-TreeAi/terminote/internal/interface/cli"
)

// Build metadata injected by GoReleaser (-X main.version etc.)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersion(version, commit, date)
	cli.Execute()
}
