// Command assistant is a personal knowledge assistant: it ingests
// documents, embeds them and answers questions over them.
package main

import (
	"os"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/adapters/driving/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = ""

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
