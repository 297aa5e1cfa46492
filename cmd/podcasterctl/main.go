// Command podcasterctl is a thin HTTP client for the podcastos daemon:
// start, watch, approve, and cancel generation jobs from a terminal.
package main

import (
	"os"

	"github.com/apresai/podcastos/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
