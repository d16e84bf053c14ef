// Command taskutils runs timed action sequences and counted loops.
package main

import (
	"os"

	"github.com/opencode-ai/taskutils/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
