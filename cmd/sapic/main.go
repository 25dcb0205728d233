// Command sapic is the CLI entry point: a thin wrapper that delegates to
// internal/cmdline.
package main

import (
	"fmt"
	"os"

	"github.com/sapic/core/internal/cmdline"
)

func main() {
	if err := cmdline.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
