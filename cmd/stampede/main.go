// Package main is the stampede command line entry point.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/stampede/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
