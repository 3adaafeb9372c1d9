// Package main provides the statbank CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/statbank/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
