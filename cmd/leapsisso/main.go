// Package main provides the leapsisso command-line tool.
package main

import (
	"os"

	"github.com/leapstack-labs/leapsisso/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
