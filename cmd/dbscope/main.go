// Package main provides the dbscope CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/dbscope/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
