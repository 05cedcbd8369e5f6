// Package main provides the entry point for the openfs CLI.
package main

import (
	"os"

	"github.com/openfs/openfs/cmd/openfs/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
