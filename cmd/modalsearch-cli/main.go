// Package main provides the entry point for the modalsearch CLI.
package main

import (
	"os"

	"github.com/kailas-cloud/modalsearch/cmd/modalsearch-cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
