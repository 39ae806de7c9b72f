// Package main is the entry point for the ledgerctl maintenance CLI.
package main

import (
	"os"

	"github.com/tresorerie/backend/cmd/ledgerctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
