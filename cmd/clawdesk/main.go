// Package main is the entry point for the clawdesk CLI.
package main

import (
	"os"

	"github.com/clawdesk/clawdesk/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
