// Package main provides the canvasctl CLI: a command-line surface over the
// canvas core and its SQLite backend for creating canvases, placing metric
// cards, linking them, grouping them, and slicing metrics by dimension.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
