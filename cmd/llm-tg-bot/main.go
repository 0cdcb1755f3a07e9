// Package main provides the entry point for the llm-tg-bot daemon.
package main

import (
	"fmt"
	"os"

	"github.com/elmariachi111/llm-tg-bot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
