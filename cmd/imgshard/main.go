// Package main provides the entry point for the imgshard CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/Sumatoshi-tech/imgshard/cmd/imgshard/commands"
	"github.com/Sumatoshi-tech/imgshard/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	err := commands.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(commands.ExitCode(err))
	}
}
