package main

import (
	"os"

	"github.com/minisoc-systems/minisoc/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
