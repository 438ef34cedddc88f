package main

import (
	"os"

	"github.com/essencia-app/essencia-cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
