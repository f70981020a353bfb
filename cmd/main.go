package main

import (
	"os"

	"github.com/solutionspma/godrive-academy/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
