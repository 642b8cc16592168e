package main

import (
	"os"

	"github.com/vrsleep/vrsleep/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
