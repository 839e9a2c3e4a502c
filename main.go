package main

import (
	"os"

	"github.com/intervox/intervox/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
