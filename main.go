package main

import (
	"os"

	"github.com/JuliusShade/FD-Lead-Gen/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
