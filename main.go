package main

import (
	"os"

	"github.com/abhisek/gretutor/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
