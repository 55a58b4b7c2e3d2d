package main

import (
	"os"

	"github.com/superpoupe/backend/cmd/superpoupe/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
