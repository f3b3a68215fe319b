package main

import (
	"os"

	"github.com/devotel/go-insurance-forms/cmd/insurance-portal/commands"
)

// Version is the current version of insurance-portal.
const Version = "v0.1.0"

func main() {
	commands.SetVersion(Version)

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
