// Package main provides the entry point for the codewell CLI.
package main

import (
	"os"

	"github.com/codewell/codewell/cmd/codewell/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
