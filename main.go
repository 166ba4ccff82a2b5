// The main package for the sitegrab executable.
package main

import (
	"github.com/sitegrab/sitegrab/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
