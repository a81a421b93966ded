// The main package for the smartcourse executable.
package main

import (
	"github.com/Ronakdeora/smart-course/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
