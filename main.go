// The main package for the prepflow-scraper executable.
package main

import (
	"github.com/KuschiKuschbert/prepflow-scraper/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
