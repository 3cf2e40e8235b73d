// Command imeseg trains and runs the beam-search segmentation decoder.
// It parses global flags, dispatches to a commander.Commander, and
// propagates any error as a non-zero exit code.
package main

import (
	"fmt"
	"os"

	"github.com/nimbleseg/imeseg/app"
)

func main() {
	cmd := app.AllCommands()
	if err := cmd.Flag.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "imeseg: %v\n", err)
		os.Exit(1)
	}
	args := cmd.Flag.Args()
	if err := cmd.Run(args); err != nil {
		fmt.Fprintf(os.Stderr, "imeseg: %v\n", err)
		os.Exit(1)
	}
}
