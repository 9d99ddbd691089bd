// Command qube drives the hash-chained execution kernel and the safety
// envelope from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/qube/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
