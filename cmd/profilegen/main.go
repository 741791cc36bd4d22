// Command profilegen compiles data profiles and generates rows from them.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/profilegen/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
