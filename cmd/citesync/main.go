// Command citesync keeps manuscript citations and bibliographies in sync
// with a reference library.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/citesync/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
