// Command blogsol runs the blog record store CLI.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/blogsol/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
