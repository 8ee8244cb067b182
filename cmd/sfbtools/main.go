// Command sfbtools cleans, extracts and replays Skype for Business SDN
// diagnostic logs.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/sfbtools/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
