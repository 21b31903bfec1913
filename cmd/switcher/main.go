package main

import (
	"fmt"
	"os"

	"github.com/picklr-io/switcher/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		prefix := "error"
		if cli.IsFatal(err) {
			prefix = "fatal"
		}
		fmt.Fprintf(os.Stderr, "%s: %v\n", prefix, err)
		os.Exit(cli.ExitCode(err))
	}
}
