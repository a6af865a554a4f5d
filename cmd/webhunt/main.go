// Command webhunt is the CLI entrypoint binding internal/cmd's cobra
// commands to the fuzzing engine in pkg/engine.
package main

import (
	"fmt"
	"os"

	"github.com/3leaps/webhunt/internal/cmd"
)

// version, commit, and buildDate are set via -ldflags at release build
// time; local `go build` leaves them at their defaults.
var (
	version   = "dev"
	commit    = "HEAD"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
