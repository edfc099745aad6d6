// Command clamdctl talks to a clamd daemon over its unix or tcp control
// socket: ping, version, database reload, shutdown, stats, and file or
// stream scans.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	rootCmd := newRootCommand()
	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			if exit.err != nil {
				fmt.Fprintln(os.Stderr, "clamdctl:", exit.err)
			}
			return exit.code
		}
		fmt.Fprintln(os.Stderr, "clamdctl:", err)
		return exitErrorCode
	}
	return exitClean
}

// Exit codes follow the clamscan convention: 0 clean, 1 threat found,
// 2 could not complete.
const (
	exitClean     = 0
	exitFound     = 1
	exitErrorCode = 2
)

// exitError carries a specific process exit code out of a command. A nil
// err means the command already reported its result (e.g. a scan table with
// infected rows) and only the code matters.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit code %d", e.code)
}

func (e *exitError) Unwrap() error {
	return e.err
}
