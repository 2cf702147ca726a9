package main

import (
	"fmt"
	"os"

	"github.com/dataeng-tools/airmeta/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		// Usage and cancellation errors already printed themselves.
		if !cmd.IsHandledError(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cmd.ExitCodeForError(err))
	}
}
