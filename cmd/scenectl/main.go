// Command scenectl is the operator CLI for the soundscape classifier: it
// proposes scenes, prints plans, checks geofences and replays scenarios
// without a running daemon.
package main

import (
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
