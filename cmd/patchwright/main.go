// Command patchwright is a headless CLI front end for the update engine,
// driving the same internal/update.Updater a GUI host would embed.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
