// Command secondstage is the process the main client restarts into so it
// can overwrite files the client itself had locked open.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nightforge/patchwright/internal/bootstrap"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: secondstage <client_executable_name> <base_directory>")
		return 1
	}

	clientExe := args[0]
	base := strings.Trim(args[1], `"`)
	logPath := filepath.Join(base, "Client", "SecondStageUpdater.log")
	console, err := bootstrap.NewConsole(logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "secondstage: %v\n", err)
		return 1
	}
	defer console.Close()

	if err := bootstrap.Run(bootstrap.Options{
		ClientExecutableName: clientExe,
		BaseDirectory:        base,
		Console:              console,
	}); err != nil {
		console.Fatal("update finalize failed: %v", err)
		return 1
	}
	return 0
}
