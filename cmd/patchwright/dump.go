package main

import (
	"github.com/spf13/cobra"

	"github.com/nightforge/patchwright/internal/diag"
)

func newDumpCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Check for updates and print the resulting state as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			obs := newCLIObserver()
			u, err := buildUpdater(flags, obs)
			if err != nil {
				return err
			}
			if err := u.CheckForUpdates(cmd.Context()); err != nil {
				return err
			}
			if err := obs.Await(); err != nil {
				return err
			}

			data, err := diag.Dump(u)
			if err != nil {
				return err
			}
			cmd.Print(string(data))
			return nil
		},
	}
}
