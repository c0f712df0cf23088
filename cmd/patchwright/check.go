package main

import (
	"github.com/spf13/cobra"
)

func newCheckCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the current mirror for a newer version",
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
			cmd.Println(stateLine(u))
			if p := u.Plan(); p != nil {
				cmd.Printf("plan: %d file(s), %d KB\n", len(p.Entries), p.TotalKB)
			}
			return nil
		},
	}
}
