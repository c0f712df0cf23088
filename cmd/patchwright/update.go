package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nightforge/patchwright/internal/manifest"
)

func newUpdateCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Check for and apply an update",
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

			if u.State() == manifest.StateUpToDate {
				cmd.Println("already up to date")
				return nil
			}
			if required, url := u.ManualUpdateRequired(); required {
				return fmt.Errorf("manual update required: %s", url)
			}
			if u.State() != manifest.StateOutdated {
				return fmt.Errorf("unexpected state after check: %s", u.State())
			}

			if err := u.StartUpdate(cmd.Context()); err != nil {
				return err
			}
			if err := obs.Await(); err != nil {
				return err
			}
			cmd.Println(stateLine(u))
			return nil
		},
	}
}
