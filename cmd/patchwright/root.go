package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nightforge/patchwright/internal/applog"
	"github.com/nightforge/patchwright/internal/config"
	"github.com/nightforge/patchwright/internal/manifest"
	"github.com/nightforge/patchwright/internal/mirror"
	"github.com/nightforge/patchwright/internal/transport"
	"github.com/nightforge/patchwright/internal/update"
)

type rootFlags struct {
	root    string
	config  string
	verbose bool
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "patchwright",
		Short:         "Headless driver for the application self-updater",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&flags.root, "root", ".", "installation root directory")
	cmd.PersistentFlags().StringVar(&flags.config, "config", "", "unused: configuration is always loaded from under --root")
	cmd.PersistentFlags().BoolVar(&flags.verbose, "verbose", false, "enable debug logging")

	cmd.AddCommand(
		newCheckCommand(flags),
		newUpdateCommand(flags),
		newMirrorsCommand(flags),
		newComponentsCommand(flags),
		newDumpCommand(flags),
	)
	return cmd
}

// buildUpdater loads configuration and wires a fresh Updater against the
// flags' root directory. obs may be nil.
func buildUpdater(flags *rootFlags, obs update.Observer) (*update.Updater, error) {
	cfg, err := config.Load(flags.root)
	if err != nil {
		return nil, fmt.Errorf("patchwright: %w", err)
	}

	log := applog.New(os.Stderr, flags.verbose)
	mirrors := mirror.New(cfg.Mirrors)
	t := transport.New(transport.UserAgent("patchwright", "N/A", "N/A", "cli"))

	return update.New(flags.root, t, mirrors, cfg, log, obs), nil
}

func stateLine(u *update.Updater) string {
	s := u.State()
	if required, url := u.ManualUpdateRequired(); required && s == manifest.StateOutdated {
		return fmt.Sprintf("%s (manual update required: %s)", s, url)
	}
	return s.String()
}
