package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nightforge/patchwright/internal/config"
	"github.com/nightforge/patchwright/internal/download"
	"github.com/nightforge/patchwright/internal/update"
)

func currentMirrorURL(u *update.Updater) (string, error) {
	m, ok := u.Mirrors.Current()
	if !ok {
		return "", fmt.Errorf("patchwright: no mirrors configured")
	}
	return m.URL, nil
}

func newComponentsCommand(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "components",
		Short: "Inspect and download optional custom components",
	}
	cmd.AddCommand(newComponentsListCommand(flags), newComponentsDownloadCommand(flags))
	return cmd
}

func newComponentsListCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured custom components",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.root)
			if err != nil {
				return err
			}
			for _, c := range cfg.Components {
				cmd.Printf("%s: %s -> %s\n", c.IniName, c.DisplayName, c.LocalPath)
			}
			return nil
		},
	}
}

func newComponentsDownloadCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "download <name>",
		Short: "Download a custom component by its ini_name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

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

			server := u.ServerManifest()
			if server == nil {
				return fmt.Errorf("patchwright: no server manifest available")
			}

			cfg := u.Config
			var idx = -1
			for i, c := range cfg.Components {
				if c.IniName == name {
					idx = i
					break
				}
			}
			if idx < 0 {
				return fmt.Errorf("patchwright: unknown component %q", name)
			}
			component := &cfg.Components[idx]

			remote, ok := server.AddOns[name]
			if !ok {
				return fmt.Errorf("patchwright: component %q not published in server manifest", name)
			}
			// RemoteIdentifier always carries the plaintext hash: the
			// component pipeline only verifies the final decompressed
			// file, never the archive in transit.
			component.RemoteIdentifier = remote.Identifier
			component.RemoteSizeKB = remote.SizeKB
			component.Archived = remote.Archived()
			if component.Archived {
				component.RemoteArchiveSizeKB = remote.ArchiveSizeKB
			}

			mirrorURL, err := currentMirrorURL(u)
			if err != nil {
				return err
			}

			eng := download.New(flags.root, u.Transport, nil)
			if err := eng.DownloadComponent(cmd.Context(), mirrorURL, component); err != nil {
				return fmt.Errorf("patchwright: download component %q: %w", name, err)
			}
			component.Initialized = true
			cmd.Printf("downloaded %s to %s\n", name, component.LocalPath)
			return nil
		},
	}
}
