package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nightforge/patchwright/internal/config"
	"github.com/nightforge/patchwright/internal/mirror"
)

func newMirrorsCommand(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirrors",
		Short: "Inspect and reorder the configured mirror list",
	}
	cmd.AddCommand(newMirrorsListCommand(flags), newMirrorsMoveCommand(flags, "up"), newMirrorsMoveCommand(flags, "down"))
	return cmd
}

func loadMirrorList(flags *rootFlags) (*mirror.List, error) {
	cfg, err := config.Load(flags.root)
	if err != nil {
		return nil, fmt.Errorf("patchwright: %w", err)
	}
	return mirror.New(cfg.Mirrors), nil
}

func newMirrorsListCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the configured mirrors in priority order",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := loadMirrorList(flags)
			if err != nil {
				return err
			}
			for i, m := range list.All() {
				cmd.Printf("%d: %s (%s) %s\n", i, m.Name, m.Location, m.URL)
			}
			return nil
		},
	}
}

func newMirrorsMoveCommand(flags *rootFlags, direction string) *cobra.Command {
	return &cobra.Command{
		Use:   direction + " <index>",
		Short: fmt.Sprintf("Move a mirror one position %s in priority (not persisted)", direction),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("patchwright: invalid index %q: %w", args[0], err)
			}
			list, err := loadMirrorList(flags)
			if err != nil {
				return err
			}
			if direction == "up" {
				list.MoveUp(idx)
			} else {
				list.MoveDown(idx)
			}
			for i, m := range list.All() {
				cmd.Printf("%d: %s\n", i, m.Name)
			}
			return nil
		},
	}
}
