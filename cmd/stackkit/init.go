package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/stackkit/internal/config"
	"github.com/vango-dev/stackkit/internal/errors"
)

func initCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default stackkit.json",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			if config.Exists(dir) && !force {
				return errors.New("C002").
					WithDetail(config.ConfigFileName + " already exists in " + dir).
					WithSuggestion("Pass --force to overwrite it.")
			}
			path := filepath.Join(dir, config.ConfigFileName)
			if err := config.Default().SaveTo(path); err != nil {
				return err
			}
			success("Wrote %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}
