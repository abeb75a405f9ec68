package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/yardwatch/internal/db"
	"github.com/banshee-data/yardwatch/internal/topology"
)

// NewLayoutCommand creates the layout command tree.
func NewLayoutCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Manage the stored yard layout",
	}

	cmd.AddCommand(&cobra.Command{
		Use:          "import <file>",
		Short:        "Validate a YAML layout and store it",
		Long:         "Replaces the stored sections, points, zones, DPU map and users with the contents of a layout file.",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := topology.LoadLayout(args[0])
			if err != nil {
				return err
			}
			return withMigratedStore(opts, func(store *db.DB) error {
				reg, err := store.ImportLayout(l)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %d sections, %d points, %d users\n",
					len(reg.Sections()), len(reg.Points()), len(l.Users))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:          "check",
		Short:        "Validate the stored layout",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigratedStore(opts, func(store *db.DB) error {
				reg, err := store.LoadTopology()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, s := range reg.Sections() {
					dpu, err := store.DPUForSection(s.ID)
					if err != nil {
						dpu = "-"
					}
					zone := string(reg.Class(s.ID))
					if zone == "" {
						zone = "-"
					}
					fmt.Fprintf(out, "%-6s %-6s %s\n", s.ID, dpu, zone)
				}
				fmt.Fprintf(out, "✓ Layout OK: %d sections\n", len(reg.Sections()))
				return nil
			})
		},
	})

	return cmd
}

// withMigratedStore opens the configured database with the schema brought
// up to date.
func withMigratedStore(opts *RootOptions, fn func(store *db.DB) error) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	store, err := db.NewDB(cfg.GetDatabasePath())
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}
