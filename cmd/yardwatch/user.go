package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banshee-data/yardwatch/internal/db"
)

// NewUserCommand creates the user command tree.
func NewUserCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage operators and their roles",
	}

	cmd.AddCommand(&cobra.Command{
		Use:          "add <name> <role>...",
		Short:        "Create a user or replace its roles",
		Args:         cobra.MinimumNArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigratedStore(opts, func(store *db.DB) error {
				if err := store.AddUser(args[0], args[1:]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %s\n", args[0], strings.Join(args[1:], ", "))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:          "roles <name>",
		Short:        "Show the roles of a user",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigratedStore(opts, func(store *db.DB) error {
				roles, err := store.UserRoles(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(roles, "\n"))
				return nil
			})
		},
	})

	return cmd
}
