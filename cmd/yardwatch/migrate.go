package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banshee-data/yardwatch/internal/db"
)

// NewMigrateCommand creates the migrate command tree.
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long:  "Apply, roll back and inspect the embedded schema migrations.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:          "up",
		Short:        "Apply all pending migrations",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: withStore(opts, func(cmd *cobra.Command, store *db.DB, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "Running migrations...")
			if err := store.MigrateUp(db.MigrationsFS()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ All migrations applied successfully")
			return printVersion(cmd, store)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:          "down",
		Short:        "Roll back the most recent migration",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: withStore(opts, func(cmd *cobra.Command, store *db.DB, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "Rolling back one migration...")
			if err := store.MigrateDown(db.MigrationsFS()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Migration rolled back successfully")
			return printVersion(cmd, store)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:          "status",
		Short:        "Show the current schema version",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: withStore(opts, func(cmd *cobra.Command, store *db.DB, _ []string) error {
			st, err := store.GetMigrationStatus(db.MigrationsFS())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "=== Migration Status ===")
			fmt.Fprintf(out, "Current version: %d\n", st.Version)
			fmt.Fprintf(out, "Latest version: %d\n", st.Latest)
			fmt.Fprintf(out, "Dirty: %v\n", st.Dirty)
			fmt.Fprintf(out, "Schema migrations table exists: %v\n", st.TableExists)
			if st.Pending > 0 {
				fmt.Fprintf(out, "\n%d migration(s) pending. Run: yardwatch migrate up\n", st.Pending)
			}
			if st.Dirty {
				fmt.Fprintln(out, "\n⚠️  WARNING: Database is in a dirty state!")
				fmt.Fprintln(out, "A migration failed mid-execution. You may need to:")
				fmt.Fprintln(out, "  1. Inspect the database manually")
				fmt.Fprintln(out, "  2. Fix any issues")
				fmt.Fprintln(out, "  3. Run: yardwatch migrate force <version>")
			}
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:          "version <version>",
		Short:        "Migrate up or down to a specific version",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: withStore(opts, func(cmd *cobra.Command, store *db.DB, args []string) error {
			target, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid version number: %s", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrating to version %d...\n", target)
			if err := store.MigrateTo(db.MigrationsFS(), uint(target)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Migrated to version %d successfully\n", target)
			return nil
		}),
	})

	var yes bool
	force := &cobra.Command{
		Use:          "force <version>",
		Short:        "Set the schema version without running migrations",
		Long:         "Recovery only: marks the database as clean at the given version.",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: withStore(opts, func(cmd *cobra.Command, store *db.DB, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version number: %s", args[0])
			}
			out := cmd.OutOrStdout()
			if !yes {
				fmt.Fprintf(out, "⚠️  WARNING: Forcing migration version to %d\n", version)
				fmt.Fprintln(out, "This should only be used to recover from a dirty migration state.")
				fmt.Fprint(out, "Continue? [y/N]: ")
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				answer = strings.TrimSpace(answer)
				if answer != "y" && answer != "Y" {
					fmt.Fprintln(out, "Aborted")
					return nil
				}
			}
			if err := store.MigrateForce(db.MigrationsFS(), version); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Migration version forced to %d\n", version)
			return nil
		}),
	}
	force.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	cmd.AddCommand(force)

	return cmd
}

// withStore opens the configured database without migrating it and closes
// it after fn returns.
func withStore(opts *RootOptions, fn func(cmd *cobra.Command, store *db.DB, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := opts.load()
		if err != nil {
			return err
		}
		store, err := db.OpenDB(cfg.GetDatabasePath())
		if err != nil {
			return err
		}
		defer store.Close()
		return fn(cmd, store, args)
	}
}

func printVersion(cmd *cobra.Command, store *db.DB) error {
	version, dirty, err := store.MigrateVersion(db.MigrationsFS())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Current version: %d (dirty: %v)\n", version, dirty)
	return nil
}
