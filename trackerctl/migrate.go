package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or revert the projects/actions schema",
	}
	cmd.AddCommand(newMigrateUpCommand(opts))
	cmd.AddCommand(newMigrateDownCommand(opts))
	cmd.AddCommand(newMigrateStatusCommand(opts))
	return cmd
}

func newMigrateUpCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, db, err := opts.openMigrator(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			applied, err := m.Up(cmd.Context())
			for _, name := range applied {
				opts.logger.Info("migration applied", "name", name)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", len(applied))
			return nil
		},
	}
}

func newMigrateDownCommand(opts *rootOptions) *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Revert applied migrations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 0 {
				return fmt.Errorf("--steps must be >= 0")
			}
			m, db, err := opts.openMigrator(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			reverted, err := m.Down(cmd.Context(), steps)
			for _, name := range reverted {
				opts.logger.Info("migration reverted", "name", name)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reverted %d migration(s)\n", len(reverted))
			return nil
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to revert (0 reverts all)")
	return cmd
}

func newMigrateStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, db, err := opts.openMigrator(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			status, err := m.Status(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSTATUS\tAPPLIED AT")
			for _, s := range status {
				state, at := "pending", "-"
				if s.Applied {
					state, at = "applied", s.AppliedAt.Format("2006-01-02T15:04:05Z")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name, state, at)
			}
			return tw.Flush()
		},
	}
}
