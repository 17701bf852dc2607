package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/animus-labs/actiontracker/internal/platform/auditlog"
	"github.com/spf13/cobra"
)

func newAuditCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the project/action audit trail",
	}
	cmd.AddCommand(newAuditListCommand(opts))
	cmd.AddCommand(newAuditVerifyCommand(opts))
	return cmd
}

func newAuditListCommand(opts *rootOptions) *cobra.Command {
	var (
		limit        int
		resourceType string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the newest audit events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := opts.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			events, err := auditlog.List(cmd.Context(), db, resourceType, limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tOCCURRED AT\tACTION\tRESOURCE\tREQUEST ID")
			for _, ev := range events {
				requestID := ev.RequestID
				if requestID == "" {
					requestID = "-"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s/%s\t%s\n",
					ev.ID,
					ev.OccurredAt.Format(time.RFC3339),
					ev.Action,
					ev.ResourceType,
					ev.ResourceID,
					requestID,
				)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of events to print")
	cmd.Flags().StringVar(&resourceType, "resource-type", "", "only print events for this resource type (project|action)")
	return cmd
}

func newAuditVerifyCommand(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Recompute integrity hashes of recent audit events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := opts.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			events, err := auditlog.List(cmd.Context(), db, "", limit)
			if err != nil {
				return err
			}
			var bad int
			for _, ev := range events {
				if err := auditlog.Verify(ev); err != nil {
					bad++
					opts.logger.Error("audit event failed verification", "event_id", ev.ID, "error", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "verified %d event(s), %d mismatch(es)\n", len(events), bad)
			if bad > 0 {
				return errors.New("audit trail failed verification")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 1000, "number of most recent events to verify")
	return cmd
}
