package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"lamconf/internal/audit"
	"lamconf/internal/auth"
	"lamconf/internal/storage"
)

// cliActor identifies changes made from the command line in the audit trail.
const cliActor = "cli"

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := openBackends(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer b.Close()

			doc, err := storage.LoadDocument(cmd.Context(), b.settings)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, doc.RenderSummary())
			if doc.HasPassword() {
				fmt.Fprintln(out, "Password: set")
			} else {
				fmt.Fprintln(out, "Password: not set")
			}
			return nil
		},
	}
}

func newPasswdCmd(a *app) *cobra.Command {
	var password string
	var cost int
	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Set the configuration password",
		Long: `Set the configuration password directly on the backend. Use it to
bootstrap a fresh installation; afterwards the password is rotated through
the settings form. The password is taken from --password or
LAMCONF_ADMIN_PASSWORD.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("LAMCONF_ADMIN_PASSWORD")
			}
			if password == "" {
				return errors.New("no password given (use --password or LAMCONF_ADMIN_PASSWORD)")
			}
			ctx := cmd.Context()

			b, err := openBackends(ctx, a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer b.Close()

			doc, err := storage.LoadDocument(ctx, b.settings, storage.WithHashCost(cost))
			if err != nil {
				return err
			}
			before := doc.Settings()
			doc.SetPassword(password)
			if err := doc.Save(ctx); err != nil {
				return err
			}

			event := &audit.AuditEvent{
				Actor:        cliActor,
				ActorType:    audit.ActorTypeAdmin,
				Action:       audit.ActionUpdate,
				ResourceType: audit.ResourceSettings,
				ResourceID:   audit.SettingsResourceID,
				Changes:      audit.DiffSettings(before, doc.Settings(), true),
			}
			if err := b.audit.Log(ctx, event); err != nil {
				a.logger.Error("audit log failed", "error", err)
			}
			a.logger.Info("configuration password set", "backend", b.name)
			fmt.Fprintln(cmd.OutOrStdout(), "Password changed.")
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "new configuration password")
	cmd.Flags().IntVar(&cost, "cost", auth.DefaultCost, "bcrypt cost")
	return cmd
}

func newAuditCmd(a *app) *cobra.Command {
	var limit int
	var action string
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recent settings changes and login attempts",
		Long: `List the audit trail, newest first. Only the sqlite and postgres
backends keep the trail across restarts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := openBackends(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer b.Close()

			events, total, err := b.audit.List(cmd.Context(), audit.ListOptions{Limit: limit, Action: action})
			if err != nil {
				return err
			}
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{"Time", "Action", "Actor", "Status", "Detail", "Changes"})
			for _, e := range events {
				t.AppendRow(table.Row{
					e.Timestamp.Format(time.RFC3339), e.Action, e.Actor, e.StatusCode, e.Detail, formatChanges(e.Changes),
				})
			}
			t.Render()
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d events\n", len(events), total)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of events")
	cmd.Flags().StringVar(&action, "action", "", "only show this action (update, login)")
	return cmd
}

func formatChanges(c *audit.Changes) string {
	if c == nil {
		return "-"
	}
	var s string
	for _, key := range audit.ChangeKeys(c) {
		if s != "" {
			s += ", "
		}
		s += fmt.Sprintf("%s=%v", key, c.After[key])
	}
	return s
}

func newMigrateCmd(a *app) *cobra.Command {
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Inspect schema migrations of the SQL backends",
	}
	migrate.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the schema migration status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := migrationStatus(a.cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), status)
			return nil
		},
	})
	return migrate
}
