package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"mediasort/internal/catalog"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables and columns and report the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWriter(func(store *catalog.Store, _ *slog.Logger) error {
				report := store.Migration()
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database: %s\n", store.Path())
				fmt.Fprintf(out, "Columns added:   %s\n", listOrNone(report.Added))
				fmt.Fprintf(out, "Columns present: %s\n", listOrNone(report.Present))
				fmt.Fprintf(out, "Columns failed:  %s\n", listOrNone(report.Failed))

				applied, err := store.AppliedMigrations(commandCtx(cmd))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Migration history: %d entr%s\n", len(applied), pluralY(len(applied)))
				if !report.Complete() {
					return fmt.Errorf("%d column statement(s) failed", len(report.Failed))
				}
				return nil
			})
		},
	}
}

func listOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
