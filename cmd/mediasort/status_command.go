package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"mediasort/internal/catalog"
	"mediasort/internal/media"
	"mediasort/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check dependencies, directories and the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			fmt.Fprintln(out, "System")
			results := preflight.RunAll(cfg)
			for _, result := range results {
				printCheck(out, colorize, result)
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, "Catalog")
			err = ctx.withReader(func(store *catalog.Store, _ *slog.Logger) error {
				health, err := store.CheckHealth(commandCtx(cmd))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "  Database:   %s\n", health.DBPath)
				fmt.Fprintf(out, "  Integrity:  %s\n", yesNo(health.IntegrityCheck))
				fmt.Fprintf(out, "  Missing columns: %s\n", listOrNone(health.MissingColumns))

				stats, err := store.Stats(commandCtx(cmd))
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Total", "Pending", "Processed", "Deleted", "Skipped", "Decisions"},
					[][]string{{
						fmt.Sprint(stats.Total),
						fmt.Sprint(stats.Pending),
						fmt.Sprint(stats.Processed),
						fmt.Sprint(stats.Deleted),
						fmt.Sprint(stats.Skipped),
						fmt.Sprint(stats.Decisions),
					}},
					[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
				))
				for _, field := range media.Fields {
					fmt.Fprintf(out, "  %-9s %d value(s)\n", field+":", stats.Options[field])
				}
				return nil
			})
			if err != nil {
				return err
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d required check(s) failed", len(failed))
			}
			return nil
		},
	}
}

func printCheck(out io.Writer, colorize bool, result preflight.Result) {
	mark, color := "✓", ansiGreen
	switch {
	case !result.Passed && result.Optional:
		mark, color = "!", ansiYellow
	case !result.Passed:
		mark, color = "✗", ansiRed
	}
	if colorize {
		mark = color + mark + ansiReset
	}
	fmt.Fprintf(out, "  %s %s: %s\n", mark, result.Name, result.Detail)
}
