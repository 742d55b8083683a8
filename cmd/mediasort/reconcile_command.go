package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"mediasort/internal/catalog"
	"mediasort/internal/reconcile"
)

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Find rows whose file was moved without the catalog being updated",
		Long: "List unfinished rows whose source file is gone and look for the file under\n" +
			"the output directory. With --apply, rows matched to exactly one file are\n" +
			"committed as processed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			body := func(store *catalog.Store, logger *slog.Logger) error {
				r := reconcile.New(store, cfg.Paths.OutputDir, logger)
				findings, err := r.Scan(commandCtx(cmd))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(findings) == 0 {
					fmt.Fprintln(out, "Catalog is consistent")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Source", "Status", "Location"},
					findingRows(findings),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
				))
				if !apply {
					fmt.Fprintln(out, "Run with --apply to commit located rows")
					return nil
				}
				result := r.Apply(commandCtx(cmd), findings)
				fmt.Fprintf(out, "Committed %d, failed %d, left untouched %d\n", result.Committed, result.Failed, result.Untouched)
				if result.Failed > 0 {
					return fmt.Errorf("%d row(s) could not be committed", result.Failed)
				}
				return nil
			}
			if apply {
				return ctx.withWriter(body)
			}
			return ctx.withReader(body)
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "Commit rows matched to exactly one file")
	return cmd
}

func findingRows(findings []reconcile.Finding) [][]string {
	rows := make([][]string, 0, len(findings))
	for _, f := range findings {
		location := ""
		switch f.Status {
		case reconcile.StatusLocated:
			location = f.Located.DestinationFile()
		case reconcile.StatusAmbiguous:
			location = strings.Join(f.Candidates, "\n")
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", f.Record.ID),
			f.Record.SourcePath,
			string(f.Status),
			location,
		})
	}
	return rows
}
