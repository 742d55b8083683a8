package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mediasort/internal/catalog"
	"mediasort/internal/config"
	"mediasort/internal/media"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect catalog records",
	}
	catalogCmd.AddCommand(newCatalogListCommand(ctx))
	catalogCmd.AddCommand(newCatalogShowCommand(ctx))
	return catalogCmd
}

type catalogListOptions struct {
	processed bool
	pending   bool
	deleted   bool
	skipped   bool
	filter    catalog.Filter
	json      bool
}

func (o catalogListOptions) status() catalog.Status {
	switch {
	case o.processed:
		return catalog.StatusProcessed
	case o.pending:
		return catalog.StatusPending
	case o.deleted:
		return catalog.StatusDeleted
	case o.skipped:
		return catalog.StatusSkipped
	default:
		return catalog.StatusAny
	}
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var opts catalogListOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := opts.filter
			filter.Status = opts.status()
			return ctx.withReader(func(store *catalog.Store, _ *slog.Logger) error {
				records := store.Query(commandCtx(cmd), filter)
				if opts.json {
					if records == nil {
						records = []media.Record{}
					}
					return writeJSON(cmd, records)
				}
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No records")
					return nil
				}
				fmt.Fprintln(out, renderTable(recordHeaders, recordRows(records), recordAligns))
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.processed, "processed", false, "Only filed records")
	flags.BoolVar(&opts.pending, "pending", false, "Only records without a decision")
	flags.BoolVar(&opts.deleted, "deleted", false, "Only trashed records")
	flags.BoolVar(&opts.skipped, "skipped", false, "Only skipped records")
	flags.StringVar(&opts.filter.Type, "type", "", "Filter by type")
	flags.StringVar(&opts.filter.Category, "category", "", "Filter by category")
	flags.StringVar(&opts.filter.Tag, "tag", "", "Filter by tag")
	flags.IntVar(&opts.filter.MinRating, "min-rating", 0, "Minimum rating")
	flags.IntVar(&opts.filter.Limit, "limit", 0, "Maximum number of rows (0 for all)")
	flags.BoolVar(&opts.json, "json", false, "Output as JSON")
	cmd.MarkFlagsMutuallyExclusive("processed", "pending", "deleted", "skipped")
	return cmd
}

func newCatalogShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <source-path>",
		Short: "Show the record for a source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			return ctx.withReader(func(store *catalog.Store, _ *slog.Logger) error {
				rec, ok := store.Get(commandCtx(cmd), path)
				if !ok {
					return fmt.Errorf("no catalog record for %s", path)
				}
				if asJSON {
					return writeJSON(cmd, rec)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Source:      %s\n", rec.SourcePath)
				fmt.Fprintf(out, "File ID:     %d\n", rec.FileID)
				fmt.Fprintf(out, "Status:      %s\n", recordStatus(rec))
				fmt.Fprintf(out, "Type:        %s\n", rec.Type)
				fmt.Fprintf(out, "Category:    %s\n", rec.Category)
				fmt.Fprintf(out, "Tag:         %s\n", rec.Tag)
				fmt.Fprintf(out, "Rating:      %d\n", rec.Rating)
				fmt.Fprintf(out, "Resolution:  %s (%s)\n", rec.Resolution, media.QualityBucket(rec.Resolution))
				fmt.Fprintf(out, "Size:        %s\n", humanize.IBytes(uint64(max(rec.Size, 0))))
				fmt.Fprintf(out, "Decisions:   %d\n", rec.Count)
				if dest := rec.DestinationFile(); dest != "" {
					fmt.Fprintf(out, "Destination: %s\n", dest)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func commandCtx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
