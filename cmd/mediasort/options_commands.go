package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"mediasort/internal/catalog"
	"mediasort/internal/config"
	"mediasort/internal/media"
	"mediasort/internal/vocab"
)

func newOptionsCommand(ctx *commandContext) *cobra.Command {
	optionsCmd := &cobra.Command{
		Use:   "options",
		Short: "Manage the type, category and tag vocabularies",
	}
	optionsCmd.AddCommand(newOptionsListCommand(ctx))
	optionsCmd.AddCommand(newOptionsAddCommand(ctx))
	return optionsCmd
}

func newOptionsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list [field]",
		Short: "List allowed values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := media.Fields
			if len(args) == 1 {
				field, err := vocab.ParseField(args[0])
				if err != nil {
					return err
				}
				fields = []media.Field{field}
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withReader(func(store *catalog.Store, logger *slog.Logger) error {
				registry, err := vocab.New(store, cfg.Vocabulary, logger)
				if err != nil {
					return err
				}
				var rows [][]string
				for _, field := range fields {
					for i, value := range registry.List(commandCtx(cmd), field) {
						rows = append(rows, []string{string(field), strconv.Itoa(i + 1), value})
					}
				}
				out := cmd.OutOrStdout()
				if len(rows) == 0 {
					fmt.Fprintln(out, "No values")
					return nil
				}
				fmt.Fprintln(out, renderTable([]string{"Field", "#", "Value"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft}))
				return nil
			})
		},
	}
}

func newOptionsAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <field> <value>",
		Short: "Add an allowed value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, err := vocab.ParseField(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withWriter(func(store *catalog.Store, logger *slog.Logger) error {
				registry, err := vocab.New(store, cfg.Vocabulary, logger)
				if err != nil {
					return err
				}
				added, err := registry.Add(commandCtx(cmd), field, args[1])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Added %s %q\n", added.Field, added.Value)
				if registry.Policy() == config.BackfillLegacy {
					fmt.Fprintf(out, "Filled %d record(s) with an empty %s\n", added.Backfilled, added.Field)
				}
				return nil
			})
		},
	}
}
