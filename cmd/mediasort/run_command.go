package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mediasort/internal/catalog"
	"mediasort/internal/config"
	"mediasort/internal/interaction"
	"mediasort/internal/logging"
	"mediasort/internal/media"
	"mediasort/internal/media/ffprobe"
	"mediasort/internal/metrics"
	"mediasort/internal/organizer"
	"mediasort/internal/pipeline"
	"mediasort/internal/playback"
	"mediasort/internal/preflight"
	"mediasort/internal/reconcile"
	"mediasort/internal/runlock"
	"mediasort/internal/trash"
	"mediasort/internal/vocab"
)

type runOptions struct {
	noShuffle bool
	seed      uint64
	assumeTTY bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Classify every file in the input directory",
		Long: "Serve each file in the input directory for classification. Commands at any\n" +
			"prompt: n/new, b/back, d/delete, s/skip, q/quit.",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if !opts.assumeTTY && !isTerminal(in) {
				return errors.New("stdin is not a terminal (use --assume-tty to read answers from a pipe)")
			}
			seeded := cmd.Flags().Changed("seed")
			return runCatalog(cmd.Context(), ctx, in, cmd.OutOrStdout(), opts, seeded)
		},
	}

	cmd.Flags().BoolVar(&opts.noShuffle, "no-shuffle", false, "Serve files in name order")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "Seed for the shuffle order")
	cmd.Flags().BoolVar(&opts.assumeTTY, "assume-tty", false, "Read answers from stdin even when it is not a terminal")
	return cmd
}

func runCatalog(parent context.Context, cctx *commandContext, in io.Reader, out io.Writer, opts runOptions, seeded bool) error {
	cfg, err := cctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := cctx.ensureLogger()
	if err != nil {
		return err
	}

	if failed := preflight.Failed(preflight.RunAll(cfg)); len(failed) > 0 {
		for _, result := range failed {
			fmt.Fprintf(out, "✗ %s: %s\n", result.Name, result.Detail)
		}
		return fmt.Errorf("%d preflight check(s) failed", len(failed))
	}

	lock, err := runlock.Acquire(cfg.LockPath())
	if err != nil {
		return err
	}
	defer lock.Release()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithRunID(ctx, cctx.runID)

	store, err := catalog.Open(cfg, logger)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()

	warnUnreconciled(ctx, store, cfg, logger)

	files, err := pipeline.Discover(cfg.Paths.InputDir, cfg.AllowsExtension)
	if err != nil {
		return err
	}
	if cfg.Media.Shuffle && !opts.noShuffle {
		var r *rand.Rand
		if seeded {
			r = rand.New(rand.NewPCG(opts.seed, opts.seed))
		}
		files = pipeline.Shuffle(files, r)
	}
	if len(files) == 0 {
		fmt.Fprintf(out, "No media files found in %s\n", cfg.Paths.InputDir)
		return nil
	}

	registry, err := vocab.New(store, cfg.Vocabulary, logger)
	if err != nil {
		return err
	}

	dispatcher := playback.NewDispatcher(playback.New(cfg.Player), logger, playback.DefaultQueueSize)
	defer dispatcher.Close()

	org := organizer.New(cfg, syncReleaser{dispatcher}, logger)
	controller := interaction.New(in, out, registry, org, dispatcher, logger)
	defer controller.Close()
	recorder := metrics.New()

	p := pipeline.New(pipeline.Dependencies{
		Store:        store,
		Organizer:    org,
		Trash:        trash.New(cfg.Trash.Dir, logger),
		Decider:      controller,
		Prober:       ffprobe.NewProber(cfg.FFprobeBinary(), cfg.ProbeTimeout()),
		Playback:     dispatcher,
		Metrics:      recorder,
		ReleaseDelay: cfg.ReleaseDelay(),
	}, logger)
	p.OnRecord = func(rec media.Record) {
		fmt.Fprintln(out, renderTable(recordHeaders, recordRows([]media.Record{rec}), recordAligns))
	}

	summary, runErr := p.Run(ctx, files)

	if err := recorder.Flush(cfg.Metrics.TextfilePath, time.Now()); err != nil {
		logging.WarnWithContext(logger, "metrics export failed", "metrics_flush_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "textfile collector shows stale values"),
		)
	}

	fmt.Fprintf(out, "Processed %d, deleted %d, skipped %d, failed %d (of %d files)\n",
		summary.Processed, summary.Deleted, summary.Skipped, summary.Failed, len(files))

	if errors.Is(runErr, pipeline.ErrQuit) {
		return nil
	}
	return runErr
}

// syncReleaser waits for the player to let go of the file before returning.
type syncReleaser struct {
	d *playback.Dispatcher
}

func (r syncReleaser) Release() {
	r.d.Release()
	r.d.Sync()
}

func warnUnreconciled(ctx context.Context, store *catalog.Store, cfg *config.Config, logger *slog.Logger) {
	findings, err := reconcile.New(store, cfg.Paths.OutputDir, logger).Scan(ctx)
	if err != nil {
		logging.WarnWithContext(logger, "reconciliation scan failed", "reconcile_scan_failed", logging.Error(err))
		return
	}
	if len(findings) == 0 {
		return
	}
	names := make([]string, 0, len(findings))
	for _, f := range findings {
		names = append(names, f.Record.SourceName)
	}
	logging.WarnWithContext(logger, "catalog rows need reconciliation", "reconcile_required",
		logging.Int("rows", len(findings)),
		logging.String("files", strings.Join(names, ", ")),
		logging.String(logging.FieldErrorHint, "run mediasort reconcile --apply"),
	)
}
