package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/devgoel186/tracemon/internal/aggregator"
	"github.com/devgoel186/tracemon/internal/config"
	"github.com/devgoel186/tracemon/internal/hub"
	"github.com/devgoel186/tracemon/internal/output"
	"github.com/devgoel186/tracemon/internal/server"
	"github.com/devgoel186/tracemon/internal/tailer"
	"github.com/devgoel186/tracemon/internal/watcher"
)

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Follow growing trace files",
		Long: `Follow one or more trace files (or glob patterns) while a tracer appends
to them, printing descriptions as new lines arrive. Read positions are
saved so a restarted watch resumes where it stopped.

Examples:
  strace -f -o /tmp/build.strace make &
  tracemon watch /tmp/build.strace
  tracemon watch "/tmp/traces/**/*.strace" --serve --port 7777`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.runWatch,
	}

	cmd.Flags().Bool("serve", false, "serve the live dashboard")
	cmd.Flags().String(config.KeyPort, "7777", "dashboard port")
	cmd.Flags().String(config.KeyStateFile, ".tracemon-state.json", "where read positions are saved")
	cmd.Flags().Bool("from-start", false, "read existing content of files without a saved position")
	for _, key := range []string{config.KeyPort, config.KeyStateFile} {
		cobra.CheckErr(a.v.BindPFlag(key, cmd.Flags().Lookup(key)))
	}
	return cmd
}

func (a *app) runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	classifier, err := a.buildClassifier()
	if err != nil {
		return err
	}
	f, err := a.eventFilter()
	if err != nil {
		return err
	}
	renderer, err := output.New(a.settings.Output, cmd.OutOrStdout(), a.settings.Color)
	if err != nil {
		return err
	}

	w, err := watcher.New(args, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	paths := w.Paths()
	if len(paths) == 0 {
		w.Close()
		return fmt.Errorf("no files matched the given patterns: %v", args)
	}
	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "tracemon following %d trace file(s):\n", len(paths))
	for _, p := range paths {
		fmt.Fprintf(stderr, "   • %s\n", p)
	}

	ckpt, err := tailer.NewCheckpoint(a.settings.StateFile)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}
	fromStart, _ := cmd.Flags().GetBool("from-start")
	t := tailer.New(w, ckpt, tailer.Options{FromStart: fromStart}, a.logger)

	h := hub.New(t.Lines(), classifier, f, a.logger)
	h.SetSink(renderer.Render)
	agg := aggregator.New(h.Subscribe(), h.Dropped, func() int { return len(paths) })

	if serve, _ := cmd.Flags().GetBool("serve"); serve {
		srv := server.New(h, agg, classifier.Rules(), a.settings.Port, a.logger)
		go func() {
			if err := srv.Start(ctx); err != nil {
				a.logger.Error("dashboard stopped", "err", err)
			}
		}()
	}

	go w.Start(ctx)
	go t.Start(ctx)
	go agg.Start(ctx)

	// Printing happens inside the hub, so every event reaches stdout.
	h.Start(ctx)

	a.logger.Info("stopped following", "lines", h.Lines(), "events", agg.Snapshot().TotalEvents)
	return nil
}
