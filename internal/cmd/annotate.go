package cmd

import (
	"bufio"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/devgoel186/tracemon/internal/aggregator"
	"github.com/devgoel186/tracemon/internal/annotator"
	"github.com/devgoel186/tracemon/internal/config"
	"github.com/devgoel186/tracemon/internal/model"
	"github.com/devgoel186/tracemon/internal/output"
)

func newAnnotateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotate [trace]",
		Short: "Describe the filesystem operations in a trace",
		Long: `Read a trace once, from start to end, and print one description per
recognised operation. The trace defaults to ./log.txt; "-" reads stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.runAnnotate,
	}
	addAnnotateFlags(cmd)
	return cmd
}

func addAnnotateFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("summary", false, "print per-kind counts to stderr when done")
}

func (a *app) runAnnotate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	path := a.settings.Trace
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		path = config.DefaultTracePath
	}

	classifier, err := a.buildClassifier()
	if err != nil {
		return err
	}
	f, err := a.eventFilter()
	if err != nil {
		return err
	}

	out := bufio.NewWriter(cmd.OutOrStdout())
	defer out.Flush()

	renderer, err := output.New(a.settings.Output, out, a.settings.Color)
	if err != nil {
		return err
	}

	agg := aggregator.New(nil, nil, func() int { return 1 })
	ann := annotator.New(classifier, f, a.logger)
	ann.OnLine = func(model.RawLine) { agg.RecordLine() }

	err = ann.RunFile(ctx, path, func(ev model.Event) error {
		agg.Record(ev)
		return renderer.Render(ev)
	})
	if err != nil {
		return err
	}
	if err := out.Flush(); err != nil {
		return err
	}

	if summary, _ := cmd.Flags().GetBool("summary"); summary {
		return output.WriteSummary(cmd.ErrOrStderr(), agg.Snapshot())
	}
	return nil
}
