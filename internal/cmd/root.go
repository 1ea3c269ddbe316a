package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/devgoel186/tracemon/internal/config"
	"github.com/devgoel186/tracemon/internal/filter"
	"github.com/devgoel186/tracemon/internal/parser"
)

// app carries state shared by the command tree for one invocation.
type app struct {
	v        *viper.Viper
	cfgFile  string
	settings *config.Settings
	logger   *slog.Logger
}

// NewRootCmd builds the command tree. Running it without a subcommand
// annotates a single trace, like "tracemon annotate".
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "tracemon [trace]",
		Short: "tracemon — filesystem activity from syscall traces",
		Long: `tracemon reads a textual system-call trace (as written by strace) and
prints one human-readable line per filesystem operation it recognises:
directory creation, removal and traversal, file deletion, hardlinks,
file creation, writes and reads.

Examples:
  strace -f -o log.txt make && tracemon
  tracemon annotate trace.log --filter 'kind == "read"'
  tracemon watch "/tmp/traces/**/*.strace" --serve`,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE:              a.runAnnotate,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "", "config file (default: $HOME/.tracemon.yaml or ./.tracemon.yaml)")
	pf.StringP(config.KeyOutput, "o", "text", "output format: text, json")
	pf.Bool(config.KeyColor, false, "colorize text output")
	pf.String(config.KeyFilter, "", `only print events matching this expression, e.g. 'kind == "read"'`)
	pf.String(config.KeyRules, "", "YAML file with additional rules")
	pf.BoolP(config.KeyVerbose, "v", false, "debug logging on stderr")
	for _, key := range []string{config.KeyOutput, config.KeyColor, config.KeyFilter, config.KeyRules, config.KeyVerbose} {
		cobra.CheckErr(a.v.BindPFlag(key, pf.Lookup(key)))
	}
	addAnnotateFlags(rootCmd)

	rootCmd.AddCommand(newAnnotateCmd(a), newWatchCmd(a), newRulesCmd(a))
	return rootCmd
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tracemon:", err)
		os.Exit(1)
	}
}

// setup reads the config file, resolves settings and builds the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", a.cfgFile, err)
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(home)
		}
		a.v.AddConfigPath(".")
		a.v.SetConfigName(".tracemon")
		a.v.SetConfigType("yaml")
		_ = a.v.ReadInConfig()
	}

	s, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.settings = s

	level := slog.LevelInfo
	if s.Verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	if used := a.v.ConfigFileUsed(); used != "" {
		a.logger.Debug("loaded config", "path", used)
	}
	return nil
}

// buildClassifier builds the built-in classifier plus any configured rules file.
func (a *app) buildClassifier() (*parser.Classifier, error) {
	if a.settings.Rules == "" {
		return parser.NewDefault(), nil
	}
	extra, err := parser.LoadRules(a.settings.Rules)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("loaded rules", "path", a.settings.Rules, "count", len(extra))
	return parser.WithRules(extra)
}

func (a *app) eventFilter() (*filter.Filter, error) {
	return filter.Compile(a.settings.Filter)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
