package cli

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/qembot/qembot/internal/aggregate"
	"github.com/qembot/qembot/internal/bot"
	"github.com/qembot/qembot/internal/config"
	"github.com/qembot/qembot/internal/dashboard"
	"github.com/qembot/qembot/internal/journal"
	"github.com/qembot/qembot/internal/openqa"
	"github.com/qembot/qembot/internal/pchelper"
	"github.com/qembot/qembot/internal/repohash"
)

// ScheduleOptions holds flags for the schedule command.
type ScheduleOptions struct {
	*RootOptions
	Dashboard     string
	OpenQA        string
	Token         string
	Dry           bool
	IgnoreOnetime bool
	JournalPath   string
	CIURL         string
}

// NewScheduleCommand creates the schedule command.
func NewScheduleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScheduleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schedule <configs-dir>",
		Short: "Decide and trigger aggregated test builds",
		Long: `Run one scheduling pass over every aggregate metadata file.

For each product/architecture the bot matches incidents against the
configured test templates, computes the repohash, decides whether a new
build is warranted and, unless --dry is given, updates the dashboard and
triggers the build on openQA.

Example:
  qembot schedule --token $QEM_TOKEN ./metadata
  qembot schedule --token $QEM_TOKEN --dry --journal ./qembot.db ./metadata`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dashboard, "dashboard", "https://dashboard.qam.suse.de", "QEM dashboard URL")
	cmd.Flags().StringVar(&opts.OpenQA, "openqa", "https://openqa.suse.de", "openQA instance URL")
	cmd.Flags().StringVar(&opts.Token, "token", "", "dashboard API token (required)")
	cmd.Flags().BoolVar(&opts.Dry, "dry", false, "compute decisions without posting anything")
	cmd.Flags().BoolVar(&opts.IgnoreOnetime, "ignore-onetime", false, "override the onetime gate")
	cmd.Flags().StringVar(&opts.JournalPath, "journal", "", "path to SQLite decision journal (optional)")
	cmd.Flags().StringVar(&opts.CIURL, "ci-url", os.Getenv("CI_JOB_URL"), "CI job URL recorded in trigger settings")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}

func runSchedule(opts *ScheduleOptions, configsDir string, cmd *cobra.Command) error {
	log := newLogger(opts.Verbose)

	configs, errs := config.Load(configsDir, config.LoadModeFailFast)
	if len(errs) > 0 {
		return WrapExitError(ExitCommandError, "loading metadata", errs[0])
	}
	if len(configs) == 0 {
		return NewExitError(ExitCommandError, "no aggregate metadata found in "+configsDir)
	}
	log.Info("metadata loaded", "aggregates", len(configs), "dir", configsDir)

	httpClient := &http.Client{Timeout: 30 * time.Second}
	dash := dashboard.New(opts.Dashboard, opts.Token, httpClient, log)
	runner := openqa.New(opts.OpenQA, httpClient, log)

	b := &bot.Bot{
		Log:       log,
		Configs:   configs,
		Incidents: dash,
		Prior:     dash,
		Records:   dash,
		Runner:    runner,
		Merger:    repohash.Merger{},
		Chain: aggregate.ResolverChain{
			ToolsImage: pchelper.ToolsImageResolver{HTTP: httpClient, Log: log},
			ImageRegex: pchelper.ImageRegexResolver{HTTP: httpClient, Log: log},
			Pint:       pchelper.PintResolver{HTTP: httpClient, Log: log},
		},
		DryRun:        opts.Dry,
		IgnoreOnetime: opts.IgnoreOnetime,
		CIURL:         opts.CIURL,
	}

	if opts.JournalPath != "" {
		j, err := journal.Open(opts.JournalPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "opening journal", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				log.Error("error closing journal", "error", closeErr)
			}
		}()
		b.Journal = j
	}

	sum, err := b.Run(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "bot run failed", err)
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	if err := formatter.Success(sum); err != nil {
		return WrapExitError(ExitCommandError, "writing output", err)
	}

	if sum.PostFailures > 0 {
		return NewExitError(ExitFailure, "some payloads could not be posted")
	}
	return nil
}

// newLogger builds the structured logger every component receives.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}
