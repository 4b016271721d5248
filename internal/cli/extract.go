package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/slate/internal/config"
	"github.com/roach88/slate/internal/csvio"
	"github.com/roach88/slate/internal/extract"
	"github.com/roach88/slate/internal/extract/canvas"
	"github.com/roach88/slate/internal/extract/classroom"
	"github.com/roach88/slate/internal/extract/schoology"
	"github.com/roach88/slate/internal/fetch"
	"github.com/roach88/slate/internal/syncstore"
)

// NewExtractCommand groups the per-vendor extract commands.
func NewExtractCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Pull LMS data into the CSV tree",
		Long: `Pull users, sections, enrollments, assignments, submissions, grades
and attendance from one LMS, reconcile them against the local sync database,
and write each entity as a dated CSV file under the output directory.`,
	}

	cmd.AddCommand(newExtractCanvasCommand(rootOpts))
	cmd.AddCommand(newExtractClassroomCommand(rootOpts))
	cmd.AddCommand(newExtractSchoologyCommand(rootOpts))
	return cmd
}

// newExtractRun opens the sync store and builds the shared run context.
// The caller closes the returned store.
func newExtractRun(env *runEnv) (*extract.Run, *syncstore.Store, error) {
	store, err := syncstore.Open(env.cfg.SyncDB)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open sync database", err)
	}
	run := &extract.Run{
		Log:   env.log,
		Store: store,
		Tree:  csvio.Tree{Base: env.cfg.Output},
		Clock: systemClock{},
	}
	return run, store, nil
}

func newExtractCanvasCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "canvas",
		Short:         "Extract from the Canvas GraphQL API",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtractCanvas(rootOpts)
		},
	}
}

func runExtractCanvas(opts *RootOptions) error {
	env, err := newRunEnv(opts)
	if err != nil {
		return err
	}
	if err := env.cfg.ValidateCanvas(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	startDate, endDate, err := canvasDates(env.cfg.Canvas)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	run, store, err := newExtractRun(env)
	if err != nil {
		return err
	}
	defer store.Close()

	client := canvas.NewClient(
		fetch.New(fetch.Options{Logger: env.log}),
		env.cfg.Canvas.BaseURL, env.cfg.Canvas.Token, env.cfg.Canvas.AccountID, 0)
	extractor := &canvas.Extractor{
		Client:    client,
		Run:       run,
		StartDate: startDate,
		EndDate:   endDate,
	}

	ctx, cancel := signalContext()
	defer cancel()
	if err := extractor.Extract(ctx); err != nil {
		return WrapExitError(ExitFailure, "extraction aborted", err)
	}
	return env.finish()
}

func canvasDates(cfg config.CanvasConfig) (start, end time.Time, err error) {
	if cfg.StartDate != "" {
		if start, err = time.Parse("2006-01-02", cfg.StartDate); err != nil {
			return start, end, err
		}
	}
	if cfg.EndDate != "" {
		end, err = time.Parse("2006-01-02", cfg.EndDate)
	}
	return start, end, err
}

func newExtractClassroomCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "classroom",
		Short:         "Extract from the Google Classroom API",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtractClassroom(rootOpts)
		},
	}
}

func runExtractClassroom(opts *RootOptions) error {
	env, err := newRunEnv(opts)
	if err != nil {
		return err
	}
	if err := env.cfg.ValidateClassroom(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	run, store, err := newExtractRun(env)
	if err != nil {
		return err
	}
	defer store.Close()

	client := classroom.NewClient(
		fetch.New(fetch.Options{Logger: env.log}),
		env.cfg.Classroom.Token, env.cfg.Classroom.BaseURL)
	extractor := &classroom.Extractor{Client: client, Run: run}

	ctx, cancel := signalContext()
	defer cancel()
	if err := extractor.Extract(ctx); err != nil {
		return WrapExitError(ExitFailure, "extraction aborted", err)
	}
	return env.finish()
}

func newExtractSchoologyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "schoology",
		Short:         "Extract from the Schoology REST API",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtractSchoology(rootOpts)
		},
	}
}

func runExtractSchoology(opts *RootOptions) error {
	env, err := newRunEnv(opts)
	if err != nil {
		return err
	}
	if err := env.cfg.ValidateSchoology(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	run, store, err := newExtractRun(env)
	if err != nil {
		return err
	}
	defer store.Close()

	client := schoology.NewClient(
		fetch.New(fetch.Options{Logger: env.log}),
		env.cfg.Schoology.Key, env.cfg.Schoology.Secret,
		"", env.cfg.Schoology.PageSize)
	extractor := &schoology.Extractor{
		Client:         client,
		Run:            run,
		GradingPeriods: env.cfg.Schoology.GradingPeriods,
	}

	ctx, cancel := signalContext()
	defer cancel()
	if err := extractor.Extract(ctx); err != nil {
		return WrapExitError(ExitFailure, "extraction aborted", err)
	}
	return env.finish()
}
