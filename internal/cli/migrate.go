package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/slate/internal/loader"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the lms database schema",
		Long: `Apply the numbered DDL scripts for the configured database engine.
Applied scripts are journaled, so migrate is safe to run repeatedly.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(rootOpts)
		},
	}
}

func runMigrate(opts *RootOptions) error {
	env, err := newRunEnv(opts)
	if err != nil {
		return err
	}
	if err := env.cfg.ValidateDatabase(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	db, dialect, err := openDatabase(ctx, env.cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "database unavailable", err)
	}
	defer db.Close()

	migrator := &loader.Migrator{DB: db, Dialect: dialect, Log: env.log}
	if err := migrator.Migrate(ctx); err != nil {
		return WrapExitError(ExitFailure, "migration failed", err)
	}
	return env.finish()
}
