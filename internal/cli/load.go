package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/slate/internal/csvio"
	"github.com/roach88/slate/internal/loader"
)

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Merge extracted CSV files into the lms database",
		Long: `Read the newest CSV file of every resource directory under the output
tree and merge it into the lms schema: new records are inserted, changed
records updated, and records missing from the latest pull soft-deleted.
Pending migrations are applied first, so load works on a fresh database.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(rootOpts)
		},
	}
}

func runLoad(opts *RootOptions) error {
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
	l := &loader.Loader{
		DB:      db,
		Dialect: dialect,
		Log:     env.log,
		Tree:    csvio.Tree{Base: env.cfg.Output},
	}
	if err := migrateAndLoad(ctx, migrator, l); err != nil {
		return err
	}
	return env.finish()
}

// migrateAndLoad applies pending migrations and then runs the merge, so a
// fresh database is bootstrapped before the first staging statement.
func migrateAndLoad(ctx context.Context, m *loader.Migrator, l *loader.Loader) error {
	if err := m.Migrate(ctx); err != nil {
		return WrapExitError(ExitFailure, "migration failed", err)
	}
	if err := l.Load(ctx); err != nil {
		return WrapExitError(ExitFailure, "load failed", err)
	}
	return nil
}
