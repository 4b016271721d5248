package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"

	"github.com/roach88/slate/internal/config"
	"github.com/roach88/slate/internal/loader"
	"github.com/roach88/slate/internal/logging"
)

// runEnv bundles what every command builds first: configuration, the run
// logger and the error tracker that decides the final exit code.
type runEnv struct {
	cfg     *config.Config
	log     zerolog.Logger
	tracker *logging.Tracker
	runID   string
}

func newRunEnv(opts *RootOptions) (*runEnv, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	tracker := &logging.Tracker{}
	log, err := logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: os.Stderr,
	}, tracker)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	runID := uuid.NewString()
	log = log.With().Str("run", runID).Logger()

	return &runEnv{cfg: cfg, log: log, tracker: tracker, runID: runID}, nil
}

// finish converts recovered, logged errors into the failure exit code. A run
// that limped through with entity failures must not exit zero.
func (e *runEnv) finish() error {
	if e.tracker.Errored() {
		return NewExitError(ExitFailure,
			fmt.Sprintf("run %s completed with %d errors", e.runID, e.tracker.Count()))
	}
	e.log.Info().Msg("run complete")
	return nil
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openDatabase connects to the production lms database for the configured
// engine and returns the matching SQL dialect.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, loader.Dialect, error) {
	var (
		driver  string
		dialect loader.Dialect
	)
	switch cfg.Engine {
	case "postgresql":
		driver, dialect = "pgx", loader.Postgres{}
	case "mysql":
		driver, dialect = "mysql", loader.MySQL{}
	default:
		return nil, nil, fmt.Errorf("unsupported database engine %q", cfg.Engine)
	}

	db, err := sql.Open(driver, cfg.ConnectionString)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s database: %w", cfg.Engine, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("connect to %s database: %w", cfg.Engine, err)
	}
	return db, dialect, nil
}

// systemClock is the production time source for CSV file naming.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
