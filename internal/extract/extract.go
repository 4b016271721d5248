// Package extract holds what the vendor connectors share: the per-run
// context object threaded through every stage, and the sync-then-write step
// that every entity pull ends with.
package extract

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/slate/internal/csvio"
	"github.com/roach88/slate/internal/syncstore"
	"github.com/roach88/slate/internal/udm"
)

// Clock is the time source for CSV file naming.
type Clock interface {
	Now() time.Time
}

// Run carries the collaborators one extractor run needs. It is constructed
// once per invocation and passed by reference to each stage; there is no
// package-level shared state.
type Run struct {
	Log   zerolog.Logger
	Store *syncstore.Store
	Tree  csvio.Tree
	Clock Clock
}

// SyncAndWrite reconciles one entity batch against the local store and
// writes the stamped batch to a dated CSV file under dir.
//
// Storage failures are fatal for the run and returned as-is; the caller
// checks Fatal to distinguish them from per-entity fetch errors, which are
// logged and skipped.
func SyncAndWrite[T syncstore.Record[T]](ctx context.Context, run *Run, resource udm.Resource, rows []T, dir string) error {
	stamped, err := syncstore.Reconcile(ctx, run.Store, resource, rows)
	if err != nil {
		return err
	}

	path, err := csvio.Write(dir, stamped, run.Clock.Now())
	if err != nil {
		return err
	}

	run.Log.Info().
		Str("resource", string(resource)).
		Int("rows", len(stamped)).
		Str("file", path).
		Msg("resource written")
	return nil
}

// Fatal reports whether an error must abort the whole run rather than just
// the current entity. Today that is exactly the storage errors.
func Fatal(err error) bool {
	return errors.Is(err, syncstore.ErrStorageUnavailable)
}
