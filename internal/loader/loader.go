package loader

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/roach88/slate/internal/csvio"
	"github.com/roach88/slate/internal/udm"
)

// maxDescriptionLength is the width of the AssignmentDescription column.
// Longer values are truncated on the way into staging.
const maxDescriptionLength = 1024

// Loader merges the newest CSV file of every resource directory into the
// lms schema. Resources are processed parent-first so child inserts can
// resolve surrogate keys.
type Loader struct {
	DB      *sql.DB
	Dialect Dialect
	Log     zerolog.Logger
	Tree    csvio.Tree
}

// fileBatch is one CSV file read into staging-column order.
type fileBatch struct {
	path string
	rows [][]any
}

// Load runs the full merge across every resource.
func (l *Loader) Load(ctx context.Context) error {
	for _, resource := range udm.LoadOrder {
		if err := l.loadResource(ctx, resource); err != nil {
			return fmt.Errorf("load %s: %w", resource, err)
		}
	}
	return nil
}

func (l *Loader) loadResource(ctx context.Context, resource udm.Resource) error {
	files, err := l.resourceFiles(resource)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		l.Log.Debug().Str("resource", string(resource)).Msg("no files to load")
		return nil
	}

	fresh, err := l.anyUnprocessed(ctx, files)
	if err != nil {
		return err
	}
	if !fresh {
		l.Log.Info().Str("resource", string(resource)).Msg("all files already processed")
		return nil
	}

	// Every current file is staged together, even ones seen before:
	// soft deletes compare production against the complete staged state.
	var batches []fileBatch
	for _, path := range files {
		batch, err := l.readFile(resource, path)
		if err != nil {
			return err
		}
		batches = append(batches, batch)
	}

	if err := l.merge(ctx, Specs[resource], batches); err != nil {
		return err
	}
	return l.recordProcessed(ctx, resource, batches)
}

// resourceFiles collects the newest CSV file from every directory holding
// the resource.
func (l *Loader) resourceFiles(resource udm.Resource) ([]string, error) {
	if !resource.SectionScoped() {
		var dir string
		if resource == udm.ResourceUsers {
			dir = l.Tree.Users()
		} else {
			dir = l.Tree.Sections()
		}
		return appendNewest(nil, dir)
	}

	sectionDirs, err := l.Tree.SectionDirs()
	if err != nil {
		return nil, err
	}

	var files []string
	for _, sectionDir := range sectionDirs {
		if resource != udm.ResourceSubmissions {
			files, err = appendNewest(files, filepath.Join(sectionDir, string(resource)))
			if err != nil {
				return nil, err
			}
			continue
		}

		assignmentDirs, err := csvio.AssignmentDirs(sectionDir)
		if err != nil {
			return nil, err
		}
		for _, assignmentDir := range assignmentDirs {
			files, err = appendNewest(files, filepath.Join(assignmentDir, string(resource)))
			if err != nil {
				return nil, err
			}
		}
	}
	return files, nil
}

func appendNewest(files []string, dir string) ([]string, error) {
	path, err := csvio.NewestFile(dir)
	if err != nil {
		return nil, err
	}
	if path != "" {
		files = append(files, path)
	}
	return files, nil
}

// anyUnprocessed reports whether at least one file is absent from the
// processed-files journal.
func (l *Loader) anyUnprocessed(ctx context.Context, files []string) (bool, error) {
	query := fmt.Sprintf("SELECT COUNT(1) FROM %s WHERE FullPath = %s",
		l.Dialect.Qualify("ProcessedFiles"), l.Dialect.Placeholder(1))

	for _, path := range files {
		var n int
		if err := l.DB.QueryRowContext(ctx, query, path).Scan(&n); err != nil {
			return false, fmt.Errorf("query processed files: %w", err)
		}
		if n == 0 {
			return true, nil
		}
	}
	return false, nil
}

// recordProcessed journals files not seen before.
func (l *Loader) recordProcessed(ctx context.Context, resource udm.Resource, batches []fileBatch) error {
	exists := fmt.Sprintf("SELECT COUNT(1) FROM %s WHERE FullPath = %s",
		l.Dialect.Qualify("ProcessedFiles"), l.Dialect.Placeholder(1))
	insert := fmt.Sprintf(
		"INSERT INTO %s (FullPath, ResourceName, NumberOfRows, UploadDateTime) VALUES (%s, %s, %s, %s)",
		l.Dialect.Qualify("ProcessedFiles"),
		l.Dialect.Placeholder(1), l.Dialect.Placeholder(2), l.Dialect.Placeholder(3), l.Dialect.NowString())

	for _, batch := range batches {
		var n int
		if err := l.DB.QueryRowContext(ctx, exists, batch.path).Scan(&n); err != nil {
			return fmt.Errorf("query processed files: %w", err)
		}
		if n > 0 {
			continue
		}
		if _, err := l.DB.ExecContext(ctx, insert, batch.path, string(resource), len(batch.rows)); err != nil {
			return fmt.Errorf("record processed file %s: %w", batch.path, err)
		}
	}
	return nil
}

// merge runs the staged three-step merge for one resource in a single
// transaction.
func (l *Loader) merge(ctx context.Context, spec TableSpec, batches []fileBatch) error {
	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin merge: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, TruncateStaging(l.Dialect, spec)); err != nil {
		return fmt.Errorf("truncate staging %s: %w", spec.Staging, err)
	}

	stmt, err := tx.PrepareContext(ctx, InsertStaging(l.Dialect, spec))
	if err != nil {
		return fmt.Errorf("prepare staging insert: %w", err)
	}
	defer stmt.Close()

	staged := 0
	for _, batch := range batches {
		for _, row := range batch.rows {
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				return fmt.Errorf("stage row from %s: %w", batch.path, err)
			}
			staged++
		}
	}

	inserted, err := execCount(ctx, tx, InsertNew(l.Dialect, spec))
	if err != nil {
		return fmt.Errorf("insert new %s: %w", spec.Table, err)
	}
	updated, err := execCount(ctx, tx, UpdateChanged(l.Dialect, spec))
	if err != nil {
		return fmt.Errorf("update changed %s: %w", spec.Table, err)
	}
	deleted, err := execCount(ctx, tx, SoftDelete(l.Dialect, spec))
	if err != nil {
		return fmt.Errorf("soft delete %s: %w", spec.Table, err)
	}

	var unresolved int
	if err := tx.QueryRowContext(ctx, CountUnresolved(l.Dialect, spec)).Scan(&unresolved); err != nil {
		return fmt.Errorf("count unresolved %s: %w", spec.Table, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit merge %s: %w", spec.Table, err)
	}

	event := l.Log.Info().
		Str("resource", string(spec.Resource)).
		Int("staged", staged).
		Int64("inserted", inserted).
		Int64("updated", updated).
		Int64("deleted", deleted)
	if unresolved > 0 {
		l.Log.Warn().
			Str("resource", string(spec.Resource)).
			Int("skipped", unresolved).
			Msg("rows skipped, parent records not found")
	}
	event.Msg("merge complete")
	return nil
}

func execCount(ctx context.Context, tx *sql.Tx, query string) (int64, error) {
	res, err := tx.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}
