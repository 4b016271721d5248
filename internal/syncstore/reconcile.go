package syncstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/roach88/slate/internal/udm"
)

// Record is implemented by every UDM entity type. WithDates returns a copy
// of the record with its CreateDate and LastModifiedDate set; the value
// receiver keeps reconciliation free of aliasing surprises.
type Record[T any] interface {
	Key() string
	WithDates(create, modified udm.Timestamp) T
}

// Reconcile merges one pull's batch for a resource into the store and
// returns the batch with dates assigned:
//
//   - identifiers never seen before get CreateDate = now
//   - identifiers already stored keep their original CreateDate
//   - every record gets LastModifiedDate = now (a record present in a pull
//     is current as of that pull, whether or not its content changed)
//
// The whole merge is one transaction: append every row, then prune each
// identifier back to its most recently written row. Overlapping pulls
// therefore converge on the latest observed state, and a failure anywhere
// leaves the store exactly as it was.
func Reconcile[T Record[T]](ctx context.Context, s *Store, resource udm.Resource, batch []T) ([]T, error) {
	if len(batch) == 0 {
		return batch, nil
	}

	now := udm.NewTimestamp(s.clock.Now())
	table := resource.SyncTable()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin %s: %v", ErrStorageUnavailable, table, err)
	}
	defer tx.Rollback()

	creates, err := lookupCreateDates(ctx, tx, table, batch, now)
	if err != nil {
		return nil, err
	}

	stamped := make([]T, len(batch))
	for i, rec := range batch {
		stamped[i] = rec.WithDates(creates[i], now)
	}

	if err := appendBatch(ctx, tx, table, stamped, creates, now); err != nil {
		return nil, err
	}

	// Keep only the newest row per identifier. This resolves both overlap
	// between pulls and duplicates within a single pull: last write wins.
	_, err = tx.ExecContext(ctx, fmt.Sprintf(
		"DELETE FROM %[1]s WHERE rowid NOT IN (SELECT MAX(rowid) FROM %[1]s GROUP BY id)", table))
	if err != nil {
		return nil, fmt.Errorf("%w: prune %s: %v", ErrStorageUnavailable, table, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit %s: %v", ErrStorageUnavailable, table, err)
	}

	return stamped, nil
}

// lookupCreateDates resolves the CreateDate for each record in batch order:
// the stored date for identifiers seen in an earlier pull, now otherwise.
func lookupCreateDates[T Record[T]](ctx context.Context, tx *sql.Tx, table string, batch []T, now udm.Timestamp) ([]udm.Timestamp, error) {
	lookup, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"SELECT create_date FROM %s WHERE id = ? ORDER BY rowid DESC LIMIT 1", table))
	if err != nil {
		return nil, fmt.Errorf("%w: prepare lookup %s: %v", ErrStorageUnavailable, table, err)
	}
	defer lookup.Close()

	// Identifiers duplicated within the batch must share one CreateDate,
	// even on the very first pull when the table has no row for them yet.
	seen := make(map[string]udm.Timestamp, len(batch))

	creates := make([]udm.Timestamp, len(batch))
	for i, rec := range batch {
		id := rec.Key()

		create, ok := seen[id]
		if !ok {
			var stored string
			err := lookup.QueryRowContext(ctx, id).Scan(&stored)
			switch {
			case err == sql.ErrNoRows:
				create = now
			case err != nil:
				return nil, fmt.Errorf("%w: lookup %s id=%s: %v", ErrStorageUnavailable, table, id, err)
			default:
				create, err = udm.ParseTimestamp(stored)
				if err != nil {
					return nil, fmt.Errorf("%w: stored create date %s id=%s: %v", ErrStorageUnavailable, table, id, err)
				}
			}
			seen[id] = create
		}

		creates[i] = create
	}

	return creates, nil
}

// appendBatch writes every stamped record, payload serialized as JSON.
func appendBatch[T Record[T]](ctx context.Context, tx *sql.Tx, table string, stamped []T, creates []udm.Timestamp, now udm.Timestamp) error {
	insert, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (id, payload, create_date, last_modified_date) VALUES (?, ?, ?, ?)", table))
	if err != nil {
		return fmt.Errorf("%w: prepare insert %s: %v", ErrStorageUnavailable, table, err)
	}
	defer insert.Close()

	for i, rec := range stamped {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal %s id=%s: %w", table, rec.Key(), err)
		}

		_, err = insert.ExecContext(ctx, rec.Key(), string(payload), creates[i].String(), now.String())
		if err != nil {
			return fmt.Errorf("%w: insert %s id=%s: %v", ErrStorageUnavailable, table, rec.Key(), err)
		}
	}

	return nil
}
