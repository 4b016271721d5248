package loader

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

//go:embed scripts
var scriptsFS embed.FS

// Migrator applies the numbered DDL scripts for one dialect, journaling each
// applied script so reruns are no-ops.
type Migrator struct {
	DB      *sql.DB
	Dialect Dialect
	Log     zerolog.Logger

	// Scripts overrides the embedded DDL scripts when set. The override
	// filesystem holds its .sql files at the root.
	Scripts fs.FS
}

// Migrate applies the embedded scripts for the configured dialect, or the
// Scripts override when one is set.
func (m *Migrator) Migrate(ctx context.Context) error {
	if m.Scripts != nil {
		return m.MigrateFS(ctx, m.Scripts, ".")
	}
	return m.MigrateFS(ctx, scriptsFS, path.Join("scripts", m.Dialect.Name()))
}

// MigrateFS applies every pending .sql script under dir in name order. Each
// script runs inside one transaction together with its journal entry.
func (m *Migrator) MigrateFS(ctx context.Context, fsys fs.FS, dir string) error {
	applied, err := m.appliedScripts(ctx)
	if err != nil {
		return err
	}

	names, err := fs.Glob(fsys, path.Join(dir, "*.sql"))
	if err != nil {
		return fmt.Errorf("list migration scripts: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		script := path.Base(name)
		if applied[script] {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", script, err)
		}
		if err := m.apply(ctx, script, string(content)); err != nil {
			return err
		}
		m.Log.Info().Str("script", script).Msg("migration applied")
	}
	return nil
}

func (m *Migrator) apply(ctx context.Context, script, content string) error {
	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", script, err)
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(content) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration %s: %w", script, err)
		}
	}

	journal := fmt.Sprintf("INSERT INTO %s (Script, AppliedAt) VALUES (%s, %s)",
		m.Dialect.Qualify("MigrationJournal"), m.Dialect.Placeholder(1), m.Dialect.NowString())
	if _, err := tx.ExecContext(ctx, journal, script); err != nil {
		return fmt.Errorf("journal migration %s: %w", script, err)
	}
	return tx.Commit()
}

// appliedScripts reads the journal, tolerating its absence on a fresh
// database (the first script creates it).
func (m *Migrator) appliedScripts(ctx context.Context) (map[string]bool, error) {
	var present int
	if err := m.DB.QueryRowContext(ctx, m.Dialect.JournalExists()).Scan(&present); err != nil {
		return nil, fmt.Errorf("check migration journal: %w", err)
	}
	if present == 0 {
		return map[string]bool{}, nil
	}

	query := "SELECT Script FROM " + m.Dialect.Qualify("MigrationJournal")
	rows, err := m.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read migration journal: %w", err)
	}
	defer rows.Close()

	applied := map[string]bool{}
	for rows.Next() {
		var script string
		if err := rows.Scan(&script); err != nil {
			return nil, fmt.Errorf("scan migration journal: %w", err)
		}
		applied[script] = true
	}
	return applied, rows.Err()
}

// splitStatements breaks a script into executable statements on semicolons.
// The DDL scripts carry no string literals containing semicolons.
func splitStatements(content string) []string {
	var statements []string
	for _, chunk := range strings.Split(content, ";") {
		if stmt := strings.TrimSpace(chunk); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}
