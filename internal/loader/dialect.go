// Package loader merges extracted CSV files into the lms database schema.
// Rows travel through per-entity staging tables; a three-step merge then
// inserts new records, updates changed ones and soft-deletes records that
// disappeared from the source system.
package loader

import (
	"fmt"
	"strings"
)

// Dialect abstracts the engine-specific corners of the merge SQL. The
// statement builders emit ANSI SQL everywhere else.
type Dialect interface {
	// Name selects the migration script directory.
	Name() string

	// Qualify prefixes a table name with the lms schema.
	Qualify(table string) string

	// Placeholder renders the 1-based nth bind parameter.
	Placeholder(n int) string

	// NowString is a SQL expression producing the current time formatted
	// as the canonical "YYYY-MM-DD HH:MM:SS" string the CSVs use.
	NowString() string

	// UpdateJoin builds an UPDATE of target from source. set entries are
	// "col = src.col" pairs; where may reference the aliases t and src.
	UpdateJoin(target, source string, set []string, where string) string

	// JournalExists is a query returning the number of migration journal
	// tables present (zero or one).
	JournalExists() string
}

// Postgres is the PostgreSQL dialect, served by the pgx stdlib driver.
type Postgres struct{}

func (Postgres) Name() string { return "postgresql" }

func (Postgres) Qualify(table string) string { return "lms." + table }

func (Postgres) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (Postgres) NowString() string {
	return "to_char(now(), 'YYYY-MM-DD HH24:MI:SS')"
}

func (Postgres) UpdateJoin(target, source string, set []string, where string) string {
	return fmt.Sprintf("UPDATE %s AS t SET %s FROM %s AS src WHERE %s",
		target, strings.Join(set, ", "), source, where)
}

func (Postgres) JournalExists() string {
	return "SELECT COUNT(1) FROM information_schema.tables WHERE table_schema = 'lms' AND table_name = 'migrationjournal'"
}

// MySQL is the MySQL dialect. The lms schema is a MySQL database, so
// qualified names resolve regardless of the connection's default database.
type MySQL struct{}

func (MySQL) Name() string { return "mysql" }

func (MySQL) Qualify(table string) string { return "lms." + table }

func (MySQL) Placeholder(int) string { return "?" }

func (MySQL) NowString() string {
	return "DATE_FORMAT(NOW(), '%Y-%m-%d %H:%i:%s')"
}

func (MySQL) UpdateJoin(target, source string, set []string, where string) string {
	// MySQL has no UPDATE ... FROM; the join moves into the UPDATE clause.
	rewritten := make([]string, len(set))
	for i, s := range set {
		rewritten[i] = "t." + s
	}
	return fmt.Sprintf("UPDATE %s AS t INNER JOIN %s AS src ON %s SET %s",
		target, source, where, strings.Join(rewritten, ", "))
}

func (MySQL) JournalExists() string {
	return "SELECT COUNT(1) FROM information_schema.tables WHERE table_schema = 'lms' AND table_name = 'migrationjournal'"
}
