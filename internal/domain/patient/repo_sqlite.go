package patient

import (
	"database/sql"
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var sqliteDialect = dialect{
	truncate:    "DELETE FROM %s",
	isDuplicate: isSQLiteDuplicate,
}

// NewSQLiteRepo returns a Repository backed by a modernc.org/sqlite handle.
// The repository owns db and closes it in Close.
func NewSQLiteRepo(db *sql.DB, table string) (Repository, error) {
	return newSQLRepo(db, table, sqliteDialect)
}

func isSQLiteDuplicate(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		// Connections without extended result codes only report the
		// primary code.
		return strings.Contains(se.Error(), "UNIQUE constraint failed")
	}
	return false
}
