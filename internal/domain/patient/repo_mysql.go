package patient

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ER_DUP_ENTRY
const mysqlDuplicateEntry = 1062

var mysqlDialect = dialect{
	truncate:    "TRUNCATE TABLE %s",
	isDuplicate: isMySQLDuplicate,
}

// NewMySQLRepo returns a Repository backed by a go-sql-driver/mysql handle.
// The DSN must set parseTime=true so DATE columns scan as time.Time.
func NewMySQLRepo(db *sql.DB, table string) (Repository, error) {
	return newSQLRepo(db, table, mysqlDialect)
}

func isMySQLDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
