package db

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	sqlite3 "github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SQLiteDriverName is the database/sql driver registered with the
// application's SQL functions. Every sqlite connection goes through it.
const SQLiteDriverName = "sqlite3_moviestore"

// sqlite's LOWER and LIKE only fold ASCII, so "É" never matches "é".
const sqliteFoldFunc = "casefold"

var registerSQLiteDriver sync.Once

// SQLiteDialector opens dsn through the registered driver.
func SQLiteDialector(dsn string) gorm.Dialector {
	registerSQLiteDriver.Do(func() {
		sql.Register(SQLiteDriverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc(sqliteFoldFunc, strings.ToLower, true)
			},
		})
	})
	return sqlite.New(sqlite.Config{DriverName: SQLiteDriverName, DSN: dsn})
}

// ContainsFold returns a condition matching rows where column contains the
// bound LIKE pattern, ignoring case outside ASCII too. The pattern must escape
// its wildcards with a backslash.
func ContainsFold(conn *gorm.DB, column string) string {
	if conn.Dialector.Name() == "sqlite" {
		return fmt.Sprintf(`%[1]s(%[2]s) LIKE %[1]s(?) ESCAPE '\'`, sqliteFoldFunc, column)
	}
	return fmt.Sprintf(`%s ILIKE ? ESCAPE '\'`, column)
}
