package store

import (
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"
)

// DB is one session's feed database.
type DB struct {
	*sql.DB
	path string
}

// dsnParams are go-sqlite3 connection options applied to every connection.
var dsnParams = url.Values{
	"_journal_mode": {"WAL"},
	"_busy_timeout": {"5000"},
	"_synchronous":  {"NORMAL"},
	"_txlock":       {"immediate"},
}

// Open opens (creating if needed) the database at path and checks that it is
// usable. Callers run Migrate before serving from it.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", path+"?"+dsnParams.Encode())
	if err != nil {
		return nil, fmt.Errorf("open feed db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("open feed db %s: %w", path, err)
	}
	return &DB{DB: sqlDB, path: path}, nil
}

// Path returns the file the database was opened from.
func (db *DB) Path() string { return db.path }
