//go:build cgo_sqlite

package markov

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

func openSnapshotDB(path string) (*sql.DB, error) {
	return sql.Open("sqlite3", path)
}
