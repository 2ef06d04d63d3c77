//go:build !cgo_sqlite

package markov

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

func openSnapshotDB(path string) (*sql.DB, error) {
	return sql.Open("sqlite", path)
}
