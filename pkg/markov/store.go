package markov

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/natefinch/atomic"
)

// snapshotVersion is bumped whenever the snapshot schema changes shape.
// Restore rejects snapshots with a different version.
const snapshotVersion = 1

const (
	schemaMeta = `
CREATE TABLE meta (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`
	schemaVocab = `
CREATE TABLE vocabulary (
    token_id INTEGER PRIMARY KEY,
    token_text TEXT NOT NULL UNIQUE
);
`
	schemaPrefixes = `
CREATE TABLE prefixes (
    prefix_id INTEGER PRIMARY KEY,
    prefix_text TEXT NOT NULL UNIQUE
);
`
	schemaChains = `
CREATE TABLE chains (
    prefix_id INTEGER NOT NULL,
    next_token_id INTEGER NOT NULL,
    frequency INTEGER NOT NULL,
    PRIMARY KEY (prefix_id, next_token_id)
);
`
)

// Persist writes the chain to a SQLite snapshot at path, replacing any
// existing file. The snapshot is written to a temporary sibling first and
// renamed into place, so an interrupted write never leaves a partial file
// at path. The fingerprint identifies the corpus the chain was built from;
// Restore refuses snapshots whose fingerprint does not match.
func (c *Chain) Persist(path, fingerprint string) error {
	tmp := path + ".tmp"
	_ = os.Remove(tmp)

	db, err := openSnapshotDB(tmp)
	if err != nil {
		return fmt.Errorf("could not open snapshot database: %w", err)
	}

	if err := c.writeSnapshot(db, fingerprint); err != nil {
		_ = db.Close()
		_ = os.Remove(tmp)
		return err
	}

	if err := db.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("could not close snapshot database: %w", err)
	}

	if err := atomic.ReplaceFile(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("could not move snapshot into place: %w", err)
	}

	c.logger.Info("Chain persisted",
		slog.String("path", path),
		slog.Int("prefix_count", len(c.prefixes)),
		slog.Int("links", c.transitionCount()),
	)

	return nil
}

func (c *Chain) writeSnapshot(db *sql.DB, fingerprint string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin snapshot transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	for _, schema := range []string{schemaMeta, schemaVocab, schemaPrefixes, schemaChains} {
		if _, err = tx.Exec(schema); err != nil {
			return fmt.Errorf("could not create snapshot schema: %w", err)
		}
	}

	stmtMeta, err := tx.Prepare(`INSERT INTO meta (key, value) VALUES (?, ?);`)
	if err != nil {
		return err
	}
	defer func(s *sql.Stmt) { _ = s.Close() }(stmtMeta)

	meta := [][2]string{
		{"version", strconv.Itoa(snapshotVersion)},
		{"order", strconv.Itoa(c.order)},
		{"fingerprint", fingerprint},
	}
	for _, kv := range meta {
		if _, err = stmtMeta.Exec(kv[0], kv[1]); err != nil {
			return fmt.Errorf("could not write snapshot meta %q: %w", kv[0], err)
		}
	}

	stmtVocab, err := tx.Prepare(`INSERT INTO vocabulary (token_id, token_text) VALUES (?, ?);`)
	if err != nil {
		return err
	}
	defer func(s *sql.Stmt) { _ = s.Close() }(stmtVocab)

	for id, text := range c.words {
		if _, err = stmtVocab.Exec(id, text); err != nil {
			return fmt.Errorf("could not write vocabulary entry %d: %w", id, err)
		}
	}

	stmtPrefix, err := tx.Prepare(`INSERT INTO prefixes (prefix_id, prefix_text) VALUES (?, ?);`)
	if err != nil {
		return err
	}
	defer func(s *sql.Stmt) { _ = s.Close() }(stmtPrefix)

	for id, key := range c.prefixes {
		if _, err = stmtPrefix.Exec(id, key); err != nil {
			return fmt.Errorf("could not write prefix entry %d: %w", id, err)
		}
	}

	stmtChain, err := tx.Prepare(`INSERT INTO chains (prefix_id, next_token_id, frequency) VALUES (?, ?, ?);`)
	if err != nil {
		return err
	}
	defer func(s *sql.Stmt) { _ = s.Close() }(stmtChain)

	// Insertion order matters: restore replays chains by rowid so the
	// in-memory link order is identical after a round trip.
	for pid, links := range c.links {
		for _, l := range links {
			if _, err = stmtChain.Exec(pid, l.TokenID, l.Weight); err != nil {
				return fmt.Errorf("could not write chain link (%d -> %d): %w", pid, l.TokenID, err)
			}
		}
	}

	return tx.Commit()
}

// Restore loads a chain from a snapshot previously written by Persist. Any
// failure, whether a missing file, a corrupt or truncated database, an
// order mismatch, or a fingerprint mismatch, is reported as a *RestoreError
// so the caller can fall back to rebuilding from the corpus. A wantFingerprint
// of "" skips the fingerprint check.
func Restore(path string, wantOrder int, wantFingerprint string) (*Chain, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &RestoreError{Path: path, Reason: "snapshot not found", Err: err}
	}

	db, err := openSnapshotDB(path)
	if err != nil {
		return nil, &RestoreError{Path: path, Reason: "could not open snapshot", Err: err}
	}
	defer func(db *sql.DB) {
		_ = db.Close()
	}(db)

	meta, err := readMeta(db)
	if err != nil {
		return nil, &RestoreError{Path: path, Reason: "could not read snapshot meta", Err: err}
	}

	if v, _ := strconv.Atoi(meta["version"]); v != snapshotVersion {
		return nil, &RestoreError{Path: path, Reason: fmt.Sprintf("unsupported snapshot version %q", meta["version"])}
	}
	order, err := strconv.Atoi(meta["order"])
	if err != nil || order < 1 {
		return nil, &RestoreError{Path: path, Reason: fmt.Sprintf("invalid snapshot order %q", meta["order"])}
	}
	if order != wantOrder {
		return nil, &RestoreError{Path: path, Reason: fmt.Sprintf("snapshot order %d does not match configured order %d", order, wantOrder)}
	}
	if wantFingerprint != "" && meta["fingerprint"] != wantFingerprint {
		return nil, &RestoreError{Path: path, Reason: "corpus fingerprint mismatch"}
	}

	c := newChain(order)

	if err := readVocabulary(db, c); err != nil {
		return nil, &RestoreError{Path: path, Reason: "invalid vocabulary table", Err: err}
	}
	if err := readPrefixes(db, c); err != nil {
		return nil, &RestoreError{Path: path, Reason: "invalid prefixes table", Err: err}
	}
	if err := readChains(db, c); err != nil {
		return nil, &RestoreError{Path: path, Reason: "invalid chains table", Err: err}
	}

	return c, nil
}

func readMeta(db *sql.DB) (map[string]string, error) {
	rows, err := db.Query(`SELECT key, value FROM meta;`)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err = rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		meta[k] = v
	}
	return meta, rows.Err()
}

func readVocabulary(db *sql.DB, c *Chain) error {
	rows, err := db.Query(`SELECT token_id, token_text FROM vocabulary ORDER BY token_id;`)
	if err != nil {
		return err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	for rows.Next() {
		var id int
		var text string
		if err = rows.Scan(&id, &text); err != nil {
			return err
		}
		switch {
		case id == StartTokenID:
			if text != StartTokenText {
				return fmt.Errorf("token %d is %q, want %q", id, text, StartTokenText)
			}
		case id == EndTokenID:
			if text != EndTokenText {
				return fmt.Errorf("token %d is %q, want %q", id, text, EndTokenText)
			}
		case id != len(c.words):
			return fmt.Errorf("non-contiguous token id %d", id)
		default:
			c.words = append(c.words, text)
			c.vocab[text] = id
		}
	}
	return rows.Err()
}

func readPrefixes(db *sql.DB, c *Chain) error {
	rows, err := db.Query(`SELECT prefix_id, prefix_text FROM prefixes ORDER BY prefix_id;`)
	if err != nil {
		return err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	for rows.Next() {
		var id int
		var key string
		if err = rows.Scan(&id, &key); err != nil {
			return err
		}
		if id != len(c.prefixes) {
			return fmt.Errorf("non-contiguous prefix id %d", id)
		}
		ids, err := parsePrefixKey(key)
		if err != nil {
			return fmt.Errorf("malformed prefix %q: %w", key, err)
		}
		if len(ids) != c.order {
			return fmt.Errorf("prefix %q has length %d, want %d", key, len(ids), c.order)
		}
		for _, tokenID := range ids {
			if tokenID < 0 || tokenID >= len(c.words) {
				return fmt.Errorf("prefix %q references unknown token %d", key, tokenID)
			}
		}
		c.prefixIDFor(key)
	}
	return rows.Err()
}

func readChains(db *sql.DB, c *Chain) error {
	rows, err := db.Query(`SELECT prefix_id, next_token_id, frequency FROM chains ORDER BY rowid;`)
	if err != nil {
		return err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	for rows.Next() {
		var pid, tokenID, weight int
		if err = rows.Scan(&pid, &tokenID, &weight); err != nil {
			return err
		}
		if pid < 0 || pid >= len(c.prefixes) {
			return fmt.Errorf("chain link references unknown prefix %d", pid)
		}
		if tokenID < 0 || tokenID >= len(c.words) {
			return fmt.Errorf("chain link references unknown token %d", tokenID)
		}
		if weight < 1 {
			return fmt.Errorf("chain link (%d -> %d) has non-positive weight %d", pid, tokenID, weight)
		}
		c.addLink(pid, tokenID, weight)
	}
	return rows.Err()
}
