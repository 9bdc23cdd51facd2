package store

import (
	"database/sql"
	"fmt"
)

// CurrentSchemaVersion is bumped whenever the DDL in kindTableDDL or
// the fixed tables below changes shape.
const CurrentSchemaVersion = 1

// kindTableDDL returns the CREATE TABLE statement for a kind table.
// Every kind table shares the same shape: the common columns named in
// spec §3/§6 (index, name, url, content_pack_id, embedding), plus a
// `data` column holding the kind-specific fields (choices, cost,
// damage, nested references, …) as an opaque JSON blob — the
// repository layer parses `data` into a generic map (Entity.Data) read
// through accessors such as Float64 and String; no per-kind typed Go
// struct exists. The storage layer itself stays schema-uniform across
// kinds.
func kindTableDDL(table string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	"index"         TEXT NOT NULL,
	name            TEXT NOT NULL,
	url             TEXT NOT NULL DEFAULT '',
	content_pack_id TEXT NOT NULL,
	embedding       BLOB,
	data            TEXT NOT NULL DEFAULT '{}',
	UNIQUE("index", content_pack_id)
)`, table)
}

const contentPacksDDL = `
CREATE TABLE IF NOT EXISTS content_packs (
	id         TEXT NOT NULL,
	version    TEXT NOT NULL,
	is_active  INTEGER NOT NULL DEFAULT 1,
	author     TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (id, version)
)`

const migrationHistoryDDL = `
CREATE TABLE IF NOT EXISTS migration_history (
	version    INTEGER NOT NULL PRIMARY KEY,
	applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Bootstrap creates every kind table, content_packs, and
// migration_history if absent, then records CurrentSchemaVersion as
// applied. It is idempotent: re-running against an already-initialized
// file is a no-op beyond the version check.
func Bootstrap(db *sql.DB) error {
	if _, err := db.Exec(contentPacksDDL); err != nil {
		return &DatabaseError{Op: "bootstrap content_packs", Err: err}
	}
	if _, err := db.Exec(migrationHistoryDDL); err != nil {
		return &DatabaseError{Op: "bootstrap migration_history", Err: err}
	}
	for _, k := range AllKinds {
		table, err := TableName(k)
		if err != nil {
			return err
		}
		if _, err := db.Exec(kindTableDDL(table)); err != nil {
			return &DatabaseError{Op: "bootstrap kind table", Kind: k, Err: err}
		}
	}

	var applied int
	row := db.QueryRow(`SELECT COUNT(*) FROM migration_history WHERE version = ?`, CurrentSchemaVersion)
	if err := row.Scan(&applied); err != nil {
		return &DatabaseError{Op: "check migration_history", Err: err}
	}
	if applied == 0 {
		if _, err := db.Exec(`INSERT INTO migration_history (version) VALUES (?)`, CurrentSchemaVersion); err != nil {
			return &DatabaseError{Op: "record schema version", Err: err}
		}
	}
	return nil
}

// SchemaVersion returns the highest version recorded in
// migration_history, or 0 if the table is empty or missing.
func SchemaVersion(db *sql.DB) (int, error) {
	var version sql.NullInt64
	row := db.QueryRow(`SELECT MAX(version) FROM migration_history`)
	if err := row.Scan(&version); err != nil {
		return 0, nil // table likely doesn't exist yet; callers treat as version 0
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}

// TableExists reports whether a table is present in the schema.
func TableExists(db *sql.DB, table string) bool {
	var name string
	row := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name = ?`, table)
	return row.Scan(&name) == nil
}
