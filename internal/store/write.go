package store

import (
	"context"
	"database/sql"
	"fmt"
)

// UpsertContentPack inserts or updates the (id, version) pack row.
func (s *ContentStore) UpsertContentPack(ctx context.Context, id, version, author string, active bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO content_packs (id, version, is_active, author, created_at, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(id, version) DO UPDATE SET is_active = excluded.is_active, author = excluded.author, updated_at = CURRENT_TIMESTAMP
	`, id, version, boolToInt(active), author)
	if err != nil {
		return &DatabaseError{Op: "UpsertContentPack", Err: err}
	}
	return nil
}

// InsertRow writes a catalog row, failing with ValidationError if the
// embedding's length is non-zero but does not match dim.
func (s *ContentStore) InsertRow(ctx context.Context, k Kind, r Row, embedding []float32, dim int) error {
	table, err := TableName(k)
	if err != nil {
		return err
	}
	if len(embedding) != 0 && len(embedding) != dim {
		return &ValidationError{Field: "embedding", Value: r.Index, Msg: fmt.Sprintf("expected dim %d, got %d", dim, len(embedding))}
	}

	var blob []byte
	if len(embedding) > 0 {
		blob = encodeVector(embedding)
	}

	q := fmt.Sprintf(`
		INSERT INTO %s ("index", name, url, content_pack_id, embedding, data)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT("index", content_pack_id) DO UPDATE SET
			name = excluded.name, url = excluded.url, data = excluded.data,
			embedding = COALESCE(excluded.embedding, %s.embedding)
	`, table, table)
	if _, err := s.db.ExecContext(ctx, q, r.Index, r.Name, r.URL, r.ContentPackID, blob, r.Data); err != nil {
		return &DatabaseError{Op: "InsertRow", Kind: k, Err: err}
	}
	return nil
}

// BeginKind opens a transaction for bulk-loading one kind's table, the
// unit the migrate job commits or rolls back as a whole (spec §4.9:
// "a validation failure on any record aborts that kind's transaction
// ... but does not abort remaining kinds").
func (s *ContentStore) BeginKind(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &DatabaseError{Op: "BeginKind", Err: err}
	}
	return tx, nil
}

// InsertRowTx is InsertRow scoped to an in-flight transaction, used by
// the migrate job so a failed record rolls back only its own kind.
func (s *ContentStore) InsertRowTx(ctx context.Context, tx *sql.Tx, k Kind, r Row, embedding []float32, dim int) error {
	table, err := TableName(k)
	if err != nil {
		return err
	}
	if len(embedding) != 0 && len(embedding) != dim {
		return &ValidationError{Field: "embedding", Value: r.Index, Msg: fmt.Sprintf("expected dim %d, got %d", dim, len(embedding))}
	}

	var blob []byte
	if len(embedding) > 0 {
		blob = encodeVector(embedding)
	}

	q := fmt.Sprintf(`
		INSERT INTO %s ("index", name, url, content_pack_id, embedding, data)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT("index", content_pack_id) DO UPDATE SET
			name = excluded.name, url = excluded.url, data = excluded.data,
			embedding = COALESCE(excluded.embedding, %s.embedding)
	`, table, table)
	if _, err := tx.ExecContext(ctx, q, r.Index, r.Name, r.URL, r.ContentPackID, blob, r.Data); err != nil {
		return &DatabaseError{Op: "InsertRowTx", Kind: k, Err: err}
	}
	return nil
}

// RowsMissingEmbedding returns the indices (and pack ids) of rows with
// no embedding or an embedding of the wrong dimension; when force is
// true it returns every row — the set the indexing job still needs to
// process (spec §4.3: "idempotent
// and resumable").
func (s *ContentStore) RowsMissingEmbedding(ctx context.Context, k Kind, dim int, force bool) ([]Row, error) {
	table, err := TableName(k)
	if err != nil {
		return nil, err
	}
	var q string
	if force {
		q = fmt.Sprintf(`SELECT "index", name, url, content_pack_id, data FROM %s`, table)
	} else {
		q = fmt.Sprintf(`SELECT "index", name, url, content_pack_id, data FROM %s WHERE embedding IS NULL OR length(embedding) != ?`, table)
	}
	var args []interface{}
	if !force {
		args = append(args, dim*4)
	}
	out, err := s.queryRows(ctx, q, args...)
	if err != nil {
		return nil, &DatabaseError{Op: "RowsMissingEmbedding", Kind: k, Err: err}
	}
	return out, nil
}

// UpdateEmbedding writes the embedding blob for one row.
func (s *ContentStore) UpdateEmbedding(ctx context.Context, k Kind, index, packID string, embedding []float32) error {
	table, err := TableName(k)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`UPDATE %s SET embedding = ? WHERE "index" = ? AND content_pack_id = ?`, table)
	if _, err := s.db.ExecContext(ctx, q, encodeVector(embedding), index, packID); err != nil {
		return &DatabaseError{Op: "UpdateEmbedding", Kind: k, Err: err}
	}
	return nil
}

// queryRows is a small helper shared by write.go's scanning needs that
// don't go through the priority-aware scan() path in rows.go.
func (s *ContentStore) queryRows(ctx context.Context, q string, args ...interface{}) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Index, &r.Name, &r.URL, &r.ContentPackID, &r.Data); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
