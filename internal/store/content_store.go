// Package store implements the content store (spec component C1): a
// single embedded SQLite file holding the versioned, pack-scoped
// catalog of game-rule entities, each row carrying an optional vector
// embedding. It exposes point-lookup/filtered-scan access for the
// repository layer (C2) and approximate-nearest-neighbor search with
// an in-process linear-scan fallback when the sqlite-vec extension is
// unavailable.
//
// Grounded on the teacher's internal/store/embedded_store.go (temp-file
// extraction, read-only open, blob encoding) generalized from a
// read-only embedded corpus to a read-write, growable catalog file.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/ai-gamemaster/knowledge-core/internal/config"
	"github.com/ai-gamemaster/knowledge-core/internal/logging"
)

// driverName is the modernc.org/sqlite pure-Go driver, used unless the
// binary is built with the sqlite_vec build tag, in which case
// init_vec.go registers the real cgo extension and switches this to
// "sqlite3" (mattn/go-sqlite3).
var driverName = "sqlite"

// ContentStore owns the single embedded database file and its
// connection pool.
type ContentStore struct {
	db              *sql.DB
	cfg             config.StoreConfig
	vectorAvailable bool
	mu              sync.RWMutex
}

// Open creates (if absent) and opens the content store at cfg.Path,
// applies the configured pragmas, bootstraps the schema, and probes
// for vector-extension availability. Connection errors here are fatal
// per spec §4.1/§7 — callers should treat a non-nil error as
// unrecoverable without an external retry.
func Open(cfg config.StoreConfig) (*ContentStore, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	dsn := path
	db, err := sql.Open(driverCandidate(), dsn)
	if err != nil {
		return nil, &ConnectionError{Op: "open", Err: err}
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(cfg.GetConnMaxLifetime())

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &ConnectionError{Op: "ping", Err: err}
	}

	s := &ContentStore{db: db, cfg: cfg}

	if err := s.applyPragmas(); err != nil {
		db.Close()
		return nil, err
	}
	if err := Bootstrap(db); err != nil {
		db.Close()
		return nil, err
	}

	s.vectorAvailable = cfg.VectorExtension && s.probeVectorExtension()
	if !s.vectorAvailable {
		logging.Get(logging.CategoryStore).Warn("vector extension unavailable, falling back to in-process linear scan")
	}

	logging.Get(logging.CategoryStore).Info("content store opened path=%s vector_available=%v", path, s.vectorAvailable)
	return s, nil
}

// driverCandidate returns the registered driver name to use. Kept as a
// function (not a constant) so a build with the sqlite_vec tag can
// still rely on the cgo driver registering under "sqlite3".
func driverCandidate() string {
	return driverName
}

func (s *ContentStore) applyPragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", s.cfg.GetBusyTimeout().Milliseconds()),
		fmt.Sprintf("PRAGMA synchronous=%s", s.cfg.Synchronous),
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return &ConnectionError{Op: "pragma: " + p, Err: err}
		}
	}
	return nil
}

// probeVectorExtension checks whether a distance scalar function is
// callable. Both the real cgo extension and the pure-Go compat layer
// in vec_compat.go register vec_distance_l2, so this succeeds either
// way unless the driver truly has neither registered.
func (s *ContentStore) probeVectorExtension() bool {
	var d float64
	row := s.db.QueryRow(`SELECT vec_distance_l2(?, ?)`, encodeVector([]float32{1, 0}), encodeVector([]float32{0, 1}))
	return row.Scan(&d) == nil
}

// VectorAvailable reports whether ANN search uses the SQL-level
// distance function (true) or the Go-level linear-scan fallback (false).
func (s *ContentStore) VectorAvailable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vectorAvailable
}

// DB exposes the underlying *sql.DB for the repository layer. Every
// caller must still only read declared columns (spec §4.2's
// session-isolation contract is enforced by the repository layer, not
// here) and must route table names through TableName.
func (s *ContentStore) DB() *sql.DB {
	return s.db
}

// Close is idempotent.
func (s *ContentStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return &ConnectionError{Op: "close", Err: err}
	}
	return nil
}

// VectorRow is one result of an ANN search: the shared columns plus
// similarity, a scalar in [0,1] derived from L2 distance via 1/(1+d).
type VectorRow struct {
	Index         string
	Name          string
	URL           string
	ContentPackID string
	Data          string
	Similarity    float64
}

// SearchNearest runs approximate nearest-neighbor search over kind's
// embedding column for queryVec, returning up to topK rows ordered by
// descending similarity. When the vector extension is unavailable it
// falls back to an in-process linear scan: load every row with a
// non-null embedding, compute L2 distance in Go, sort, and truncate —
// identical results to the SQL-level path, only slower.
func (s *ContentStore) SearchNearest(ctx context.Context, k Kind, queryVec []float32, topK int) ([]VectorRow, error) {
	table, err := TableName(k)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 5
	}

	s.mu.RLock()
	useVector := s.vectorAvailable
	s.mu.RUnlock()

	if useVector {
		return s.searchNearestSQL(ctx, table, k, queryVec, topK)
	}
	return s.searchNearestLinear(ctx, table, k, queryVec, topK)
}

func (s *ContentStore) searchNearestSQL(ctx context.Context, table string, k Kind, queryVec []float32, topK int) ([]VectorRow, error) {
	blob := encodeVector(queryVec)
	query := fmt.Sprintf(`
		SELECT "index", name, url, content_pack_id, data,
		       vec_distance_l2(embedding, ?) AS distance
		FROM %s
		WHERE embedding IS NOT NULL
		ORDER BY distance ASC
		LIMIT ?`, table)

	rows, err := s.db.QueryContext(ctx, query, blob, topK)
	if err != nil {
		return nil, &DatabaseError{Op: "SearchNearest(sql)", Kind: k, Err: err}
	}
	defer rows.Close()

	var out []VectorRow
	for rows.Next() {
		var r VectorRow
		var distance float64
		if err := rows.Scan(&r.Index, &r.Name, &r.URL, &r.ContentPackID, &r.Data, &distance); err != nil {
			logging.Get(logging.CategoryStore).Warn("SearchNearest: scan failed: %v", err)
			continue
		}
		r.Similarity = 1.0 / (1.0 + distance)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &DatabaseError{Op: "SearchNearest(sql)", Kind: k, Err: err}
	}
	return out, nil
}

// searchNearestLinear is the fallback path used when the vector
// extension is unavailable. It loads every row with a non-null
// embedding and ranks by L2 distance in Go.
func (s *ContentStore) searchNearestLinear(ctx context.Context, table string, k Kind, queryVec []float32, topK int) ([]VectorRow, error) {
	query := fmt.Sprintf(`SELECT "index", name, url, content_pack_id, data, embedding FROM %s WHERE embedding IS NOT NULL`, table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &DatabaseError{Op: "SearchNearest(linear)", Kind: k, Err: err}
	}
	defer rows.Close()

	type scored struct {
		row      VectorRow
		distance float64
	}
	var all []scored
	for rows.Next() {
		var r VectorRow
		var blob []byte
		if err := rows.Scan(&r.Index, &r.Name, &r.URL, &r.ContentPackID, &r.Data, &blob); err != nil {
			logging.Get(logging.CategoryStore).Warn("SearchNearest(linear): scan failed: %v", err)
			continue
		}
		vec := decodeVector(blob)
		if len(vec) != len(queryVec) {
			continue
		}
		all = append(all, scored{row: r, distance: l2Distance(vec, queryVec)})
	}
	if err := rows.Err(); err != nil {
		return nil, &DatabaseError{Op: "SearchNearest(linear)", Kind: k, Err: err}
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].distance != all[j].distance {
			return all[i].distance < all[j].distance
		}
		// Tie-break deterministically by index for order-stable output (spec §8).
		return all[i].row.Index < all[j].row.Index
	})
	if len(all) > topK {
		all = all[:topK]
	}

	out := make([]VectorRow, len(all))
	for i, s := range all {
		s.row.Similarity = 1.0 / (1.0 + s.distance)
		out[i] = s.row
	}
	return out, nil
}

func l2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// encodeVector packs a float32 slice as a little-endian blob, the wire
// layout required by spec §6 ("packed little-endian float32, exactly
// dim elements").
func encodeVector(vec []float32) []byte {
	buf := &bytes.Buffer{}
	buf.Grow(len(vec) * 4)
	if err := binary.Write(buf, binary.LittleEndian, vec); err != nil {
		return nil
	}
	return buf.Bytes()
}

// decodeVector unpacks a little-endian float32 blob. Returns nil for a
// malformed (non-multiple-of-4) blob rather than panicking.
func decodeVector(blob []byte) []float32 {
	if len(blob) == 0 || len(blob)%4 != 0 {
		return nil
	}
	out := make([]float32, len(blob)/4)
	if err := binary.Read(bytes.NewReader(blob), binary.LittleEndian, out); err != nil {
		return nil
	}
	return out
}
