package store

import (
	"context"
	"fmt"
	"strings"
)

// Row is the shared shape of every catalog row before the repository
// layer parses Data into a generic map (Entity.Data) and strips
// ContentPackID.
type Row struct {
	Index         string
	Name          string
	URL           string
	ContentPackID string
	Data          string
}

// activeJoinClause restricts to rows whose pack is active, used when
// no priority list is supplied (spec §4.2: "With no priority supplied,
// only active packs are visible").
const activeJoinClause = `JOIN content_packs cp ON cp.id = t.content_pack_id AND cp.is_active = 1`

// GetByIndex resolves index within the given content-pack priority
// order: it returns the first pack in priority that has a matching
// row, else the first match among active packs. An empty priority
// list means "only active packs".
func (s *ContentStore) GetByIndex(ctx context.Context, k Kind, index string, priority []string) (*Row, error) {
	table, err := TableName(k)
	if err != nil {
		return nil, err
	}

	if len(priority) > 0 {
		for _, packID := range priority {
			q := fmt.Sprintf(`SELECT t."index", t.name, t.url, t.content_pack_id, t.data FROM %s t WHERE t."index" = ? AND t.content_pack_id = ?`, table)
			row := s.db.QueryRowContext(ctx, q, index, packID)
			var r Row
			if err := row.Scan(&r.Index, &r.Name, &r.URL, &r.ContentPackID, &r.Data); err == nil {
				return &r, nil
			}
		}
	}

	q := fmt.Sprintf(`SELECT t."index", t.name, t.url, t.content_pack_id, t.data FROM %s t %s WHERE t."index" = ? LIMIT 1`, table, activeJoinClause)
	row := s.db.QueryRowContext(ctx, q, index)
	var r Row
	if err := row.Scan(&r.Index, &r.Name, &r.URL, &r.ContentPackID, &r.Data); err != nil {
		return nil, nil // not found is not an error; caller sees nil row
	}
	return &r, nil
}

// GetByName is case-insensitive, same priority resolution as GetByIndex.
func (s *ContentStore) GetByName(ctx context.Context, k Kind, name string, priority []string) (*Row, error) {
	table, err := TableName(k)
	if err != nil {
		return nil, err
	}

	if len(priority) > 0 {
		for _, packID := range priority {
			q := fmt.Sprintf(`SELECT t."index", t.name, t.url, t.content_pack_id, t.data FROM %s t WHERE lower(t.name) = lower(?) AND t.content_pack_id = ?`, table)
			row := s.db.QueryRowContext(ctx, q, name, packID)
			var r Row
			if err := row.Scan(&r.Index, &r.Name, &r.URL, &r.ContentPackID, &r.Data); err == nil {
				return &r, nil
			}
		}
	}

	q := fmt.Sprintf(`SELECT t."index", t.name, t.url, t.content_pack_id, t.data FROM %s t %s WHERE lower(t.name) = lower(?) LIMIT 1`, table, activeJoinClause)
	row := s.db.QueryRowContext(ctx, q, name)
	var r Row
	if err := row.Scan(&r.Index, &r.Name, &r.URL, &r.ContentPackID, &r.Data); err != nil {
		return nil, nil
	}
	return &r, nil
}

// ListAll returns every visible row for k, filtered by priority if
// given, else by active-pack membership.
func (s *ContentStore) ListAll(ctx context.Context, k Kind, priority []string) ([]Row, error) {
	return s.scan(ctx, k, "", nil, priority)
}

// SearchSubstring performs a case-insensitive substring match on name.
func (s *ContentStore) SearchSubstring(ctx context.Context, k Kind, substring string, priority []string) ([]Row, error) {
	return s.scan(ctx, k, `lower(t.name) LIKE lower(?)`, []interface{}{"%" + substring + "%"}, priority)
}

// scan is the shared filtered-scan path behind ListAll/SearchSubstring
// and FilterBy.
func (s *ContentStore) scan(ctx context.Context, k Kind, extraWhere string, args []interface{}, priority []string) ([]Row, error) {
	table, err := TableName(k)
	if err != nil {
		return nil, err
	}

	var q strings.Builder
	var queryArgs []interface{}
	q.WriteString(fmt.Sprintf(`SELECT t."index", t.name, t.url, t.content_pack_id, t.data FROM %s t`, table))
	if len(priority) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(priority)), ",")
		q.WriteString(fmt.Sprintf(` WHERE t.content_pack_id IN (%s)`, placeholders))
		for _, p := range priority {
			queryArgs = append(queryArgs, p)
		}
		if extraWhere != "" {
			q.WriteString(" AND " + extraWhere)
			queryArgs = append(queryArgs, args...)
		}
	} else {
		q.WriteString(" " + activeJoinClause)
		if extraWhere != "" {
			q.WriteString(" WHERE " + extraWhere)
			queryArgs = append(queryArgs, args...)
		}
	}

	rows, err := s.db.QueryContext(ctx, q.String(), queryArgs...)
	if err != nil {
		return nil, &DatabaseError{Op: "scan", Kind: k, Err: err}
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Index, &r.Name, &r.URL, &r.ContentPackID, &r.Data); err != nil {
			return nil, &ValidationError{Field: "row", Value: string(k), Msg: err.Error()}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// FilterBy matches an equality condition against a column inside the
// row's JSON `data` blob (spec "filter_by(field=value, …)"). field must
// be a simple identifier; it is validated, never formatted raw.
func (s *ContentStore) FilterBy(ctx context.Context, k Kind, field, value string, priority []string) ([]Row, error) {
	if !isSimpleIdentifier(field) {
		return nil, &InvalidArgumentError{Argument: "field", Value: field, Reason: "must be a simple identifier"}
	}
	where := fmt.Sprintf(`json_extract(t.data, '$.%s') = ?`, field)
	return s.scan(ctx, k, where, []interface{}{value}, priority)
}

// FilterByRange matches a numeric range condition against a column
// inside the row's JSON `data` blob (used by specialized repository
// filters like CR range or hit die). field is validated the same way
// as FilterBy.
func (s *ContentStore) FilterByRange(ctx context.Context, k Kind, field string, min, max float64, priority []string) ([]Row, error) {
	if !isSimpleIdentifier(field) {
		return nil, &InvalidArgumentError{Argument: "field", Value: field, Reason: "must be a simple identifier"}
	}
	where := fmt.Sprintf(`CAST(json_extract(t.data, '$.%s') AS REAL) BETWEEN ? AND ?`, field)
	return s.scan(ctx, k, where, []interface{}{min, max}, priority)
}

// Exists reports whether index is visible under priority.
func (s *ContentStore) Exists(ctx context.Context, k Kind, index string, priority []string) (bool, error) {
	r, err := s.GetByIndex(ctx, k, index, priority)
	return r != nil, err
}

// Count returns the number of visible rows for k under priority.
func (s *ContentStore) Count(ctx context.Context, k Kind, priority []string) (int, error) {
	rows, err := s.ListAll(ctx, k, priority)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func isSimpleIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}
