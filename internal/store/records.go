// Package store keeps a Postgres snapshot of records returned by finds.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"FMQuery/internal/client"
	"FMQuery/internal/logger"
)

const table = "fm_records"

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db  DB
	now func() time.Time
}

func New(db DB) *Store {
	return &Store{db: db, now: time.Now}
}

// SaveRecords upserts recs under layout, keyed by record id.
func (s *Store) SaveRecords(ctx context.Context, layout string, recs []client.Record) error {
	if len(recs) == 0 {
		return nil
	}
	ib, err := saveQuery(layout, recs, s.now().UTC())
	if err != nil {
		return err
	}
	sqlStr, args, err := ib.ToSql()
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("save records: %w", err)
	}
	logger.DebugCtx(ctx, "records_saved", map[string]any{"layout": layout, "rows": tag.RowsAffected()})
	return nil
}

// ListRecords returns stored records of layout ordered by record id.
// offset is 1-based like the Data API's.
func (s *Store) ListRecords(ctx context.Context, layout string, limit, offset int) ([]client.Record, error) {
	sqlStr, args, err := listQuery(layout, limit, offset).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	out := []client.Record{}
	for rows.Next() {
		var (
			rec        client.Record
			fieldData  []byte
			portalData []byte
		)
		if err := rows.Scan(&rec.RecordID, &rec.ModID, &fieldData, &portalData); err != nil {
			return nil, err
		}
		if err := decodeJSON(fieldData, &rec.FieldData); err != nil {
			return nil, fmt.Errorf("record %s field_data: %w", rec.RecordID, err)
		}
		if err := decodeJSON(portalData, &rec.PortalData); err != nil {
			return nil, fmt.Errorf("record %s portal_data: %w", rec.RecordID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) CountRecords(ctx context.Context, layout string) (int, error) {
	sqlStr, args, err := countQuery(layout).ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRow(ctx, sqlStr, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

func saveQuery(layout string, recs []client.Record, now time.Time) (squirrel.InsertBuilder, error) {
	ib := psql.Insert(table).Columns("layout", "record_id", "mod_id", "field_data", "portal_data", "fetched_at")
	for _, r := range recs {
		if r.RecordID == "" {
			return ib, errors.New("save records: record without recordId")
		}
	}
	// one statement may not upsert the same key twice
	for _, r := range dedupeByID(recs) {
		fd, err := encodeJSON(r.FieldData)
		if err != nil {
			return ib, fmt.Errorf("record %s field_data: %w", r.RecordID, err)
		}
		pd, err := encodeJSON(r.PortalData)
		if err != nil {
			return ib, fmt.Errorf("record %s portal_data: %w", r.RecordID, err)
		}
		ib = ib.Values(layout, r.RecordID, r.ModID, fd, pd, now)
	}
	return ib.Suffix("ON CONFLICT (layout, record_id) DO UPDATE SET " +
		"mod_id = EXCLUDED.mod_id, field_data = EXCLUDED.field_data, " +
		"portal_data = EXCLUDED.portal_data, fetched_at = EXCLUDED.fetched_at"), nil
}

// dedupeByID keeps one record per id: the last one seen, at the position of
// the first.
func dedupeByID(recs []client.Record) []client.Record {
	pos := make(map[string]int, len(recs))
	out := make([]client.Record, 0, len(recs))
	for _, r := range recs {
		if i, ok := pos[r.RecordID]; ok {
			out[i] = r
			continue
		}
		pos[r.RecordID] = len(out)
		out = append(out, r)
	}
	return out
}

func listQuery(layout string, limit, offset int) squirrel.SelectBuilder {
	sb := psql.Select("record_id", "mod_id", "field_data", "portal_data").
		From(table).
		Where(squirrel.Eq{"layout": layout}).
		OrderBy("record_id::bigint", "record_id")
	if limit > 0 {
		sb = sb.Limit(uint64(limit))
	}
	if offset > 1 {
		sb = sb.Offset(uint64(offset - 1))
	}
	return sb
}

func countQuery(layout string) squirrel.SelectBuilder {
	return psql.Select("count(*)").From(table).Where(squirrel.Eq{"layout": layout})
}

// encodeJSON returns text so pgx sends it as json rather than bytea.
func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return "{}", nil
	}
	return string(b), nil
}

func decodeJSON(b []byte, v any) error {
	if len(b) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(v)
}
