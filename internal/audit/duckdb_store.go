// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/storefront/internal/logging"
	"github.com/tomtom215/storefront/internal/metrics"
)

// DuckDBStore persists records in an embedded DuckDB file. It suits single
// node deployments that do not run a document database.
type DuckDBStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewDuckDBStore wraps an open database. Call CreateTable before use.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

var sortColumns = map[string]string{
	SortTimestamp: "timestamp",
	SortAction:    "action",
	SortEntity:    "entity",
	SortActorName: "actor_name",
	SortSeverity:  "severity_rank",
}

var dimensionColumns = map[Dimension]string{
	DimensionAction:   "action",
	DimensionEntity:   "entity",
	DimensionActor:    "actor_id",
	DimensionSeverity: "severity",
}

const selectColumns = `
	id, timestamp, actor_id, actor_name, actor_email, actor_role,
	action, entity, entity_id, severity,
	CAST(details AS VARCHAR) AS details,
	ip_address, user_agent
`

// CreateTable creates admin_logs and its indexes if missing.
func (s *DuckDBStore) CreateTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS admin_logs (
			id TEXT PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,

			actor_id TEXT NOT NULL DEFAULT '',
			actor_name TEXT NOT NULL DEFAULT '',
			actor_email TEXT NOT NULL DEFAULT '',
			actor_role TEXT NOT NULL DEFAULT '',

			action TEXT NOT NULL DEFAULT '',
			entity TEXT NOT NULL DEFAULT '',
			entity_id TEXT NOT NULL DEFAULT '',
			severity TEXT NOT NULL,
			severity_rank INTEGER NOT NULL,
			details JSON,

			ip_address TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_admin_logs_timestamp ON admin_logs(timestamp);
		CREATE INDEX IF NOT EXISTS idx_admin_logs_actor_id ON admin_logs(actor_id);
		CREATE INDEX IF NOT EXISTS idx_admin_logs_action ON admin_logs(action);
		CREATE INDEX IF NOT EXISTS idx_admin_logs_entity ON admin_logs(entity);
	`

	for _, stmt := range strings.Split(query, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	logging.Info().Msg("Admin log table created/verified")
	return nil
}

func (s *DuckDBStore) Append(ctx context.Context, rec *Record) (err error) {
	if rec == nil {
		return fmt.Errorf("record cannot be nil")
	}
	defer observe("append", time.Now(), &err)

	var details *string
	if rec.Details != nil {
		data, mErr := json.Marshal(rec.Details)
		if mErr != nil {
			return fmt.Errorf("failed to marshal details: %w", mErr)
		}
		str := string(data)
		details = &str
	}

	sev := rec.Severity
	if sev == "" {
		sev = SeverityInfo
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO admin_logs (
			id, timestamp, actor_id, actor_name, actor_email, actor_role,
			action, entity, entity_id, severity, severity_rank, details,
			ip_address, user_agent
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Timestamp.UTC(), rec.ActorID, rec.ActorName, rec.ActorEmail, rec.ActorRole,
		rec.Action, rec.Entity, rec.EntityID, string(sev), sev.Rank(), details,
		rec.IPAddress, rec.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("failed to insert admin log: %w", err)
	}
	return nil
}

func (s *DuckDBStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM admin_logs WHERE id = ?", id)
	rec, err := scanRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get admin log: %w", err)
	}
	return rec, nil
}

func (s *DuckDBStore) Query(ctx context.Context, filter Filter, page PageRequest) (_ *Page, err error) {
	defer observe("query", time.Now(), &err)
	page = page.normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := buildWhere(&filter)

	var total int64
	if err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM admin_logs"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count admin logs: %w", err)
	}

	query := "SELECT " + selectColumns + " FROM admin_logs" + where + orderAndLimit(page)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query admin logs: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, page.PageSize)
	for rows.Next() {
		rec, scanErr := scanRecord(rows.Scan)
		if scanErr != nil {
			logging.Warn().Err(scanErr).Msg("Failed to scan admin log row")
			continue
		}
		records = append(records, *rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating admin logs: %w", err)
	}

	return newPage(records, total, page), nil
}

func (s *DuckDBStore) AggregateByDimension(ctx context.Context, dim Dimension, filter Filter) ([]Bucket, error) {
	column, ok := dimensionColumns[dim]
	if !ok {
		return nil, fmt.Errorf("unknown dimension %q", dim)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := buildWhere(&filter)
	query := fmt.Sprintf(
		"SELECT %s, COUNT(*) AS n FROM admin_logs%s GROUP BY %s ORDER BY n DESC, %s ASC",
		column, where, column, column,
	)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate admin logs by %s: %w", dim, err)
	}
	defer rows.Close()

	out := []Bucket{}
	for rows.Next() {
		var b Bucket
		if err := rows.Scan(&b.Key, &b.Count); err != nil {
			return nil, fmt.Errorf("failed to scan %s bucket: %w", dim, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s buckets: %w", dim, err)
	}
	return out, nil
}

func (s *DuckDBStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, "DELETE FROM admin_logs WHERE timestamp < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge admin logs: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get purged count: %w", err)
	}
	if count > 0 {
		logging.Info().Int64("deleted", count).Time("older_than", cutoff).Msg("Purged admin logs")
	}
	return count, nil
}

func buildWhere(f *Filter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if f.StartTime != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, f.StartTime.UTC())
	}
	if f.EndTime != nil {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, f.EndTime.UTC())
	}
	conditions, args = appendStringCondition(conditions, args, "actor_id", f.ActorID)
	conditions, args = appendStringCondition(conditions, args, "action", f.Action)
	conditions, args = appendStringCondition(conditions, args, "entity", f.Entity)
	if f.MinSeverity != "" {
		conditions = append(conditions, "severity_rank >= ?")
		args = append(args, f.MinSeverity.Rank())
	}
	if f.Search != "" {
		conditions = append(conditions, "(LOWER(actor_name) LIKE ? ESCAPE '\\' OR LOWER(actor_email) LIKE ? ESCAPE '\\')")
		pattern := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
		args = append(args, pattern, pattern)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func appendStringCondition(conditions []string, args []interface{}, column, value string) ([]string, []interface{}) {
	if value != "" {
		conditions = append(conditions, column+" = ?")
		args = append(args, value)
	}
	return conditions, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// orderAndLimit uses only allow-listed column names.
func orderAndLimit(page PageRequest) string {
	column := sortColumns[page.SortBy]
	dir := "DESC"
	if page.SortAsc {
		dir = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id %s LIMIT %d OFFSET %d", column, dir, dir, page.PageSize, page.offset())
}

func scanRecord(scan func(dest ...interface{}) error) (*Record, error) {
	var (
		rec      Record
		severity string
		details  sql.NullString
	)
	err := scan(
		&rec.ID, &rec.Timestamp, &rec.ActorID, &rec.ActorName, &rec.ActorEmail, &rec.ActorRole,
		&rec.Action, &rec.Entity, &rec.EntityID, &severity, &details,
		&rec.IPAddress, &rec.UserAgent,
	)
	if err != nil {
		return nil, err
	}
	rec.Severity = Severity(severity)
	rec.Timestamp = rec.Timestamp.UTC()
	if details.Valid && details.String != "" {
		var d Details
		if err := json.Unmarshal([]byte(details.String), &d); err != nil {
			logging.Debug().Err(err).Str("id", rec.ID).Msg("Failed to parse admin log details")
		} else {
			rec.Details = &d
		}
	}
	return &rec, nil
}

func observe(op string, start time.Time, err *error) {
	metrics.RecordStoreOperation("duckdb", op, time.Since(start), *err)
}
