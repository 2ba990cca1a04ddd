package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AuditRecord is a persisted audit event.
type AuditRecord struct {
	ID          string
	RequestID   string
	UserID      string
	Intent      string
	Strategy    string
	ResultCount int
	Degraded    bool
	Outcome     string
	LatencyMs   int64
	OccurredAt  time.Time
}

// InsertAuditRecords writes a batch of audit records in one transaction when
// the underlying handle supports it.
func (s *SQLStore) InsertAuditRecords(ctx context.Context, records []AuditRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO audit_events (id, request_id, user_id, intent, strategy, result_count, degraded, outcome, latency_ms, occurred_at)
		VALUES (%s)
	`, s.placeholders(10))

	exec := s.db
	var tx *sql.Tx
	if b, ok := s.db.(interface {
		BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	}); ok {
		t, err := b.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin audit batch: %w", err)
		}
		tx, exec = t, t
	}

	for _, r := range records {
		if _, err := exec.ExecContext(ctx, query,
			r.ID, nullString(r.RequestID), nullString(r.UserID), r.Intent, nullString(r.Strategy),
			r.ResultCount, r.Degraded, r.Outcome, r.LatencyMs, r.OccurredAt.UTC(),
		); err != nil {
			if tx != nil {
				_ = tx.Rollback()
			}
			return fmt.Errorf("insert audit record %s: %w", r.ID, err)
		}
	}

	if tx != nil {
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit audit batch: %w", err)
		}
	}
	return nil
}

// RecentAuditRecords returns the newest records first.
func (s *SQLStore) RecentAuditRecords(ctx context.Context, limit int) ([]AuditRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`
		SELECT id, request_id, user_id, intent, strategy, result_count, degraded, outcome, latency_ms, occurred_at
		FROM audit_events
		ORDER BY occurred_at DESC, id
		LIMIT %s
	`, s.dialect.placeholder(1))

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var out []AuditRecord
	for rows.Next() {
		var (
			r                           AuditRecord
			requestID, userID, strategy sql.NullString
		)
		if err := rows.Scan(&r.ID, &requestID, &userID, &r.Intent, &strategy,
			&r.ResultCount, &r.Degraded, &r.Outcome, &r.LatencyMs, &r.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		r.RequestID, r.UserID, r.Strategy = requestID.String, userID.String, strategy.String
		out = append(out, r)
	}
	return out, rows.Err()
}
