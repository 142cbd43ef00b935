package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// CreateQuarantine inserts a new quarantine record and returns its id.
func (s *Store) CreateQuarantine(ctx context.Context, item QuarantineItem) (string, error) {
	id := item.ID
	if id == "" {
		id = uuid.NewString()
	}
	status := item.Status
	if status == "" {
		status = StatusFailed
	}
	err := s.exec(ctx, "create quarantine item", `
		INSERT INTO failed_imports
		(id, file_name, file_path, raw_data, error_type, error_message, attempted_at, retry_count, status, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		item.FileName,
		item.FilePath,
		item.RawData,
		item.ErrorType,
		item.ErrorMessage,
		fmtTime(item.AttemptedAt),
		item.RetryCount,
		status,
		nullable(item.Notes),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetQuarantine returns the quarantine record for id.
func (s *Store) GetQuarantine(ctx context.Context, id string) (QuarantineItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, file_name, file_path, raw_data, error_type, error_message,
		       attempted_at, retry_count, status, fixed_at, last_retry_at, notes
		FROM failed_imports WHERE id = ?
	`, id)
	item, err := scanQuarantine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return QuarantineItem{}, &NotFoundError{Kind: "quarantine item", ID: id}
	}
	if err != nil {
		return QuarantineItem{}, &DatabaseError{Op: "get quarantine item", Err: err}
	}
	return item, nil
}

// QuarantineFilter narrows ListQuarantine results. Zero values mean no
// constraint.
type QuarantineFilter struct {
	Status    string
	ErrorType string
	Limit     int
}

// ListQuarantine returns quarantine records, most recent attempt first.
func (s *Store) ListQuarantine(ctx context.Context, f QuarantineFilter) ([]QuarantineItem, error) {
	query := `
		SELECT id, file_name, file_path, raw_data, error_type, error_message,
		       attempted_at, retry_count, status, fixed_at, last_retry_at, notes
		FROM failed_imports WHERE 1=1`
	var args []any
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.ErrorType != "" {
		query += ` AND error_type = ?`
		args = append(args, f.ErrorType)
	}
	query += ` ORDER BY attempted_at DESC, id ASC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &DatabaseError{Op: "list quarantine items", Err: err}
	}
	defer rows.Close()

	items := []QuarantineItem{}
	for rows.Next() {
		item, err := scanQuarantine(rows)
		if err != nil {
			return nil, &DatabaseError{Op: "list quarantine items", Err: err}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, &DatabaseError{Op: "list quarantine items", Err: err}
	}
	return items, nil
}

// UpdateQuarantineRaw replaces the raw text and notes of a record after an
// operator edit, resetting the status to failed so it becomes retryable.
func (s *Store) UpdateQuarantineRaw(ctx context.Context, id, rawData, notes string) error {
	return s.execOne(ctx, "update quarantine item", id, `
		UPDATE failed_imports SET raw_data = ?, notes = ?, status = ? WHERE id = ?
	`, rawData, nullable(notes), StatusFailed, id)
}

// IncrementRetry marks a retry attempt in flight: bumps the counter, sets
// status retrying, stamps last_retry_at.
func (s *Store) IncrementRetry(ctx context.Context, id string, now time.Time) error {
	return s.execOne(ctx, "increment retry", id, `
		UPDATE failed_imports
		SET retry_count = retry_count + 1, status = ?, last_retry_at = ?
		WHERE id = ?
	`, StatusRetrying, fmtTime(now), id)
}

// MarkFixed transitions a record to the terminal fixed status.
func (s *Store) MarkFixed(ctx context.Context, id string, now time.Time) error {
	return s.execOne(ctx, "mark fixed", id, `
		UPDATE failed_imports SET status = ?, fixed_at = ? WHERE id = ?
	`, StatusFixed, fmtTime(now), id)
}

// MarkIgnored transitions a record to the terminal ignored status.
func (s *Store) MarkIgnored(ctx context.Context, id, notes string) error {
	return s.execOne(ctx, "mark ignored", id, `
		UPDATE failed_imports SET status = ?, notes = coalesce(?, notes) WHERE id = ?
	`, StatusIgnored, nullable(notes), id)
}

// RecordRetryFailure writes a failed retry outcome back onto the record in
// place - new message, status back to failed - rather than creating a
// duplicate.
func (s *Store) RecordRetryFailure(ctx context.Context, id, message string, now time.Time) error {
	return s.execOne(ctx, "record retry failure", id, `
		UPDATE failed_imports SET status = ?, error_message = ?, last_retry_at = ? WHERE id = ?
	`, StatusFailed, message, fmtTime(now), id)
}

// DeleteQuarantine removes the database record for id. File cleanup is the
// caller's concern (best-effort, never blocks record deletion).
func (s *Store) DeleteQuarantine(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM failed_imports WHERE id = ?`, id)
	if err != nil {
		return &DatabaseError{Op: "delete quarantine item", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &DatabaseError{Op: "delete quarantine item", Err: err}
	}
	if n == 0 {
		return &NotFoundError{Kind: "quarantine item", ID: id}
	}
	return nil
}

// QuarantineStats summarizes the quarantine area.
type QuarantineStats struct {
	Total          int              `json:"total"`
	ByType         map[string]int   `json:"by_type"`
	ByStatus       map[string]int   `json:"by_status"`
	RecentFailures []QuarantineItem `json:"recent_failures"`
}

// GetQuarantineStats returns counts by error kind and status plus the ten
// most recent failures.
func (s *Store) GetQuarantineStats(ctx context.Context) (QuarantineStats, error) {
	stats := QuarantineStats{
		ByType:   make(map[string]int),
		ByStatus: make(map[string]int),
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM failed_imports`).Scan(&stats.Total); err != nil {
		return QuarantineStats{}, &DatabaseError{Op: "quarantine stats", Err: err}
	}

	if err := s.countGroups(ctx, `SELECT error_type, COUNT(*) FROM failed_imports GROUP BY error_type`, stats.ByType); err != nil {
		return QuarantineStats{}, err
	}
	if err := s.countGroups(ctx, `SELECT status, COUNT(*) FROM failed_imports GROUP BY status`, stats.ByStatus); err != nil {
		return QuarantineStats{}, err
	}

	recent, err := s.ListQuarantine(ctx, QuarantineFilter{Limit: 10})
	if err != nil {
		return QuarantineStats{}, err
	}
	stats.RecentFailures = recent

	return stats, nil
}

func (s *Store) countGroups(ctx context.Context, query string, into map[string]int) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return &DatabaseError{Op: "quarantine stats", Err: err}
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return &DatabaseError{Op: "quarantine stats", Err: err}
		}
		into[key] = n
	}
	return rows.Err()
}

// execOne runs an UPDATE that must affect exactly one row, returning
// NotFoundError when the id does not exist.
func (s *Store) execOne(ctx context.Context, op, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return &DatabaseError{Op: op, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &DatabaseError{Op: op, Err: err}
	}
	if n == 0 {
		return &NotFoundError{Kind: "quarantine item", ID: id}
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

func scanQuarantine(row scanner) (QuarantineItem, error) {
	var (
		item        QuarantineItem
		attemptedAt string
		fixedAt     sql.NullString
		lastRetryAt sql.NullString
		notes       sql.NullString
	)
	err := row.Scan(&item.ID, &item.FileName, &item.FilePath, &item.RawData,
		&item.ErrorType, &item.ErrorMessage, &attemptedAt, &item.RetryCount,
		&item.Status, &fixedAt, &lastRetryAt, &notes)
	if err != nil {
		return QuarantineItem{}, err
	}
	if item.AttemptedAt, err = parseTime(attemptedAt); err != nil {
		return QuarantineItem{}, err
	}
	if item.FixedAt, err = parseTimePtr(fixedAt); err != nil {
		return QuarantineItem{}, err
	}
	if item.LastRetryAt, err = parseTimePtr(lastRetryAt); err != nil {
		return QuarantineItem{}, err
	}
	item.Notes = notes.String
	return item, nil
}
