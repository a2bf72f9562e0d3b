package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opshq/backoffice/internal/db"
)

// Repository persists jobs in sqlite so queued work survives restarts.
type Repository struct {
	db *db.DB
}

func NewRepository(d *db.DB) *Repository { return &Repository{db: d} }

// Enqueue inserts a job and returns its ID. Missing MaxAttempts defaults to
// 5 and a zero ScheduledAt means "now".
func (r *Repository) Enqueue(ctx context.Context, j *Job) (int64, error) {
	if j.MaxAttempts == 0 {
		j.MaxAttempts = 5
	}
	if j.ScheduledAt.IsZero() {
		j.ScheduledAt = time.Now()
	}
	now := time.Now().UTC().UnixMilli()

	res, err := r.db.Exec(ctx,
		`INSERT INTO jobs (type, payload, status, attempts, max_attempts, priority, scheduled_at, created, updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.Type, string(j.Payload), StatusQueued, j.Attempts, j.MaxAttempts, j.Priority,
		j.ScheduledAt.UTC().UnixMilli(), now, now)
	if err != nil {
		return 0, fmt.Errorf("enqueue %s job: %w", j.Type, err)
	}
	return res.LastInsertId()
}

// FetchNext claims and returns the next due job, lowest priority value
// first, or nil when nothing is eligible. Jobs waiting on a retry backoff or
// a future scheduled_at are skipped. The claim flips the row to processing
// so concurrent workers cannot pick up the same job twice.
func (r *Repository) FetchNext(ctx context.Context) (*Job, error) {
	now := time.Now().UTC().UnixMilli()
	row := r.db.QueryRow(ctx,
		`SELECT id, type, payload, status, attempts, max_attempts, priority, scheduled_at, next_try_at, last_error, created, updated
		 FROM jobs
		 WHERE status IN (?, ?) AND (next_try_at IS NULL OR next_try_at <= ?) AND scheduled_at <= ?
		 ORDER BY priority ASC, scheduled_at ASC
		 LIMIT 1`,
		StatusQueued, StatusRetry, now, now)

	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch next job: %w", err)
	}

	res, err := r.db.Exec(ctx,
		`UPDATE jobs SET status = ?, updated = ? WHERE id = ? AND status IN (?, ?)`,
		StatusProcessing, now, j.ID, StatusQueued, StatusRetry)
	if err != nil {
		return nil, fmt.Errorf("claim job %d: %w", j.ID, err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		// another worker claimed it between the select and the update
		return nil, err
	}

	j.Status = StatusProcessing
	return j, nil
}

func scanJob(row *sql.Row) (*Job, error) {
	var (
		j           Job
		payload     sql.NullString
		scheduledAt int64
		nextTry     sql.NullInt64
		lastError   sql.NullString
		created     int64
		updated     int64
	)
	err := row.Scan(&j.ID, &j.Type, &payload, &j.Status, &j.Attempts, &j.MaxAttempts,
		&j.Priority, &scheduledAt, &nextTry, &lastError, &created, &updated)
	if err != nil {
		return nil, err
	}

	j.ScheduledAt = time.UnixMilli(scheduledAt)
	j.Created = time.UnixMilli(created)
	j.Updated = time.UnixMilli(updated)
	if payload.Valid {
		j.Payload = json.RawMessage(payload.String)
	}
	if nextTry.Valid {
		t := time.UnixMilli(nextTry.Int64)
		j.NextTryAt = &t
	}
	if lastError.Valid {
		j.LastError = lastError.String
	}
	return &j, nil
}

// UpdateJob writes back the mutable fields after a processing attempt.
func (r *Repository) UpdateJob(ctx context.Context, j *Job) error {
	var nextTry any
	if j.NextTryAt != nil {
		nextTry = j.NextTryAt.UnixMilli()
	}
	_, err := r.db.Exec(ctx,
		`UPDATE jobs SET status = ?, attempts = ?, next_try_at = ?, last_error = ?, updated = ? WHERE id = ?`,
		j.Status, j.Attempts, nextTry, j.LastError, time.Now().UTC().UnixMilli(), j.ID)
	if err != nil {
		return fmt.Errorf("update job %d: %w", j.ID, err)
	}
	return nil
}

// MoveToDeadLetter records the job in dead_letter_jobs and removes it from
// the live queue in one transaction.
func (r *Repository) MoveToDeadLetter(ctx context.Context, j *Job) error {
	tx, err := r.db.GetConn().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin dead-letter tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO dead_letter_jobs (job_id, type, payload, attempts, last_error, failed_at) VALUES (?, ?, ?, ?, ?, ?)`,
		j.ID, j.Type, string(j.Payload), j.Attempts, j.LastError, time.Now().UTC().UnixMilli()); err != nil {
		return fmt.Errorf("insert dead letter: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, j.ID); err != nil {
		return fmt.Errorf("remove dead job: %w", err)
	}
	return tx.Commit()
}
