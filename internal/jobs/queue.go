package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// QueueItem is one pending dispatch entry.
type QueueItem struct {
	ID         int64
	JobID      int64
	Attempts   int
	EnqueuedAt time.Time
	LeasedAt   *time.Time
}

// Enqueue places a job on the dispatch queue. Enqueueing is idempotent: a
// job with a pending entry is left alone.
func (s *Store) Enqueue(ctx context.Context, jobID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enqueue tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := enqueueTx(ctx, tx, jobID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit enqueue tx: %w", err)
	}
	return nil
}

func enqueueTx(ctx context.Context, tx *sql.Tx, jobID int64) error {
	_, err := tx.ExecContext(ctx, `
        INSERT INTO dispatch_queue (job_id, attempts, enqueued_at)
        SELECT ?, 0, ?
        WHERE NOT EXISTS (SELECT 1 FROM dispatch_queue WHERE job_id = ?)`,
		jobID, timestamp(), jobID)
	if err != nil {
		return fmt.Errorf("enqueue job %d: %w", jobID, err)
	}
	return nil
}

// Dequeue leases the oldest unleased dispatch entry. It returns nil when the
// queue has no work.
func (s *Store) Dequeue(ctx context.Context) (*QueueItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin dequeue tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
        SELECT id, job_id, attempts, enqueued_at
        FROM dispatch_queue
        WHERE leased_at IS NULL
        ORDER BY id ASC
        LIMIT 1`)

	var (
		item     QueueItem
		enqueued string
	)
	err = row.Scan(&item.ID, &item.JobID, &item.Attempts, &enqueued)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan dispatch entry: %w", err)
	}
	if t, parseErr := parseTimeString(enqueued); parseErr == nil {
		item.EnqueuedAt = t
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		"UPDATE dispatch_queue SET leased_at = ? WHERE id = ?",
		now.Format(time.RFC3339Nano), item.ID); err != nil {
		return nil, fmt.Errorf("lease dispatch entry %d: %w", item.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit dequeue tx: %w", err)
	}

	item.LeasedAt = &now
	return &item, nil
}

// Ack removes a completed dispatch entry.
func (s *Store) Ack(ctx context.Context, entryID int64) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM dispatch_queue WHERE id = ?", entryID); err != nil {
		return fmt.Errorf("ack dispatch entry %d: %w", entryID, err)
	}
	return nil
}

// Nack records a failed attempt. The entry is released for another attempt
// unless it has reached maxAttempts, in which case it is dropped and the job
// stays in whatever terminal state the workflow left it. It reports whether
// the entry remains on the queue.
func (s *Store) Nack(ctx context.Context, entryID int64, maxAttempts int) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin nack tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var attempts int
	err = tx.QueryRowContext(ctx,
		"SELECT attempts FROM dispatch_queue WHERE id = ?", entryID).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load dispatch entry %d: %w", entryID, err)
	}

	attempts++
	if maxAttempts > 0 && attempts >= maxAttempts {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM dispatch_queue WHERE id = ?", entryID); err != nil {
			return false, fmt.Errorf("drop dispatch entry %d: %w", entryID, err)
		}
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("commit nack tx: %w", err)
		}
		return false, nil
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE dispatch_queue SET attempts = ?, leased_at = NULL WHERE id = ?",
		attempts, entryID); err != nil {
		return false, fmt.Errorf("release dispatch entry %d: %w", entryID, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit nack tx: %w", err)
	}
	return true, nil
}

// RequeueStale releases entries whose lease is older than the cutoff. A stale
// lease means a previous daemon run died mid-workflow.
func (s *Store) RequeueStale(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339Nano)
	result, err := s.db.ExecContext(ctx,
		"UPDATE dispatch_queue SET leased_at = NULL WHERE leased_at IS NOT NULL AND leased_at < ?",
		cutoff)
	if err != nil {
		return 0, fmt.Errorf("requeue stale entries: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("requeue stale entries: %w", err)
	}
	return int(affected), nil
}

// PendingCount reports the number of unleased entries waiting for dispatch.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM dispatch_queue WHERE leased_at IS NULL").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending entries: %w", err)
	}
	return count, nil
}
