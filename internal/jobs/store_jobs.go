package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Create inserts a new queued job for the given tuple and enqueues it for
// dispatch in the same transaction. The identity tuple must be complete and
// not already claimed by another job.
func (s *Store) Create(ctx context.Context, tuple Tuple) (*Job, error) {
	if !tuple.Complete() {
		return nil, fmt.Errorf("incomplete job tuple %+v", tuple)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	job, err := insertJob(ctx, tx, tuple)
	if err != nil {
		return nil, err
	}
	if err := enqueueTx(ctx, tx, job.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create tx: %w", err)
	}
	return job, nil
}

func insertJob(ctx context.Context, tx *sql.Tx, tuple Tuple) (*Job, error) {
	now := timestamp()
	result, err := tx.ExecContext(ctx, `
        INSERT INTO jobs (model_id, material_id, process_id, machine_id, status, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tuple.ModelID, tuple.MaterialID, tuple.ProcessID, tuple.MachineID,
		string(StatusQueued), now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateJob
		}
		return nil, fmt.Errorf("insert job: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("job id: %w", err)
	}
	return getJobTx(ctx, tx, id)
}

func getJobTx(ctx context.Context, tx *sql.Tx, id int64) (*Job, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load job %d: %w", id, err)
	}
	return job, nil
}

// GetByID loads a single job.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load job %d: %w", id, err)
	}
	return job, nil
}

// FindByTuple returns the job holding the identity tuple, or nil when no job
// has claimed it yet.
func (s *Store) FindByTuple(ctx context.Context, tuple Tuple) (*Job, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+jobColumns+` FROM jobs
        WHERE model_id = ? AND material_id = ? AND process_id = ? AND machine_id = ?`,
		tuple.ModelID, tuple.MaterialID, tuple.ProcessID, tuple.MachineID)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find job by tuple: %w", err)
	}
	return job, nil
}

// FindOrCreate returns the existing job for the tuple or creates and enqueues
// a new one. Creation and enqueue happen in one transaction; a concurrent
// creator losing the race falls back to the winner's row.
func (s *Store) FindOrCreate(ctx context.Context, tuple Tuple) (*Job, bool, error) {
	if !tuple.Complete() {
		return nil, false, fmt.Errorf("incomplete job tuple %+v", tuple)
	}

	if existing, err := s.FindByTuple(ctx, tuple); err != nil {
		return nil, false, err
	} else if existing != nil {
		return existing, false, nil
	}

	job, err := s.Create(ctx, tuple)
	if errors.Is(err, ErrDuplicateJob) {
		existing, findErr := s.FindByTuple(ctx, tuple)
		if findErr != nil {
			return nil, false, findErr
		}
		if existing == nil {
			return nil, false, fmt.Errorf("job for tuple vanished after duplicate conflict")
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return job, true, nil
}

// Update persists the mutable fields of a job. The identity tuple is
// immutable and never written back.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil || job.ID == 0 {
		return fmt.Errorf("update requires a persisted job")
	}

	plates, err := marshalPlates(job.Plates)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
        UPDATE jobs SET
            status = ?,
            plates_json = ?,
            estimated_weight = ?,
            estimated_duration = ?,
            estimated_price = ?,
            weight_override = ?,
            duration_override = ?,
            price_override = ?,
            slicing_command = ?,
            slicer_output = ?,
            error_message = ?,
            updated_at = ?
        WHERE id = ?`,
		string(job.Status),
		plates,
		nullableFloat(job.EstimatedWeight),
		nullableFloat(job.EstimatedDuration),
		nullableFloat(job.EstimatedPrice),
		nullableFloat(job.WeightOverride),
		nullableFloat(job.DurationOverride),
		nullableFloat(job.PriceOverride),
		nullableString(job.SlicingCommand),
		nullableString(job.SlicerOutput),
		nullableString(job.ErrorMessage),
		timestamp(),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job %d: %w", job.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job %d: %w", job.ID, err)
	}
	if affected == 0 {
		return ErrJobNotFound
	}
	return nil
}

// SetStatus records a status transition without touching derived fields.
func (s *Store) SetStatus(ctx context.Context, id int64, status Status) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?",
		string(status), timestamp(), id)
	if err != nil {
		return fmt.Errorf("set status for job %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set status for job %d: %w", id, err)
	}
	if affected == 0 {
		return ErrJobNotFound
	}
	return nil
}

// List returns all jobs ordered oldest first.
func (s *Store) List(ctx context.Context) ([]*Job, error) {
	return s.queryJobs(ctx, "SELECT "+jobColumns+" FROM jobs ORDER BY id ASC")
}

// ItemsByStatus returns all jobs in the given status, oldest first.
func (s *Store) ItemsByStatus(ctx context.Context, status Status) ([]*Job, error) {
	return s.queryJobs(ctx,
		"SELECT "+jobColumns+" FROM jobs WHERE status = ? ORDER BY id ASC",
		string(status))
}

func (s *Store) queryJobs(ctx context.Context, query string, args ...any) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []*Job
	for rows.Next() {
		job, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan job: %w", scanErr)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// Stats returns a count of jobs per status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM jobs GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("query job stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stats := make(map[Status]int)
	for rows.Next() {
		var (
			statusStr string
			count     int
		)
		if err := rows.Scan(&statusStr, &count); err != nil {
			return nil, fmt.Errorf("scan job stats: %w", err)
		}
		stats[Status(statusStr)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job stats: %w", err)
	}
	return stats, nil
}

// Health aggregates lifecycle counts for status reporting.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}

	var summary HealthSummary
	for status, count := range stats {
		summary.Total += count
		switch {
		case status == StatusQueued:
			summary.Queued += count
		case IsProcessingStatus(status):
			summary.Processing += count
		case status == StatusSliced:
			summary.Sliced += count
		case status == StatusFailed:
			summary.Failed += count
		}
	}
	return summary, nil
}

// Requeue returns a job to the queued status, clears its error, and places it
// back on the dispatch queue. Jobs mid-workflow cannot be requeued.
func (s *Store) Requeue(ctx context.Context, id int64) (*Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin requeue tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	job, err := getJobTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if job.IsProcessing() {
		return nil, fmt.Errorf("job %d is %s and cannot be requeued until the workflow finishes", id, job.Status)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE jobs SET status = ?, error_message = NULL, updated_at = ? WHERE id = ?",
		string(StatusQueued), timestamp(), id); err != nil {
		return nil, fmt.Errorf("requeue job %d: %w", id, err)
	}
	if err := enqueueTx(ctx, tx, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit requeue tx: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Delete removes a job and, through the foreign key, its dispatch entry.
func (s *Store) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM jobs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete job %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete job %d: %w", id, err)
	}
	if affected == 0 {
		return ErrJobNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
