package api

import (
	"context"
	"errors"

	"platen/internal/jobs"
)

// JobReader abstracts job persistence interactions needed for API queries.
type JobReader interface {
	List(ctx context.Context) ([]*jobs.Job, error)
	ItemsByStatus(ctx context.Context, status jobs.Status) ([]*jobs.Job, error)
	Stats(ctx context.Context) (map[jobs.Status]int, error)
	GetByID(ctx context.Context, id int64) (*jobs.Job, error)
}

// JobService exposes read-only job operations returning API DTOs.
type JobService struct {
	store JobReader
}

// NewJobService constructs a JobService around the provided reader.
func NewJobService(store JobReader) *JobService {
	if store == nil {
		return nil
	}
	return &JobService{store: store}
}

// List returns jobs, optionally filtered to one status.
func (s *JobService) List(ctx context.Context, status jobs.Status) ([]Job, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	var (
		items []*jobs.Job
		err   error
	)
	if status == "" {
		items, err = s.store.List(ctx)
	} else {
		items, err = s.store.ItemsByStatus(ctx, status)
	}
	if err != nil {
		return nil, err
	}
	return FromJobs(items), nil
}

// Stats returns job summary counts keyed by status string.
func (s *JobService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeJobStats(stats), nil
}

// Describe fetches a single job. A missing job yields (nil, nil).
func (s *JobService) Describe(ctx context.Context, id int64) (*Job, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	item, err := s.store.GetByID(ctx, id)
	if errors.Is(err, jobs.ErrJobNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	dto := FromJob(item)
	return &dto, nil
}
