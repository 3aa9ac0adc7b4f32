package ipc

import "platen/internal/api"

// Job mirrors the HTTP API job DTO for internal IPC callers.
type Job = api.Job

// Quote mirrors the HTTP API quote DTO.
type Quote = api.Quote

// QueueHealth mirrors the HTTP API health DTO.
type QueueHealth = api.QueueHealth

// StopRequest stops daemon processing.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon status information.
type StatusResponse struct {
	Running    bool           `json:"running"`
	PID        int            `json:"pid"`
	JobStats   map[string]int `json:"job_stats"`
	Queue      QueueHealth    `json:"queue"`
	LastJobID  int64          `json:"last_job_id"`
	LastError  string         `json:"last_error"`
	LockPath   string         `json:"lock_path"`
	JobDBPath  string         `json:"job_db_path"`
	APIAddress string         `json:"api_address"`
}

// JobListRequest filters job listing by status.
type JobListRequest struct {
	Status string `json:"status"`
}

// JobListResponse returns jobs matching the filter.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// JobDescribeRequest fetches a single job.
type JobDescribeRequest struct {
	ID int64 `json:"id"`
}

// JobDescribeResponse returns the requested job.
type JobDescribeResponse struct {
	Job Job `json:"job"`
}

// JobAddRequest creates a job for a full selection.
type JobAddRequest struct {
	ModelID    int64 `json:"model_id"`
	MaterialID int64 `json:"material_id"`
	ProcessID  int64 `json:"process_id"`
	MachineID  int64 `json:"machine_id"`
}

// JobAddResponse returns the created or existing job.
type JobAddResponse struct {
	Job     Job  `json:"job"`
	Created bool `json:"created"`
}

// JobRequeueRequest puts a job back on the dispatch queue.
type JobRequeueRequest struct {
	ID int64 `json:"id"`
}

// JobRequeueResponse returns the requeued job.
type JobRequeueResponse struct {
	Job Job `json:"job"`
}

// QueueRetryRequest requeues failed jobs; empty IDs retries all failed.
type QueueRetryRequest struct {
	IDs []int64 `json:"ids"`
}

// QueueRetryResponse reports how many jobs were requeued.
type QueueRetryResponse struct {
	Updated int64 `json:"updated"`
}

// QueueHealthRequest fetches aggregate queue diagnostics.
type QueueHealthRequest struct{}

// QueueHealthResponse carries aggregate queue diagnostics.
type QueueHealthResponse struct {
	Health QueueHealth `json:"health"`
}

// QuoteResolveRequest resolves a quote's items into jobs.
type QuoteResolveRequest struct {
	ID int64 `json:"id"`
}

// QuoteResolveResponse returns the resolved quote.
type QuoteResolveResponse struct {
	Quote Quote `json:"quote"`
}

// QuoteDescribeRequest fetches a single quote.
type QuoteDescribeRequest struct {
	ID int64 `json:"id"`
}

// QuoteDescribeResponse returns the requested quote.
type QuoteDescribeResponse struct {
	Quote Quote `json:"quote"`
}
