package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Plate describes one sliced build plate.
type Plate struct {
	EstimatedWeight   *float64 `json:"estimatedWeight,omitempty"`
	EstimatedDuration *float64 `json:"estimatedDuration,omitempty"`
	Gcode             string   `json:"gcode,omitempty"`
}

// Job describes a slicing job in a transport-friendly format.
type Job struct {
	ID                int64    `json:"id"`
	ModelID           int64    `json:"modelId"`
	MaterialID        int64    `json:"materialId"`
	ProcessID         int64    `json:"processId"`
	MachineID         int64    `json:"machineId"`
	Status            string   `json:"status"`
	Plates            []Plate  `json:"plates,omitempty"`
	EstimatedWeight   *float64 `json:"estimatedWeight,omitempty"`
	EstimatedDuration *float64 `json:"estimatedDuration,omitempty"`
	EstimatedPrice    *float64 `json:"estimatedPrice,omitempty"`
	WeightOverride    *float64 `json:"weightOverride,omitempty"`
	DurationOverride  *float64 `json:"durationOverride,omitempty"`
	PriceOverride     *float64 `json:"priceOverride,omitempty"`
	EffectivePrice    *float64 `json:"effectivePrice,omitempty"`
	SlicingCommand    string   `json:"slicingCommand,omitempty"`
	ErrorMessage      string   `json:"errorMessage,omitempty"`
	CreatedAt         string   `json:"createdAt,omitempty"`
	UpdatedAt         string   `json:"updatedAt,omitempty"`
}

// QuoteItem describes one quote line.
type QuoteItem struct {
	Position   int    `json:"position"`
	ModelID    *int64 `json:"modelId,omitempty"`
	MaterialID *int64 `json:"materialId,omitempty"`
	Colour     string `json:"colour,omitempty"`
	ProcessID  *int64 `json:"processId,omitempty"`
	MachineID  *int64 `json:"machineId,omitempty"`
	Quantity   int    `json:"quantity"`
	JobID      *int64 `json:"jobId,omitempty"`
}

// Quote describes a quote with resolved items and subtotal.
type Quote struct {
	ID        int64       `json:"id"`
	Customer  string      `json:"customer,omitempty"`
	Subtotal  float64     `json:"subtotal"`
	Items     []QuoteItem `json:"items"`
	CreatedAt string      `json:"createdAt,omitempty"`
	UpdatedAt string      `json:"updatedAt,omitempty"`
}

// QueueHealth aggregates job lifecycle counts.
type QueueHealth struct {
	Total      int `json:"total"`
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Sliced     int `json:"sliced"`
	Failed     int `json:"failed"`
	Pending    int `json:"pending"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool        `json:"running"`
	PID          int         `json:"pid"`
	JobDBPath    string      `json:"jobDbPath"`
	LockFilePath string      `json:"lockFilePath"`
	Queue        QueueHealth `json:"queue"`
	LastJobID    int64       `json:"lastJobId,omitempty"`
	LastError    string      `json:"lastError,omitempty"`
}

// JobListResponse wraps a collection of jobs for API responses.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job Job `json:"job"`
}

// QuoteResponse wraps a single quote.
type QuoteResponse struct {
	Quote Quote `json:"quote"`
}

// JobStatsResponse provides normalized job counts keyed by status string.
type JobStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// ErrorResponse is the error payload shape for the HTTP API.
type ErrorResponse struct {
	Error string `json:"error"`
}
