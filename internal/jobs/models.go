package jobs

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a slicing job.
type Status string

const (
	StatusQueued            Status = "queued"
	StatusCollectingContext Status = "collecting-context"
	StatusSlicing           Status = "slicing"
	StatusParsing           Status = "parsing"
	StatusSliced            Status = "sliced"
	StatusFailed            Status = "failed"
)

var allStatuses = []Status{
	StatusQueued,
	StatusCollectingContext,
	StatusSlicing,
	StatusParsing,
	StatusSliced,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusCollectingContext: {},
	StatusSlicing:           {},
	StatusParsing:           {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessingStatus reports whether a status reflects an in-flight workflow step.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// Tuple is the four-reference identity key that determines job uniqueness.
type Tuple struct {
	ModelID    int64
	MaterialID int64
	ProcessID  int64
	MachineID  int64
}

// Complete reports whether every reference of the tuple is set.
func (t Tuple) Complete() bool {
	return t.ModelID > 0 && t.MaterialID > 0 && t.ProcessID > 0 && t.MachineID > 0
}

// Plate is one physical output of a slicing invocation. Weight and duration
// are nil when the slicer's output did not carry the corresponding metric.
type Plate struct {
	EstimatedWeight   *float64 `json:"estimatedWeight,omitempty"`
	EstimatedDuration *float64 `json:"estimatedDuration,omitempty"`
	Gcode             string   `json:"gcode,omitempty"`
}

// Job represents a slicing job persisted in SQLite.
type Job struct {
	ID                int64
	Tuple             Tuple
	Status            Status
	Plates            []Plate
	EstimatedWeight   *float64
	EstimatedDuration *float64
	EstimatedPrice    *float64
	WeightOverride    *float64
	DurationOverride  *float64
	PriceOverride     *float64
	SlicingCommand    string
	SlicerOutput      string
	ErrorMessage      string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsProcessing returns true when the job is inside an in-flight workflow step.
func (j Job) IsProcessing() bool {
	return IsProcessingStatus(j.Status)
}

// EffectivePrice returns the price a quote line should use: the override when
// set, otherwise the computed estimate, otherwise nil.
func (j Job) EffectivePrice() *float64 {
	if j.PriceOverride != nil {
		return j.PriceOverride
	}
	return j.EstimatedPrice
}

// SetFailed marks the job as failed with the given error message.
func (j *Job) SetFailed(message string) {
	j.Status = StatusFailed
	j.ErrorMessage = message
}

// ResetResults clears every field the workflow derives so a rerun starts clean.
func (j *Job) ResetResults() {
	j.Plates = nil
	j.EstimatedWeight = nil
	j.EstimatedDuration = nil
	j.EstimatedPrice = nil
	j.SlicingCommand = ""
	j.SlicerOutput = ""
	j.ErrorMessage = ""
}

// HealthSummary describes aggregated job counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Queued     int
	Processing int
	Sliced     int
	Failed     int
}
