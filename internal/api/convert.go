package api

import (
	"platen/internal/catalog"
	"platen/internal/jobs"
)

// FromJob converts an internal job into its transport representation.
func FromJob(job *jobs.Job) Job {
	if job == nil {
		return Job{}
	}
	dto := Job{
		ID:                job.ID,
		ModelID:           job.Tuple.ModelID,
		MaterialID:        job.Tuple.MaterialID,
		ProcessID:         job.Tuple.ProcessID,
		MachineID:         job.Tuple.MachineID,
		Status:            string(job.Status),
		EstimatedWeight:   job.EstimatedWeight,
		EstimatedDuration: job.EstimatedDuration,
		EstimatedPrice:    job.EstimatedPrice,
		WeightOverride:    job.WeightOverride,
		DurationOverride:  job.DurationOverride,
		PriceOverride:     job.PriceOverride,
		EffectivePrice:    job.EffectivePrice(),
		SlicingCommand:    job.SlicingCommand,
		ErrorMessage:      job.ErrorMessage,
	}
	if !job.CreatedAt.IsZero() {
		dto.CreatedAt = job.CreatedAt.Format(dateTimeFormat)
	}
	if !job.UpdatedAt.IsZero() {
		dto.UpdatedAt = job.UpdatedAt.Format(dateTimeFormat)
	}
	for _, plate := range job.Plates {
		dto.Plates = append(dto.Plates, Plate{
			EstimatedWeight:   plate.EstimatedWeight,
			EstimatedDuration: plate.EstimatedDuration,
			Gcode:             plate.Gcode,
		})
	}
	return dto
}

// FromJobs converts a job slice, skipping nil entries.
func FromJobs(items []*jobs.Job) []Job {
	result := make([]Job, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		result = append(result, FromJob(item))
	}
	return result
}

// FromQuote converts an internal quote into its transport representation.
func FromQuote(quote *catalog.Quote) Quote {
	if quote == nil {
		return Quote{}
	}
	dto := Quote{
		ID:       quote.ID,
		Customer: quote.Customer,
		Subtotal: quote.Subtotal,
	}
	if !quote.CreatedAt.IsZero() {
		dto.CreatedAt = quote.CreatedAt.Format(dateTimeFormat)
	}
	if !quote.UpdatedAt.IsZero() {
		dto.UpdatedAt = quote.UpdatedAt.Format(dateTimeFormat)
	}
	for _, item := range quote.Items {
		dto.Items = append(dto.Items, QuoteItem{
			Position:   item.Position,
			ModelID:    item.ModelID,
			MaterialID: item.MaterialID,
			Colour:     item.Colour,
			ProcessID:  item.ProcessID,
			MachineID:  item.MachineID,
			Quantity:   item.Quantity,
			JobID:      item.JobID,
		})
	}
	return dto
}

// FromHealth converts the aggregate health summary plus the pending dispatch
// count into the API shape.
func FromHealth(health jobs.HealthSummary, pending int) QueueHealth {
	return QueueHealth{
		Total:      health.Total,
		Queued:     health.Queued,
		Processing: health.Processing,
		Sliced:     health.Sliced,
		Failed:     health.Failed,
		Pending:    pending,
	}
}

// MergeJobStats converts status-keyed counts to string keys for transport.
func MergeJobStats(stats map[jobs.Status]int) map[string]int {
	merged := make(map[string]int, len(stats))
	for status, count := range stats {
		merged[string(status)] = count
	}
	return merged
}
