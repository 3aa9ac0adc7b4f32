package api_test

import (
	"testing"
	"time"

	"platen/internal/api"
	"platen/internal/catalog"
	"platen/internal/jobs"
)

func floatPtr(v float64) *float64 { return &v }
func int64Ptr(v int64) *int64     { return &v }

func TestFromJobCarriesSelectionAndResults(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	job := &jobs.Job{
		ID:                7,
		Tuple:             jobs.Tuple{ModelID: 1, MaterialID: 2, ProcessID: 3, MachineID: 4},
		Status:            jobs.StatusSliced,
		Plates:            []jobs.Plate{{EstimatedWeight: floatPtr(12.5), Gcode: "G1 X0\n"}},
		EstimatedWeight:   floatPtr(12.5),
		EstimatedDuration: floatPtr(3600),
		EstimatedPrice:    floatPtr(1.25),
		CreatedAt:         created,
		UpdatedAt:         created,
	}

	dto := api.FromJob(job)
	if dto.ModelID != 1 || dto.MaterialID != 2 || dto.ProcessID != 3 || dto.MachineID != 4 {
		t.Fatalf("selection not carried: %+v", dto)
	}
	if dto.Status != "sliced" {
		t.Fatalf("unexpected status %q", dto.Status)
	}
	if len(dto.Plates) != 1 || dto.Plates[0].EstimatedWeight == nil {
		t.Fatalf("plates not converted: %+v", dto.Plates)
	}
	if dto.EffectivePrice == nil || *dto.EffectivePrice != 1.25 {
		t.Fatalf("expected effective price 1.25, got %v", dto.EffectivePrice)
	}
	if dto.CreatedAt == "" || dto.UpdatedAt == "" {
		t.Fatal("expected formatted timestamps")
	}
}

func TestFromJobPrefersPriceOverride(t *testing.T) {
	t.Parallel()

	job := &jobs.Job{
		EstimatedPrice: floatPtr(1.25),
		PriceOverride:  floatPtr(4.00),
	}
	dto := api.FromJob(job)
	if dto.EffectivePrice == nil || *dto.EffectivePrice != 4.00 {
		t.Fatalf("expected override as effective price, got %v", dto.EffectivePrice)
	}
}

func TestFromJobsSkipsNil(t *testing.T) {
	t.Parallel()

	converted := api.FromJobs([]*jobs.Job{nil, {ID: 1}, nil})
	if len(converted) != 1 || converted[0].ID != 1 {
		t.Fatalf("unexpected conversion: %+v", converted)
	}
}

func TestFromQuoteCarriesItems(t *testing.T) {
	t.Parallel()

	quote := &catalog.Quote{
		ID:       3,
		Customer: "acme",
		Subtotal: 7.5,
		Items: []catalog.QuoteItem{
			{Position: 0, ModelID: int64Ptr(1), Quantity: 2, JobID: int64Ptr(9)},
			{Position: 1, Colour: "black", Quantity: 1},
		},
	}

	dto := api.FromQuote(quote)
	if dto.Subtotal != 7.5 || dto.Customer != "acme" {
		t.Fatalf("unexpected quote: %+v", dto)
	}
	if len(dto.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(dto.Items))
	}
	if dto.Items[0].JobID == nil || *dto.Items[0].JobID != 9 {
		t.Fatalf("job reference lost: %+v", dto.Items[0])
	}
	if dto.Items[1].Colour != "black" {
		t.Fatalf("colour lost: %+v", dto.Items[1])
	}
}

func TestFromHealthMergesPending(t *testing.T) {
	t.Parallel()

	health := api.FromHealth(jobs.HealthSummary{Total: 4, Queued: 2, Failed: 1, Sliced: 1}, 2)
	if health.Total != 4 || health.Queued != 2 || health.Pending != 2 {
		t.Fatalf("unexpected health: %+v", health)
	}
}

func TestMergeJobStats(t *testing.T) {
	t.Parallel()

	merged := api.MergeJobStats(map[jobs.Status]int{jobs.StatusQueued: 2, jobs.StatusFailed: 1})
	if merged["queued"] != 2 || merged["failed"] != 1 {
		t.Fatalf("unexpected merge: %v", merged)
	}
}
