package pricing_test

import (
	"testing"

	"platen/internal/pricing"
)

func floatPtr(v float64) *float64 { return &v }

func TestEstimateCombinesMaterialAndTime(t *testing.T) {
	price := pricing.Estimate(pricing.Inputs{
		PricePerGram:     0.05,
		PricePerHour:     10,
		TotalWeightGrams: 20,
		TotalDurationSec: 3600,
	})
	if price == nil {
		t.Fatal("expected a price")
	}
	if *price != 11.0 {
		t.Fatalf("expected 11.0, got %v", *price)
	}
}

func TestEstimateNilWhenNothingToPrice(t *testing.T) {
	price := pricing.Estimate(pricing.Inputs{
		PricePerGram: 0.05,
		PricePerHour: 10,
	})
	if price != nil {
		t.Fatalf("expected nil price for zero weight and duration, got %v", *price)
	}
}

func TestEstimateIgnoresNonPositivePrices(t *testing.T) {
	price := pricing.Estimate(pricing.Inputs{
		PricePerGram:     0,
		PricePerHour:     -5,
		TotalWeightGrams: 100,
		TotalDurationSec: 7200,
	})
	if price != nil {
		t.Fatalf("expected nil price when rates are non-positive, got %v", *price)
	}
}

func TestEstimateOverridesBeatAggregates(t *testing.T) {
	price := pricing.Estimate(pricing.Inputs{
		PricePerGram:     0.1,
		PricePerHour:     5,
		TotalWeightGrams: 15,
		TotalDurationSec: 900,
		WeightOverride:   floatPtr(30),
		DurationOverride: floatPtr(7200),
	})
	if price == nil {
		t.Fatal("expected a price")
	}
	// 0.1*30 + 5*(7200/3600) = 3 + 10
	if *price != 13.0 {
		t.Fatalf("expected 13.0, got %v", *price)
	}
}

func TestEstimateEndToEndExample(t *testing.T) {
	// Two plates {10, 5} grams and {600, 300} seconds aggregate to 15g / 900s.
	price := pricing.Estimate(pricing.Inputs{
		PricePerGram:     0.1,
		PricePerHour:     5,
		TotalWeightGrams: 15,
		TotalDurationSec: 900,
	})
	if price == nil {
		t.Fatal("expected a price")
	}
	if *price != 2.75 {
		t.Fatalf("expected 2.75, got %v", *price)
	}
}
