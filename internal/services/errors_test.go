package services_test

import (
	"errors"
	"strings"
	"testing"

	"platen/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	cause := errors.New("exit status 2")
	err := services.Wrap(services.ErrExternalTool, "slicer", "invoke", "slicer exited non-zero", cause)

	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected error to match ErrExternalTool, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to remain reachable")
	}
	if !strings.Contains(err.Error(), "slicer: invoke") {
		t.Fatalf("expected component context in message, got %q", err.Error())
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "jobs", "update", "persist failed", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected nil marker to default to ErrTransient, got %v", err)
	}
}

func TestDetailsExtractsStructure(t *testing.T) {
	cause := errors.New("no such file")
	err := services.Wrap(services.ErrNotFound, "catalog", "resolve model", "model file missing", cause)

	details := services.Details(err)
	if details.Kind != "not found" {
		t.Fatalf("unexpected kind %q", details.Kind)
	}
	if details.Component != "catalog" || details.Operation != "resolve model" {
		t.Fatalf("unexpected detail context: %#v", details)
	}
	if details.Cause != cause {
		t.Fatal("expected cause passthrough")
	}
}

func TestDetailsPlainError(t *testing.T) {
	details := services.Details(errors.New("boom"))
	if details.Kind != "" || details.Message != "boom" {
		t.Fatalf("unexpected details for plain error: %#v", details)
	}
}
