package catalog

import (
	"encoding/json"
	"time"
)

// ConfigDocument is an opaque slicer configuration payload. The payload is an
// ordered mapping of string to arbitrary value owned by the external slicing
// tool; it is stored and materialized byte-for-byte and never schema-validated.
type ConfigDocument struct {
	ID        int64
	Name      string
	Payload   json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Model is an uploaded 3D model with its stored file name.
type Model struct {
	ID        int64
	Name      string
	Filename  string
	CreatedAt time.Time
}

// Material is a printable filament with its per-gram price and slicer config.
type Material struct {
	ID           int64
	Name         string
	PricePerGram float64
	ConfigID     *int64
	Active       bool
	CreatedAt    time.Time
}

// Process is a print-process profile (layer heights, speeds) with its config.
type Process struct {
	ID        int64
	Name      string
	ConfigID  *int64
	Active    bool
	CreatedAt time.Time
}

// Machine is a printer with its per-hour price and slicer config.
type Machine struct {
	ID           int64
	Name         string
	PricePerHour float64
	ConfigID     *int64
	Active       bool
	CreatedAt    time.Time
}

// QuoteItem is one line of a quote. Reference fields are nil when the
// customer has not picked that option yet.
type QuoteItem struct {
	ID         int64
	Position   int
	ModelID    *int64
	MaterialID *int64
	Colour     string
	ProcessID  *int64
	MachineID  *int64
	Quantity   int
	JobID      *int64
}

// Quote is a customer order request with its line items and computed subtotal.
type Quote struct {
	ID        int64
	Customer  string
	Subtotal  float64
	Items     []QuoteItem
	CreatedAt time.Time
	UpdatedAt time.Time
}
