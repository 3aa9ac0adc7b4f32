// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates internal job and quote models into
// transport-friendly DTOs so consumers never couple to internal types.
//
// DTOs use camelCase JSON tags. Internal enums (jobs.Status) are exposed as
// lowercase strings and timestamps use RFC3339 with milliseconds. Nullable
// metrics stay pointers so "not measured" survives the wire.
package api
