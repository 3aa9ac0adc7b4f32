// Package catalog persists the document records surrounding the slicing
// pipeline: models, materials, processes, machines, their raw slicer config
// payloads, and quotes with their line items.
//
// The pipeline consumes these records through narrow read methods; the admin
// surface that creates them is out of scope and represented here only by the
// write methods the CLI and tests use to seed data.
package catalog
