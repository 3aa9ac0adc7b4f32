// Package daemon coordinates the long-running platen process.
//
// It wires configuration, the catalog and job stores, and the dispatcher into
// a single lifecycle with flock-based locking to prevent multiple instances,
// and serves the local HTTP API for status and job inspection.
//
// Keep orchestration logic here: the workflow steps live in their own
// packages while the daemon focuses on startup, shutdown, and coordination.
package daemon
