// Package dispatch polls the job queue and hands leased entries to the
// slicing workflow, with bounded retries and stale-lease recovery.
package dispatch
