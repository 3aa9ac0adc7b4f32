// Package jobs persists slicing jobs and the dispatch queue that drives them.
//
// A job is the cached, priced result of slicing one (model, material,
// process, machine) tuple. The tuple is the job's identity: at most one
// non-deleted job exists per tuple, enforced both by a validation-time check
// and by a unique index consulted inside FindOrCreate's transaction.
//
// The dispatch queue is an explicit table with enqueue/dequeue/ack/nack
// semantics and a per-entry attempt counter; the dispatcher polls it rather
// than scanning job statuses.
package jobs
