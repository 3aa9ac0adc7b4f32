// Package services defines the shared error taxonomy and context plumbing the
// pipeline components use when talking to external collaborators: the slicer
// binary, the catalog store, and the job queue.
//
// Errors produced by pipeline code should be built with Wrap so the dispatcher
// and logging layers can classify failures without string matching.
package services
