// Package slicing runs the job workflow: collect catalog context, invoke the
// slicer, parse the generated G-code, and persist aggregates and price.
package slicing
