// Package slicer wraps the external slicing binary behind a small client with
// an injectable executor so the workflow can be tested without a real slicer.
package slicer
