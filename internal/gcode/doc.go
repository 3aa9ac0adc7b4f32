// Package gcode extracts manufacturing metrics from slicer-produced G-code
// text and sanitizes embedded executable directives.
//
// Parsing is pure: callers read the file and pass its contents in. Metrics
// that cannot be located are reported as absent rather than zero, so callers
// can distinguish "slicer said 0" from "slicer said nothing".
package gcode
