package gcode

import (
	"regexp"
	"strconv"
	"strings"
)

// Metrics is the result of parsing one slicer output file.
//
// WeightGrams and DurationSeconds are nil when the corresponding comment line
// is absent or yields no usable tokens.
type Metrics struct {
	WeightGrams     *float64
	DurationSeconds *float64
	Sanitized       string
}

const (
	executableBlockStart = "; EXECUTABLE_BLOCK_START"
	executableBlockEnd   = "; EXECUTABLE_BLOCK_END"
)

var (
	filamentLineRE  = regexp.MustCompile(`(?i); filament used \[g\]\s*=\s*([^\r\n]+)`)
	durationLineRE  = regexp.MustCompile(`(?i); total estimated time:\s*([^\r\n]+)`)
	numberTokenRE   = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	durationTokenRE = regexp.MustCompile(`(?i)(\d+)\s*([hms])`)
)

// Parse extracts weight and duration metrics from slicer output text and
// strips executable blocks from the returned copy.
func Parse(contents string) Metrics {
	return Metrics{
		WeightGrams:     parseFilamentWeight(contents),
		DurationSeconds: parseTotalDuration(contents),
		Sanitized:       stripExecutableBlocks(contents),
	}
}

// parseFilamentWeight sums every numeric token on the filament-used comment
// line. Multi-extruder slicers emit one value per extruder on that line.
func parseFilamentWeight(contents string) *float64 {
	match := filamentLineRE.FindStringSubmatch(contents)
	if match == nil {
		return nil
	}
	tokens := numberTokenRE.FindAllString(match[1], -1)
	if len(tokens) == 0 {
		return nil
	}
	total := 0.0
	for _, token := range tokens {
		value, err := strconv.ParseFloat(token, 64)
		if err != nil {
			continue
		}
		total += value
	}
	return &total
}

// parseTotalDuration sums <number><unit> tokens (h/m/s, any order, any subset)
// on the total-time comment line into seconds.
func parseTotalDuration(contents string) *float64 {
	match := durationLineRE.FindStringSubmatch(contents)
	if match == nil {
		return nil
	}
	tokens := durationTokenRE.FindAllStringSubmatch(match[1], -1)
	if len(tokens) == 0 {
		return nil
	}
	seconds := 0.0
	matched := false
	for _, token := range tokens {
		value, err := strconv.ParseFloat(token[1], 64)
		if err != nil {
			continue
		}
		matched = true
		switch strings.ToLower(token[2]) {
		case "h":
			seconds += value * 3600
		case "m":
			seconds += value * 60
		case "s":
			seconds += value
		}
	}
	if !matched {
		return nil
	}
	return &seconds
}

// stripExecutableBlocks removes every region delimited by the start/end marker
// pair. Markers match by exact trimmed-line equality and do not nest: a second
// start marker inside a block is ignored, an end marker always closes the
// current block, and an unterminated start marker drops the remaining text.
func stripExecutableBlocks(contents string) string {
	lines := splitLines(contents)
	kept := make([]string, 0, len(lines))
	inBlock := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == executableBlockStart {
			inBlock = true
			continue
		}
		if trimmed == executableBlockEnd {
			inBlock = false
			continue
		}
		if inBlock {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func splitLines(contents string) []string {
	normalized := strings.ReplaceAll(contents, "\r\n", "\n")
	return strings.Split(normalized, "\n")
}
