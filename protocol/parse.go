package protocol

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformedLine matches every *MalformedLine via errors.Is
var ErrMalformedLine = errors.New("malformed telemetry line")

// MalformedLine reports a telemetry line that could not be turned into a
// Sample. It keeps the raw line so callers can log or count it.
type MalformedLine struct {
	Line   string // Raw line as received
	Reason string

	Fields int // Observed field count
	Field  int // 1-based index of the offending field, 0 for a bad count
}

func (e *MalformedLine) Error() string {
	return fmt.Sprintf("malformed line %q: %s", e.Line, e.Reason)
}

func (e *MalformedLine) Is(target error) bool {
	return target == ErrMalformedLine
}

// ParseLine parses a single telemetry line into a Sample.
//
// The line must already be stripped of its LF terminator; a trailing CR
// from a CRLF terminator is tolerated. Exactly 3 or 4 comma separated
// finite decimal fields are accepted. Anything else, including a line
// with no comma at all, returns a *MalformedLine.
func ParseLine(line string) (Sample, error) {
	fields := strings.Split(strings.TrimSuffix(line, "\r"), FieldDelimiter)
	n := len(fields)

	if n != FieldsBase && n != FieldsFiltered {
		return Sample{}, &MalformedLine{
			Line:   line,
			Reason: fmt.Sprintf("unexpected field count %d (want %d or %d)", n, FieldsBase, FieldsFiltered),
			Fields: n,
		}
	}

	var values [FieldsFiltered]float64
	for i, field := range fields {
		v, err := parseField(field)
		if err != nil {
			return Sample{}, &MalformedLine{
				Line:   line,
				Reason: fmt.Sprintf("field %d not numeric: %q: %v", i+1, field, err),
				Fields: n,
				Field:  i + 1,
			}
		}
		values[i] = v
	}

	sample := Sample{
		Timestamp:        values[0],
		Force:            values[1],
		PlatformDistance: values[2],
	}
	if n == FieldsFiltered {
		sample.FilteredForce = Some(values[3])
	}

	return sample, nil
}

// parseField parses one decimal field. Hex floats and the textual
// NaN/Inf spellings accepted by strconv are rejected.
func parseField(field string) (float64, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return 0, errors.New("empty")
	}

	for i := 0; i < len(field); i++ {
		if !isDecimalChar(field[i]) {
			return 0, fmt.Errorf("unexpected character %q", field[i])
		}
	}

	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("not finite")
	}

	return v, nil
}

func isDecimalChar(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c == '.', c == '+', c == '-', c == 'e', c == 'E':
		return true
	}
	return false
}
