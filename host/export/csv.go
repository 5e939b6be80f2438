// Package export writes recorded sessions to disk: a CSV of the full
// history, with an optional PNG plot and YAML metadata alongside it.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"pillarpuller/protocol"
)

// Header is the CSV header row. The filtered force is not exported.
var Header = []string{"Time", "Forces", "Platform Position"}

// Export renders samples as CSV bytes
func Export(samples []protocol.Sample) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, samples); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCSV writes the header and one row per sample, in order. The raw
// stored timestamp is written without unit conversion.
func WriteCSV(w io.Writer, samples []protocol.Sample) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	row := make([]string, len(Header))
	for i, s := range samples {
		row[0] = protocol.FormatFloat(s.Timestamp)
		row[1] = protocol.FormatFloat(s.Force)
		row[2] = protocol.FormatFloat(s.PlatformDistance)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
