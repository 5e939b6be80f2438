package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pillarpuller/protocol"
)

// Exporter saves sessions to a directory
type Exporter struct {
	Dir string

	// Pattern is the time layout used to name unnamed exports
	Pattern string

	Plot     bool // write <name>.png
	Metadata bool // write <name>.yaml

	// Link details recorded in the metadata
	Port string
	Baud int

	// Now returns the current time; defaults to time.Now
	Now func() time.Time
}

// Result lists the files a Save wrote. Plot and Metadata are empty when
// not written.
type Result struct {
	Name     string
	CSV      string
	Plot     string
	Metadata string
	Samples  int
}

// ResolveName turns the operator's export name into a base file name
// without extension. An empty name falls back to now formatted with
// pattern; a trailing ".csv" is dropped so "run1" and "run1.csv" agree.
func ResolveName(name, pattern string, now time.Time) string {
	name = strings.TrimSpace(name)
	name = strings.TrimSuffix(name, ".csv")
	if name == "" {
		return now.Format(pattern)
	}
	return name
}

// Save writes samples to <Dir>/<name>.csv, plus the plot and metadata
// files when enabled. The CSV is always written first; a failure on an
// optional file is returned after the CSV is safely on disk.
func (e *Exporter) Save(name string, samples []protocol.Sample) (Result, error) {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	exportedAt := now()

	base := ResolveName(name, e.Pattern, exportedAt)
	if base != filepath.Base(base) {
		return Result{}, fmt.Errorf("export name %q must not contain a path", name)
	}

	dir := e.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("failed to create export directory: %w", err)
	}

	result := Result{
		Name:    base,
		CSV:     filepath.Join(dir, base+".csv"),
		Samples: len(samples),
	}

	if err := writeFile(result.CSV, func(w io.Writer) error {
		return WriteCSV(w, samples)
	}); err != nil {
		return Result{}, err
	}

	var errs []error

	if e.Plot && len(samples) > 0 {
		path := filepath.Join(dir, base+".png")
		err := writeFile(path, func(w io.Writer) error {
			return WritePlot(w, samples, "Forces and Platform Position Over Time")
		})
		if err != nil {
			errs = append(errs, err)
		} else {
			result.Plot = path
		}
	}

	if e.Metadata {
		md := &Metadata{
			Name:       base,
			ExportedAt: exportedAt,
			Port:       e.Port,
			Baud:       e.Baud,
			Files:      []string{filepath.Base(result.CSV)},
		}
		if result.Plot != "" {
			md.Files = append(md.Files, filepath.Base(result.Plot))
		}
		md.describe(samples)

		path := filepath.Join(dir, base+".yaml")
		err := writeFile(path, func(w io.Writer) error {
			return WriteMetadata(w, md)
		})
		if err != nil {
			errs = append(errs, err)
		} else {
			result.Metadata = path
		}
	}

	return result, errors.Join(errs...)
}

// writeFile creates path and fills it with write
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
