package export

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"pillarpuller/protocol"
)

// Metadata describes an exported session
type Metadata struct {
	Name       string    `yaml:"name"`
	ExportedAt time.Time `yaml:"exported_at"`
	Port       string    `yaml:"port,omitempty"`
	Baud       int       `yaml:"baud,omitempty"`

	Samples        int      `yaml:"samples"`
	FirstTimestamp *float64 `yaml:"first_timestamp,omitempty"`
	LastTimestamp  *float64 `yaml:"last_timestamp,omitempty"`
	FilteredForce  bool     `yaml:"filtered_force"`

	Files []string `yaml:"files"`
}

// describe fills the sample summary fields from samples
func (m *Metadata) describe(samples []protocol.Sample) {
	m.Samples = len(samples)
	if len(samples) == 0 {
		return
	}

	first, last := samples[0].Timestamp, samples[len(samples)-1].Timestamp
	m.FirstTimestamp = &first
	m.LastTimestamp = &last

	for _, s := range samples {
		if s.FilteredForce.Valid() {
			m.FilteredForce = true
			break
		}
	}
}

// WriteMetadata encodes m as YAML
func WriteMetadata(w io.Writer, m *Metadata) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	return enc.Close()
}

// ReadMetadata decodes a metadata file
func ReadMetadata(r io.Reader) (*Metadata, error) {
	var m Metadata
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return &m, nil
}
