// Package protocol implements the Pillar Puller serial line protocol.
//
// The device streams one sample per line:
//
//	<timestamp>,<force>,<platformDistance>[,<filteredForce>]
//
// and accepts one command per line, a token optionally followed by a
// value with no separator (for example "move_to_position25").
package protocol

// Version represents the host protocol version
const Version = "0.1.0"

// Protocol constants
const (
	FieldDelimiter = "," // Separator between telemetry fields
	LineTerminator = "\n"

	// Accepted telemetry field counts
	FieldsBase     = 3 // timestamp, force, platform distance
	FieldsFiltered = 4 // ... plus filtered force
)
