package protocol

import "strconv"

// Sample is one parsed telemetry reading. Samples are values and are
// never modified after ParseLine returns them.
type Sample struct {
	// Timestamp is the device clock as reported, stored without unit
	// conversion. It is not guaranteed to be monotonic.
	Timestamp float64

	Force            float64
	PlatformDistance float64

	// FilteredForce is absent when the device sent only three fields.
	FilteredForce OptionalFloat
}

// OptionalFloat is a float64 that may be explicitly absent.
// The zero value is absent.
type OptionalFloat struct {
	value float64
	valid bool
}

// Some returns a present OptionalFloat holding v
func Some(v float64) OptionalFloat {
	return OptionalFloat{value: v, valid: true}
}

// None returns an absent OptionalFloat
func None() OptionalFloat {
	return OptionalFloat{}
}

// Get returns the value and whether it is present
func (o OptionalFloat) Get() (float64, bool) {
	return o.value, o.valid
}

// Valid reports whether a value is present
func (o OptionalFloat) Valid() bool {
	return o.valid
}

func (o OptionalFloat) String() string {
	if !o.valid {
		return "absent"
	}
	return FormatFloat(o.value)
}

// FormatFloat renders v in plain decimal notation with the minimum
// number of digits needed to read it back exactly.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
