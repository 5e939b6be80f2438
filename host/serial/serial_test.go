package serial

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyUSB1")
	require.Equal(t, "/dev/ttyUSB1", cfg.Device)
	require.Equal(t, DefaultBaud, cfg.Baud)
	require.Equal(t, 100, cfg.ReadTimeout)

	cfg = DefaultConfig("")
	require.Equal(t, DefaultDevice(), cfg.Device)
}

func TestOpenNilConfig(t *testing.T) {
	_, err := Open(nil)
	require.Error(t, err)
}
