package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 7, 14, 5, 9, 0, time.UTC)

func TestResolveName(t *testing.T) {
	const pattern = "pillar_puller_20060102-150405"

	require.Equal(t, "pillar_puller_20240307-140509", ResolveName("", pattern, fixedNow))
	require.Equal(t, "pillar_puller_20240307-140509", ResolveName("  ", pattern, fixedNow))
	require.Equal(t, "run1", ResolveName("run1", pattern, fixedNow))
	require.Equal(t, "run1", ResolveName("run1.csv", pattern, fixedNow))
	require.Equal(t, "pillar 3", ResolveName(" pillar 3 ", pattern, fixedNow))
}

func TestSaveAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	exporter := &Exporter{
		Dir:      dir,
		Pattern:  "pillar_puller_20060102-150405",
		Plot:     true,
		Metadata: true,
		Port:     "/dev/ttyACM0",
		Baud:     115200,
		Now:      func() time.Time { return fixedNow },
	}

	samples := parseAll(t, "1,10.0,0.0,9.5", "2,11.5,0.1,11", "3,12.0,0.2,11.8")
	result, err := exporter.Save("", samples)
	require.NoError(t, err)

	require.Equal(t, "pillar_puller_20240307-140509", result.Name)
	require.Equal(t, 3, result.Samples)

	csvData, err := os.ReadFile(result.CSV)
	require.NoError(t, err)
	expected, err := Export(samples)
	require.NoError(t, err)
	require.Equal(t, expected, csvData)

	png, err := os.ReadFile(result.Plot)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(png, []byte("\x89PNG\r\n\x1a\n")), "plot should be a PNG")

	f, err := os.Open(result.Metadata)
	require.NoError(t, err)
	defer f.Close()
	md, err := ReadMetadata(f)
	require.NoError(t, err)

	require.Equal(t, result.Name, md.Name)
	require.True(t, fixedNow.Equal(md.ExportedAt))
	require.Equal(t, "/dev/ttyACM0", md.Port)
	require.Equal(t, 115200, md.Baud)
	require.Equal(t, 3, md.Samples)
	require.Equal(t, 1.0, *md.FirstTimestamp)
	require.Equal(t, 3.0, *md.LastTimestamp)
	require.True(t, md.FilteredForce)
	require.Equal(t, []string{result.Name + ".csv", result.Name + ".png"}, md.Files)
}

func TestSaveCSVOnly(t *testing.T) {
	dir := t.TempDir()
	exporter := &Exporter{Dir: dir, Pattern: "20060102"}

	result, err := exporter.Save("run1.csv", parseAll(t, "1,2,3"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "run1.csv"), result.CSV)
	require.Empty(t, result.Plot)
	require.Empty(t, result.Metadata)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestSaveEmptySessionSkipsPlot(t *testing.T) {
	dir := t.TempDir()
	exporter := &Exporter{Dir: dir, Pattern: "20060102", Plot: true, Metadata: true}

	result, err := exporter.Save("empty", nil)
	require.NoError(t, err)
	require.Empty(t, result.Plot)
	require.NotEmpty(t, result.Metadata)

	data, err := os.ReadFile(result.CSV)
	require.NoError(t, err)
	require.Equal(t, "Time,Forces,Platform Position\n", string(data))
}

func TestSaveRejectsPaths(t *testing.T) {
	exporter := &Exporter{Dir: t.TempDir(), Pattern: "20060102"}
	_, err := exporter.Save("../escape", nil)
	require.Error(t, err)
}
