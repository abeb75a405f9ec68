package report

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/yardwatch/internal/db"
)

// Newest first, as db.TransitRecords returns them.
var sample = []db.TransitRecord{
	{TorpedoID: "T4", EntryTS: 5000},
	{TorpedoID: "T3", EntryTS: 3000, ExitTS: 3600, UnloadEntryTS: 3100, UnloadExitTS: 3400},
	{TorpedoID: "T2", EntryTS: 2000, ExitTS: 2240, UnloadEntryTS: 2100},
	{TorpedoID: "T1", EntryTS: 1000, ExitTS: 1120, UnloadEntryTS: 1010, UnloadExitTS: 1070},
}

func TestDescribe(t *testing.T) {
	in := []float64{600, 120, 240}
	got := Describe(in)
	want := DwellStats{Count: 3, Mean: 320, StdDev: 249.7999, Min: 120, P50: 240, P90: 600, Max: 600}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-3)); diff != "" {
		t.Errorf("Describe() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []float64{600, 120, 240}, in, "input must not be reordered")

	assert.Equal(t, DwellStats{}, Describe(nil))
	assert.Equal(t, DwellStats{Count: 1, Mean: 5, Min: 5, P50: 5, P90: 5, Max: 5}, Describe([]float64{5}))
}

func TestSummarize(t *testing.T) {
	got := Summarize(sample)
	assert.Equal(t, 4, got.Vehicles)
	assert.Equal(t, 1, got.InYard)
	assert.Equal(t, 1, got.Unloading)
	assert.Equal(t, 3, got.YardDwell.Count)
	assert.Equal(t, 120.0, got.YardDwell.Min)
	assert.Equal(t, 600.0, got.YardDwell.Max)
	assert.Equal(t, 2, got.UnloadDwell.Count)
	assert.Equal(t, 180.0, got.UnloadDwell.Mean)
	assert.Equal(t, 0.5, got.UnloadedRate)

	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestWriteDwellHistogram(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDwellHistogram(&buf, sample))

	cfg, err := png.DecodeConfig(&buf)
	require.NoError(t, err)
	assert.Greater(t, cfg.Width, cfg.Height)

	assert.ErrorIs(t, WriteDwellHistogram(&bytes.Buffer{}, []db.TransitRecord{{TorpedoID: "T9", EntryTS: 1}}), ErrNoData)
}

func TestWritePerformanceChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePerformanceChart(&buf, sample, time.Unix(1767254400, 0).UTC()))

	html := buf.String()
	assert.Contains(t, html, "Yard Performance")
	assert.Contains(t, html, "Yard dwell")
	assert.Contains(t, html, "Unload dwell")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte(`"T1"`)), bytes.Index(buf.Bytes(), []byte(`"T4"`)), "oldest vehicle first")

	assert.ErrorIs(t, WritePerformanceChart(&bytes.Buffer{}, nil, time.Now()), ErrNoData)
}
