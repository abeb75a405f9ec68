package yard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrace_EntryAndExitSamples(t *testing.T) {
	e, rec, _ := newTestEngine(t)

	var samples []SectionEvent
	for i, r := range []SectionReading{
		occ("S2", DirIn, 15),
		occ("S2", DirIn, 16),
		occ("S2", DirIn, 16),
		occ("S2", DirOut, 16),
		clr("S2"),
	} {
		samples = append(samples, e.ProcessSnapshot(snap(baseTS+float64(i), r)).Traces...)
	}

	require.Equal(t, []EventKind{EventEntry, EventExit}, kinds(samples))
	assert.Equal(t, baseTS+1, samples[0].TS)
	assert.Equal(t, baseTS+4, samples[1].TS)
	for _, s := range samples {
		assert.Equal(t, "1", s.TorpedoID)
		assert.Equal(t, "1", s.EngineID)
		assert.Equal(t, "S2", s.SectionID)
	}
	assert.Equal(t, samples, rec.traces)
	assert.Equal(t, 1, e.TraceCounter())
}

func TestTrace_CounterSharedAcrossSections(t *testing.T) {
	e, rec, _ := newTestEngine(t)

	e.ProcessSnapshot(snap(baseTS, occ("S1", DirIn, 16)))
	e.ProcessSnapshot(snap(baseTS+1, occ("S13", DirIn, 20)))
	rep := e.ProcessSnapshot(snap(baseTS+2, occ("S14", DirIn, 16), occ("S12", DirIn, 18)))

	assert.Equal(t, 4, e.TraceCounter())
	require.Len(t, rep.Traces, 2)
	// Samples within a tick follow the trace watch-list order.
	assert.Equal(t, "S12", rep.Traces[0].SectionID)
	assert.Equal(t, "3", rep.Traces[0].TorpedoID)
	assert.Equal(t, "S14", rep.Traces[1].SectionID)
	assert.Equal(t, "4", rep.Traces[1].TorpedoID)
	assert.Len(t, rec.traces, 4)
}

func TestTrace_IgnoresSectionsOffTheList(t *testing.T) {
	e, rec, _ := newTestEngine(t)

	e.ProcessSnapshot(snap(baseTS, occ("S5", DirIn, 16)))
	e.ProcessSnapshot(snap(baseTS+1, occ("S5", DirOut, 2)))
	assert.Empty(t, rec.traces)
	assert.Equal(t, 0, e.TraceCounter())
}

func TestTrace_ResetForgetsCounts(t *testing.T) {
	e, _, _ := newTestEngine(t)

	e.ProcessSnapshot(snap(baseTS, occ("S1", DirIn, 16)))
	require.NoError(t, e.Reset("S1"))

	// Same count again counts as a fresh crossing after reset.
	rep := e.ProcessSnapshot(snap(baseTS+1, occ("S1", DirIn, 16)))
	require.Len(t, rep.Traces, 1)
	assert.Equal(t, "2", rep.Traces[0].TorpedoID)
}
