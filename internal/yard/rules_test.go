package yard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEdgeRule_Entered(t *testing.T) {
	tests := []struct {
		name   string
		prevIn int
		axles  int
		dir    Direction
		want   bool
	}{
		{"crosses threshold", 10, 12, DirIn, true},
		{"already above", 12, 13, DirIn, false},
		{"below threshold", 8, 11, DirIn, false},
		{"wrong direction", 10, 12, DirOut, false},
		{"stopped", 10, 12, DirNone, false},
		{"jump from zero", 0, 16, DirIn, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, yardEdges.entered(tt.prevIn, tt.axles, tt.dir))
		})
	}

	assert.False(t, edgeRule{}.entered(0, 50, DirIn), "zero rule never enters")
}

func TestEdgeRule_Exited(t *testing.T) {
	out := 0
	seq := []struct {
		axles int
		dir   Direction
		fire  bool
	}{
		{16, DirOut, false},
		{10, DirOut, false},
		{6, DirNone, false},
		{5, DirOut, true},
		{0, DirNone, false},
	}
	for i, s := range seq {
		assert.Equal(t, s.fire, yardEdges.exited(&out, s.axles, s.dir), "step %d", i)
	}
	assert.Equal(t, 0, out)

	out = 16
	assert.False(t, yardEdges.exited(&out, 0, DirIn), "inbound never exits")
	assert.Equal(t, 16, out)
}

func TestEntry_OnlyOnUpwardCrossing(t *testing.T) {
	e, rec, _ := newTestEngine(t)

	evs := run(e, "S1",
		occ("", DirIn, 10),
		occ("", DirIn, 12),
		occ("", DirIn, 13),
		occ("", DirIn, 16),
	)

	require.Equal(t, []EventKind{EventEntry}, kinds(evs))
	assert.Equal(t, baseTS+1, evs[0].TS)
	assert.Equal(t, "T01012026080001", evs[0].TorpedoID)
	assert.Equal(t, "E01012026080001", evs[0].EngineID)

	require.Len(t, rec.transits, 1)
	assert.Equal(t, TransitMark{
		Kind:      EventEntry,
		TorpedoID: "T01012026080001",
		EngineID:  "E01012026080001",
		TS:        baseTS + 1,
		SectionID: "S1",
	}, rec.transits[0])
	assert.Len(t, rec.events, 1)
	assert.Len(t, rec.snapshots, 4)

	st, err := e.Section("S1")
	require.NoError(t, err)
	assert.Equal(t, baseTS+1, st.EntryTS)
	assert.Equal(t, 16, st.InAxles)
}

func TestEntryExit_OneOfEachPerRun(t *testing.T) {
	e, rec, _ := newTestEngine(t)

	evs := run(e, "S2",
		clr(""),
		occ("", DirIn, 4),
		occ("", DirIn, 8),
		occ("", DirIn, 12),
		occ("", DirIn, 16),
		occ("", DirOut, 16),
		occ("", DirOut, 10),
		occ("", DirOut, 5),
		clr(""),
		clr(""),
	)

	require.Equal(t, []EventKind{EventEntry, EventExit}, kinds(evs))
	assert.Equal(t, evs[0].TorpedoID, evs[1].TorpedoID)
	assert.Equal(t, baseTS+7, evs[1].TS)

	require.Len(t, rec.transits, 2)
	assert.Equal(t, EventExit, rec.transits[1].Kind)
	assert.Equal(t, evs[0].TorpedoID, rec.transits[1].TorpedoID)

	st, _ := e.Section("S2")
	assert.Equal(t, baseTS+7, st.ExitTS)
	assert.Equal(t, 0, st.OutAxles)
}

func TestEntryExit_SecondRunGetsNewIDs(t *testing.T) {
	e, _, _ := newTestEngine(t)

	first := run(e, "S1", occ("", DirIn, 12), occ("", DirOut, 8), occ("", DirOut, 2))
	require.Equal(t, []EventKind{EventEntry, EventExit}, kinds(first))

	rep := e.ProcessSnapshot(snap(baseTS+60, occ("S1", DirIn, 12)))
	require.Equal(t, []EventKind{EventEntry}, kinds(rep.Events))
	assert.Equal(t, "T01012026080100", rep.Events[0].TorpedoID)
	assert.NotEqual(t, first[0].TorpedoID, rep.Events[0].TorpedoID)
}

func TestUnloading_EntryInheritsFromApproach(t *testing.T) {
	e, rec, _ := newTestEngine(t)
	require.NoError(t, e.AssignTorpedo(TorpedoAssignment{SectionID: "S10", TorpedoID: "T-77"}))

	// S12 is approached from S10 (its right normal).
	var evs []SectionEvent
	ticks := []Snapshot{
		snap(baseTS, occ("S10", DirIn, 14), occ("S12", DirIn, 8)),
		snap(baseTS+1, occ("S10", DirIn, 10), occ("S12", DirIn, 12)),
		snap(baseTS+2, clr("S10"), occ("S12", DirNone, 16)),
		snap(baseTS+3, clr("S10"), occ("S12", DirNone, 9)),
		snap(baseTS+4, clr("S10"), occ("S12", DirNone, 3)),
	}
	for _, s := range ticks {
		evs = append(evs, e.ProcessSnapshot(s).Events...)
	}

	require.Equal(t, []EventKind{EventUnloadEntry, EventUnloadExit}, kinds(evs))
	assert.Equal(t, "T-77", evs[0].TorpedoID)
	assert.Equal(t, "T-77", evs[1].TorpedoID)

	require.Len(t, rec.transits, 2)
	assert.Equal(t, EventUnloadEntry, rec.transits[0].Kind)
	assert.Equal(t, "S12", rec.transits[0].SectionID)
	assert.Equal(t, EventUnloadExit, rec.transits[1].Kind)

	st, _ := e.Section("S12")
	assert.Equal(t, baseTS+1, st.UnloadEntryTS)
	assert.Equal(t, baseTS+4, st.UnloadExitTS)
}

func TestUnloading_IDsHoldUntilExit(t *testing.T) {
	e, rec, _ := newTestEngine(t)
	require.NoError(t, e.AssignTorpedo(TorpedoAssignment{SectionID: "S10", TorpedoID: "T-77"}))

	var evs []SectionEvent
	evs = append(evs, e.ProcessSnapshot(snap(baseTS, occ("S10", DirIn, 14), occ("S12", DirIn, 12))).Events...)
	require.Equal(t, []EventKind{EventUnloadEntry}, kinds(evs))
	assert.Equal(t, "T-77", evs[0].TorpedoID)

	// A new vehicle queues on the approach while S12 is still unloading.
	require.NoError(t, e.AssignTorpedo(TorpedoAssignment{SectionID: "S10", TorpedoID: "T-88"}))
	evs = append(evs, e.ProcessSnapshot(snap(baseTS+1, occ("S10", DirIn, 14), occ("S12", DirIn, 16))).Events...)

	st, _ := e.Section("S12")
	assert.Equal(t, "T-77", st.TorpedoID)

	evs = append(evs, e.ProcessSnapshot(snap(baseTS+2, occ("S10", DirIn, 14), occ("S12", DirNone, 9))).Events...)
	evs = append(evs, e.ProcessSnapshot(snap(baseTS+3, occ("S10", DirIn, 14), occ("S12", DirNone, 3))).Events...)

	require.Equal(t, []EventKind{EventUnloadEntry, EventUnloadExit}, kinds(evs))
	assert.Equal(t, "T-77", evs[1].TorpedoID)
	require.Len(t, rec.transits, 2)
	assert.Equal(t, "T-77", rec.transits[1].TorpedoID)
}

func TestUnloading_GeneratesIDsWithoutNeighbor(t *testing.T) {
	e, rec, _ := newTestEngine(t)

	evs := run(e, "S14", occ("", DirIn, 12))
	require.Equal(t, []EventKind{EventUnloadEntry}, kinds(evs))
	assert.Equal(t, "T01012026080000", evs[0].TorpedoID)
	require.Len(t, rec.transits, 1)
	assert.Equal(t, "T01012026080000", rec.transits[0].TorpedoID)
}

func TestMiddle_NoEvents(t *testing.T) {
	e, rec, _ := newTestEngine(t)

	evs := run(e, "S7",
		occ("", DirIn, 6),
		occ("", DirIn, 12),
		occ("", DirIn, 16),
		occ("", DirOut, 4),
		clr(""),
	)
	assert.Empty(t, evs)
	assert.Empty(t, rec.transits)

	st, _ := e.Section("S7")
	assert.Equal(t, 4, st.OutAxles)
}

func TestExitWithoutIDIsNotRecordedAsTransit(t *testing.T) {
	e, rec, _ := newTestEngine(t)

	evs := run(e, "S1", occ("", DirOut, 8), occ("", DirOut, 2))
	require.Equal(t, []EventKind{EventExit}, kinds(evs))
	assert.Empty(t, evs[0].TorpedoID)
	assert.Empty(t, rec.transits)
	assert.Len(t, rec.events, 1)
}

func TestNewIDs(t *testing.T) {
	tid, eid := NewIDs(baseTS, time.UTC)
	assert.Equal(t, "T01012026080000", tid)
	assert.Equal(t, "E01012026080000", eid)

	ist := time.FixedZone("IST", 5*3600+1800)
	tid, _ = NewIDs(baseTS, ist)
	assert.Equal(t, "T01012026133000", tid)

	again, _ := NewIDs(baseTS, ist)
	assert.Equal(t, tid, again)
}
