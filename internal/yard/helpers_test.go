package yard

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/yardwatch/internal/timeutil"
	"github.com/banshee-data/yardwatch/internal/topology"
)

// 2026-01-01 08:00:00 UTC
const baseTS = 1767254400.0

type memRecorder struct {
	mu        sync.Mutex
	snapshots []Snapshot
	events    []SectionEvent
	transits  []TransitMark
	alerts    []TrailThroughAlert
	audits    []TrailThroughAudit
	confirms  []string
	traces    []SectionEvent
	dps       []DetectionPoints
	system    []SystemEvent
}

func (m *memRecorder) RecordSnapshot(s Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, s)
	return nil
}

func (m *memRecorder) RecordSectionEvent(ev SectionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *memRecorder) RecordTransit(t TransitMark) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transits = append(m.transits, t)
	return nil
}

func (m *memRecorder) RecordTrailThrough(a TrailThroughAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, a)
	return nil
}

func (m *memRecorder) RecordTrailThroughAudit(a TrailThroughAudit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, a)
	return nil
}

func (m *memRecorder) ConfirmTrailThrough(sectionID string, ts float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirms = append(m.confirms, sectionID)
	return nil
}

func (m *memRecorder) RecordTrainTrace(ev SectionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.traces = append(m.traces, ev)
	return nil
}

func (m *memRecorder) RecordDetectionPoints(d DetectionPoints) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dps = append(m.dps, d)
	return nil
}

func (m *memRecorder) RecordSystemEvent(ev SystemEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.system = append(m.system, ev)
	return nil
}

func (m *memRecorder) auditActions(section string) []AuditAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []AuditAction
	for _, a := range m.audits {
		if a.SectionID == section {
			out = append(out, a.Action)
		}
	}
	return out
}

func stockYard(t *testing.T) *topology.Registry {
	t.Helper()
	l, err := topology.LoadLayout("../../config/yard.layout.yaml")
	require.NoError(t, err)
	r, err := topology.Load(l)
	require.NoError(t, err)
	return r
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *memRecorder, *timeutil.MockClock) {
	t.Helper()
	rec := &memRecorder{}
	clock := timeutil.NewMockClock(time.Unix(int64(baseTS), 0))
	all := append([]Option{WithClock(clock), WithLocation(time.UTC)}, opts...)
	return New(stockYard(t), rec, all...), rec, clock
}

func occ(id string, dir Direction, axles int) SectionReading {
	return SectionReading{
		SectionID:     id,
		Status:        StatusOccupied,
		Direction:     dir,
		TorpedoAxles:  axles,
		TorpedoStatus: LabelNone,
	}
}

func clr(id string) SectionReading {
	return SectionReading{
		SectionID:     id,
		Status:        StatusCleared,
		Direction:     DirNone,
		TorpedoStatus: LabelNone,
	}
}

func labelled(r SectionReading, label string) SectionReading {
	r.TorpedoStatus = label
	return r
}

func snap(ts float64, rs ...SectionReading) Snapshot {
	return Snapshot{TS: ts, Sections: rs}
}

func kinds(evs []SectionEvent) []EventKind {
	var out []EventKind
	for _, ev := range evs {
		out = append(out, ev.Kind)
	}
	return out
}

// run feeds one reading per tick for a single section starting at baseTS.
func run(e *Engine, id string, readings ...SectionReading) []SectionEvent {
	var all []SectionEvent
	for i, r := range readings {
		r.SectionID = id
		rep := e.ProcessSnapshot(snap(baseTS+float64(i), r))
		all = append(all, rep.Events...)
	}
	return all
}
