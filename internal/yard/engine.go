// Package yard is the torpedo yard state machine. It consumes full-yard
// sensor snapshots and point reports, keeps one state record per section,
// and derives vehicle identity, entry/exit/unload events, trail-through
// alerts and the loaded/empty label of each section.
package yard

import (
	"errors"
	"sync"
	"time"

	"github.com/banshee-data/yardwatch/internal/monitoring"
	"github.com/banshee-data/yardwatch/internal/timeutil"
	"github.com/banshee-data/yardwatch/internal/topology"
)

// Engine owns all mutable yard state. Every exported method takes the engine
// lock, so a snapshot is processed end to end before the next operation.
type Engine struct {
	mu sync.Mutex

	topo      *topology.Registry
	table     *Table
	trace     *traceSampler
	rec       Recorder
	pub       Publisher
	clock     timeutil.Clock
	loc       *time.Location
	logf      func(format string, v ...interface{})
	warnf     func(format string, v ...interface{})
	monitored []string

	traceOrder []string

	// cur and prev are the readings of the current and previous snapshot
	// keyed by section id. cur is only meaningful during a tick.
	cur  map[string]SectionReading
	prev map[string]SectionReading

	last  Status
	ticks uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used for published status and clear timestamps.
func WithClock(c timeutil.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithPublisher sets the status sink.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.pub = p }
}

// WithLocation sets the zone vehicle ids are formatted in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

// New builds an engine over topo. A nil rec discards all writes.
func New(topo *topology.Registry, rec Recorder, opts ...Option) *Engine {
	if rec == nil {
		rec = NopRecorder{}
	}
	e := &Engine{
		topo:       topo,
		table:      NewTable(topo),
		trace:      newTraceSampler(topo),
		rec:        rec,
		clock:      timeutil.RealClock{},
		loc:        time.Local,
		logf:       func(format string, v ...interface{}) { monitoring.Logf(format, v...) },
		warnf:      monitoring.Warnf,
		monitored:  topo.Monitored(),
		traceOrder: topo.Members(topology.ZoneTrace),
	}
	for _, o := range opts {
		o(e)
	}
	e.last = e.buildStatus()
	return e
}

// TickReport summarises what one snapshot produced.
type TickReport struct {
	TS        float64        `json:"ts"`
	Events    []SectionEvent `json:"events,omitempty"`
	Traces    []SectionEvent `json:"traces,omitempty"`
	Hazards   []string       `json:"hazards,omitempty"`
	NewAlerts []string       `json:"new_alerts,omitempty"`
	Unknown   []string       `json:"unknown_sections,omitempty"`
	Status    Status         `json:"status"`
}

// ProcessSnapshot runs one tick. Readings for sections outside the topology
// are logged and skipped; the rest of the snapshot is still processed.
func (e *Engine) ProcessSnapshot(s Snapshot) TickReport {
	e.mu.Lock()
	defer e.mu.Unlock()

	rep := TickReport{TS: s.TS}
	e.persisted("snapshot", e.rec.RecordSnapshot(s))

	e.cur = make(map[string]SectionReading, len(s.Sections))
	for _, r := range s.Sections {
		st := e.table.ref(r.SectionID)
		if st == nil {
			e.warnf("snapshot at %.3f: %v", s.TS, notFound("section", r.SectionID))
			rep.Unknown = append(rep.Unknown, r.SectionID)
			continue
		}
		st.apply(r)
		e.cur[r.SectionID] = r
	}

	for i := range e.table.states {
		st := &e.table.states[i]
		if _, ok := e.cur[st.ID]; !ok {
			continue
		}
		rep.Events = append(rep.Events, e.detect(st, s.TS)...)
	}
	rep.Traces = e.sampleTrace(s.TS)
	rep.Hazards, rep.NewAlerts = e.detectTrailThrough(s.TS)
	e.propagateLabels()

	rep.Status = e.buildStatus()
	e.last = rep.Status
	e.prev = e.cur
	e.cur = nil
	e.ticks++

	if e.pub != nil {
		e.pub.PublishStatus(rep.Status)
	}
	return rep
}

// ApplyPoints records point reports. Updates naming unknown points or
// sections are skipped and returned as ErrNotFound.
func (e *Engine) ApplyPoints(updates ...PointUpdate) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for _, u := range updates {
		sectionID := u.SectionID
		if u.PointID != "" {
			p, ok := e.topo.Point(u.PointID)
			if !ok {
				errs = append(errs, notFound("point", u.PointID))
				continue
			}
			sectionID = p.SectionID
		}
		st := e.table.ref(sectionID)
		if st == nil {
			errs = append(errs, notFound("section", sectionID))
			continue
		}
		if st.PointStatus != u.Status || st.PointMode != u.Mode {
			e.logf("point %s on %s: %s/%s", st.PointID, st.ID, u.Status, u.Mode)
		}
		st.PointStatus = u.Status
		st.PointMode = u.Mode
	}
	return errors.Join(errs...)
}

// AssignTorpedo overrides the torpedo id of a section.
func (e *Engine) AssignTorpedo(a TorpedoAssignment) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.table.ref(a.SectionID)
	if st == nil {
		return notFound("section", a.SectionID)
	}
	st.TorpedoID = a.TorpedoID
	e.logf("section %s torpedo id set to %s", a.SectionID, a.TorpedoID)
	return nil
}

// Reset clears the transient state of one section. Links survive.
func (e *Engine) Reset(sectionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.table.ref(sectionID)
	if st == nil {
		return notFound("section", sectionID)
	}
	now := timeutil.Epoch(e.clock.Now())
	if st.Alerted {
		e.confirmAlert(st, now)
	}
	st.reset()
	e.trace.reset(sectionID)
	e.systemEvent(now, "section_reset", "section "+sectionID+" reset")
	return nil
}

// ResetAll clears the transient state of every section.
func (e *Engine) ResetAll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := timeutil.Epoch(e.clock.Now())
	for i := range e.table.states {
		if st := &e.table.states[i]; st.Alerted {
			e.confirmAlert(st, now)
		}
	}
	e.table.ResetAll()
	e.trace.resetAll()
	e.systemEvent(now, "yard_reset", "all sections reset")
}

// Section returns a copy of the state of id.
func (e *Engine) Section(id string) (SectionState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.table.Get(id)
	if !ok {
		return SectionState{}, notFound("section", id)
	}
	return st, nil
}

// Sections returns copies of every section state in topology order.
func (e *Engine) Sections() []SectionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.table.All()
}

// Ticks returns the number of snapshots processed.
func (e *Engine) Ticks() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ticks
}

// Topology returns the registry the engine was built on.
func (e *Engine) Topology() *topology.Registry {
	return e.topo
}

// persisted logs a failed store write. Live state is kept either way.
func (e *Engine) persisted(what string, err error) {
	if err != nil {
		monitoring.Errorf("persistence failure: %s: %v", what, err)
	}
}

func (e *Engine) systemEvent(ts float64, id, desc string) {
	e.persisted("system event", e.rec.RecordSystemEvent(SystemEvent{TS: ts, EventID: id, Description: desc}))
	e.logf("%s", desc)
}
