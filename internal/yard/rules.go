package yard

import "github.com/banshee-data/yardwatch/internal/topology"

// edgeRule holds the axle-count thresholds of one edge detector.
// Entry fires when the count reaches EntryAt moving in, having been below it
// on the previous tick. Exit arms once the count is at least ArmAt while
// moving out or stopped, and fires when it falls below ArmAt.
type edgeRule struct {
	EntryAt int
	ArmAt   int
}

func (r edgeRule) entered(prevIn, axles int, dir Direction) bool {
	return r.EntryAt > 0 && dir == DirIn && axles >= r.EntryAt && prevIn < r.EntryAt
}

func (r edgeRule) exited(out *int, axles int, dir Direction) bool {
	if r.ArmAt <= 0 || (dir != DirOut && dir != DirNone) {
		return false
	}
	if axles >= r.ArmAt {
		*out = axles
		return false
	}
	if *out >= r.ArmAt {
		*out = 0
		return true
	}
	return false
}

var (
	yardEdges  = edgeRule{EntryAt: 12, ArmAt: 6}
	traceEdges = edgeRule{EntryAt: 16, ArmAt: 1}
)

// zoneRule is the behaviour of one rule zone. With tickInherit set the
// section follows its upstream neighbor's ids on every tick without an
// entry; otherwise ids only change at the entry edge and hold until exit.
type zoneRule struct {
	edges       edgeRule
	entryKind   EventKind
	exitKind    EventKind
	enter       func(e *Engine, st *SectionState, ts float64)
	leave       func(e *Engine, st *SectionState, ts float64)
	tickInherit bool
}

var zoneRules = map[topology.Zone]zoneRule{
	topology.ZoneEntryExit: {
		edges:       yardEdges,
		entryKind:   EventEntry,
		exitKind:    EventExit,
		enter:       (*Engine).enterYard,
		leave:       (*Engine).leaveYard,
		tickInherit: true,
	},
	topology.ZoneUnloading: {
		edges:     yardEdges,
		entryKind: EventUnloadEntry,
		exitKind:  EventUnloadExit,
		enter:     (*Engine).enterUnloading,
		leave:     (*Engine).leaveUnloading,
	},
	topology.ZoneMiddle: {tickInherit: true},
}

// detect runs the zone rule of st for the current tick and returns the
// edges that fired. st already holds the current reading.
func (e *Engine) detect(st *SectionState, ts float64) []SectionEvent {
	rule, ok := zoneRules[st.Zone]
	if !ok {
		return nil
	}

	var fired []SectionEvent
	if rule.edges.entered(st.InAxles, st.TorpedoAxles, st.Direction) {
		rule.enter(e, st, ts)
		st.OutAxles = 0
		fired = append(fired, e.emit(st, rule.entryKind, ts))
	} else if rule.tickInherit {
		e.inherit(st)
	}

	if rule.edges.exited(&st.OutAxles, st.TorpedoAxles, st.Direction) {
		rule.leave(e, st, ts)
		fired = append(fired, e.emit(st, rule.exitKind, ts))
	}

	st.InAxles = st.TorpedoAxles
	if rule.edges.ArmAt == 0 && st.Direction == DirOut {
		st.OutAxles = st.TorpedoAxles
	}
	return fired
}

func (e *Engine) emit(st *SectionState, kind EventKind, ts float64) SectionEvent {
	ev := eventFrom(st, kind, ts)
	e.persisted("section event", e.rec.RecordSectionEvent(ev))
	e.logf("section %s %s torpedo=%s engine=%s axles=%d", st.ID, kind, st.TorpedoID, st.EngineID, st.TorpedoAxles)
	return ev
}

func eventFrom(st *SectionState, kind EventKind, ts float64) SectionEvent {
	return SectionEvent{
		TS:            ts,
		SectionID:     st.ID,
		Kind:          kind,
		Status:        st.Status,
		EngineAxles:   st.EngineAxles,
		TorpedoAxles:  st.TorpedoAxles,
		Direction:     st.Direction,
		Speed:         st.Speed,
		TorpedoStatus: st.TorpedoStatus,
		TorpedoID:     st.TorpedoID,
		EngineID:      st.EngineID,
	}
}

func (e *Engine) mark(st *SectionState, kind EventKind, ts float64) {
	if st.TorpedoID == "" {
		e.warnf("section %s %s without a torpedo id, transit not recorded", st.ID, kind)
		return
	}
	e.persisted("transit", e.rec.RecordTransit(TransitMark{
		Kind:      kind,
		TorpedoID: st.TorpedoID,
		EngineID:  st.EngineID,
		TS:        ts,
		SectionID: st.ID,
	}))
}

func (e *Engine) enterYard(st *SectionState, ts float64) {
	st.TorpedoID, st.EngineID = NewIDs(ts, e.loc)
	st.EntryTS = ts
	e.mark(st, EventEntry, ts)
}

func (e *Engine) leaveYard(st *SectionState, ts float64) {
	st.ExitTS = ts
	e.mark(st, EventExit, ts)
}

func (e *Engine) enterUnloading(st *SectionState, ts float64) {
	if !e.inherit(st) && !e.inheritAny(st) {
		st.TorpedoID, st.EngineID = NewIDs(ts, e.loc)
	}
	st.UnloadEntryTS = ts
	e.mark(st, EventUnloadEntry, ts)
}

func (e *Engine) leaveUnloading(st *SectionState, ts float64) {
	st.UnloadExitTS = ts
	e.mark(st, EventUnloadExit, ts)
}
