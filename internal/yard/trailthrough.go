package yard

import (
	"github.com/google/uuid"

	"github.com/banshee-data/yardwatch/internal/monitoring"
	"github.com/banshee-data/yardwatch/internal/timeutil"
	"github.com/banshee-data/yardwatch/internal/topology"
)

// hazardWatch describes one trail-through watch-list: the travel direction
// that is checked and the two legs of the switch on the approach side.
type hazardWatch struct {
	zone    topology.Zone
	dir     Direction
	normal  topology.Link
	reverse topology.Link
}

var hazardWatches = []hazardWatch{
	{zone: topology.ZoneHazardOut, dir: DirOut, normal: topology.LeftNormal, reverse: topology.LeftReverse},
	{zone: topology.ZoneHazardIn, dir: DirIn, normal: topology.RightNormal, reverse: topology.RightReverse},
}

// approaching reports whether section id is occupied, moving in dir and has
// a torpedo axle count different from the previous snapshot.
func (e *Engine) approaching(id string, dir Direction) bool {
	if id == "" {
		return false
	}
	r, ok := e.cur[id]
	if !ok || !r.occupied() || r.Direction != dir {
		return false
	}
	p, ok := e.prev[id]
	return ok && p.TorpedoAxles != r.TorpedoAxles
}

// routeConflicts reports whether a vehicle on the leg that needs the point in
// the other position is running through it.
func routeConflicts(st *SectionState, wrong PointStatus) bool {
	if st.PointStatus == PointFault {
		return true
	}
	return st.PointStatus == wrong && st.PointMode != ModeManual
}

func (e *Engine) hazard(st *SectionState, w hazardWatch) bool {
	if e.approaching(st.Neighbor(w.normal), w.dir) && routeConflicts(st, PointReverse) {
		return true
	}
	if e.approaching(st.Neighbor(w.reverse), w.dir) && routeConflicts(st, PointNormal) {
		return true
	}
	return false
}

// detectTrailThrough checks every watched section and returns the sections
// with a hazard this tick and the subset that raised a new alert.
func (e *Engine) detectTrailThrough(ts float64) (hazards, raised []string) {
	if len(e.prev) == 0 {
		return nil, nil
	}
	for i := range e.table.states {
		st := &e.table.states[i]
		r, ok := e.cur[st.ID]
		if !ok || !r.occupied() {
			continue
		}
		for _, w := range hazardWatches {
			if r.Direction != w.dir || !e.topo.In(w.zone, st.ID) {
				continue
			}
			if !e.hazard(st, w) {
				continue
			}
			hazards = append(hazards, st.ID)
			if e.raiseTrailThrough(st, ts) {
				raised = append(raised, st.ID)
			}
			break
		}
	}
	return hazards, raised
}

// raiseTrailThrough moves st to alerted if it is idle. Every call appends
// an audit entry.
func (e *Engine) raiseTrailThrough(st *SectionState, ts float64) bool {
	audit := TrailThroughAudit{
		ID:        uuid.NewString(),
		TS:        ts,
		SectionID: st.ID,
		Action:    AuditSuppressed,
	}
	raised := false
	if !st.Alerted {
		st.Alerted = true
		st.AlertTS = ts
		audit.Action = AuditDetected
		raised = true
		e.persisted("trail-through alert", e.rec.RecordTrailThrough(TrailThroughAlert{TS: ts, SectionID: st.ID}))
		monitoring.WithSection(st.ID).Warnf("trail-through detected: point %s %s/%s", st.PointID, st.PointStatus, st.PointMode)
	}
	e.persisted("trail-through audit", e.rec.RecordTrailThroughAudit(audit))
	return raised
}

// ClearTrailThrough acknowledges the open alert of sectionID. It reports
// false when the section had no open alert.
func (e *Engine) ClearTrailThrough(sectionID string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.table.ref(sectionID)
	if st == nil {
		return false, notFound("section", sectionID)
	}
	if !st.Alerted {
		e.logf("trail-through clear for %s ignored, no open alert", sectionID)
		return false, nil
	}

	e.confirmAlert(st, timeutil.Epoch(e.clock.Now()))
	return true, nil
}

// confirmAlert moves the open alert of st back to idle, confirming the
// stored alert and appending a cleared audit entry.
func (e *Engine) confirmAlert(st *SectionState, now float64) {
	st.Alerted = false
	st.AlertTS = 0
	e.persisted("trail-through confirm", e.rec.ConfirmTrailThrough(st.ID, now))
	e.persisted("trail-through audit", e.rec.RecordTrailThroughAudit(TrailThroughAudit{
		ID:        uuid.NewString(),
		TS:        now,
		SectionID: st.ID,
		Action:    AuditCleared,
		Confirmed: true,
	}))
	e.systemEvent(now, "trail_through_cleared", "trail-through cleared on "+st.ID)
}

// Alerts returns the sections with an open trail-through alert.
func (e *Engine) Alerts() []SectionState {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []SectionState
	for _, st := range e.table.states {
		if st.Alerted {
			out = append(out, st)
		}
	}
	return out
}
