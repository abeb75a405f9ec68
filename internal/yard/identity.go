package yard

import (
	"time"

	"github.com/banshee-data/yardwatch/internal/timeutil"
	"github.com/banshee-data/yardwatch/internal/topology"
)

const idLayout = "02012006150405" // ddmmyyyyHHMMSS

// NewIDs derives the torpedo and engine ids for an entry at ts, formatted in loc.
func NewIDs(ts float64, loc *time.Location) (torpedoID, engineID string) {
	if loc == nil {
		loc = time.Local
	}
	stamp := timeutil.Unix(ts).In(loc).Format(idLayout)
	return "T" + stamp, "E" + stamp
}

var (
	outboundLinks = []topology.Link{topology.LeftNormal, topology.LeftReverse}
	inboundLinks  = []topology.Link{topology.RightNormal, topology.RightReverse}
	allLinks      = []topology.Link{topology.LeftNormal, topology.RightNormal, topology.LeftReverse, topology.RightReverse}
)

// upstream returns the links a vehicle moving in dir arrives through.
func upstream(dir Direction) []topology.Link {
	switch dir {
	case DirOut:
		return outboundLinks
	case DirIn:
		return inboundLinks
	}
	return nil
}

// inherit copies ids from the first upstream neighbor that is occupied,
// moving the same way and holding ids. Only occupied sections inherit.
func (e *Engine) inherit(st *SectionState) bool {
	if !st.occupied() {
		return false
	}
	for _, l := range upstream(st.Direction) {
		n := e.table.ref(st.Neighbor(l))
		if n == nil || n.TorpedoID == "" {
			continue
		}
		r, ok := e.cur[n.ID]
		if !ok || !r.occupied() || r.Direction != st.Direction {
			continue
		}
		if st.TorpedoID != n.TorpedoID {
			e.logf("section %s inherits torpedo %s from %s via %s", st.ID, n.TorpedoID, n.ID, l)
		}
		st.TorpedoID, st.EngineID = n.TorpedoID, n.EngineID
		return true
	}
	return false
}

// inheritAny copies ids from the first linked neighbor that reported this
// tick and holds ids, regardless of direction.
func (e *Engine) inheritAny(st *SectionState) bool {
	for _, l := range allLinks {
		n := e.table.ref(st.Neighbor(l))
		if n == nil || n.TorpedoID == "" {
			continue
		}
		r, ok := e.cur[n.ID]
		if !ok || r.Status == StatusNone {
			continue
		}
		st.TorpedoID, st.EngineID = n.TorpedoID, n.EngineID
		return true
	}
	return false
}
