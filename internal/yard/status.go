package yard

import (
	"github.com/banshee-data/yardwatch/internal/timeutil"
	"github.com/banshee-data/yardwatch/internal/topology"
)

// Status is the published yard picture: the monitored sections with their
// loaded/empty labels.
type Status struct {
	TS       float64          `json:"ts"`
	Sections []SectionReading `json:"sections"`
}

// Publisher receives the status once per tick.
type Publisher interface {
	PublishStatus(s Status)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(s Status)

func (f PublisherFunc) PublishStatus(s Status) { f(s) }

// minOutboundLabelAxles is the torpedo axle count a section needs before it
// takes a label from an outbound neighbor.
const minOutboundLabelAxles = 6

// propagateLabels sets the torpedo status label of every section reported
// this tick.
func (e *Engine) propagateLabels() {
	for i := range e.table.states {
		st := &e.table.states[i]
		if _, ok := e.cur[st.ID]; !ok {
			continue
		}
		sensor := e.topo.In(topology.ZoneLabelSensor, st.ID)
		if sensor {
			st.TorpedoStatus = st.SensorLabel
		}
		if !sensor && st.Status != StatusCleared && st.Direction == DirIn {
			e.inheritLabel(st, inboundLinks, 0)
		}
		if e.topo.In(topology.ZoneLabelFixed, st.ID) {
			continue
		}
		if st.Status != StatusCleared && st.Direction == DirOut {
			e.inheritLabel(st, outboundLinks, minOutboundLabelAxles)
		}
		if st.Status == StatusCleared {
			st.TorpedoStatus = LabelNone
		}
	}
}

// inheritLabel takes the label of an occupied upstream neighbor whose axle
// count moved since the previous tick. Later links win.
func (e *Engine) inheritLabel(st *SectionState, links []topology.Link, minAxles int) {
	if st.TorpedoAxles < minAxles {
		return
	}
	for _, l := range links {
		n := e.table.ref(st.Neighbor(l))
		if n == nil || n.TorpedoStatus == LabelNone || n.TorpedoStatus == "" {
			continue
		}
		cur, ok := e.cur[n.ID]
		if !ok || !cur.occupied() {
			continue
		}
		prev, ok := e.prev[n.ID]
		if !ok || prev.TorpedoAxles == cur.TorpedoAxles {
			continue
		}
		st.TorpedoStatus = n.TorpedoStatus
	}
}

func (e *Engine) buildStatus() Status {
	s := Status{
		TS:       timeutil.Epoch(e.clock.Now()),
		Sections: make([]SectionReading, 0, len(e.monitored)),
	}
	for _, id := range e.monitored {
		if st := e.table.ref(id); st != nil {
			s.Sections = append(s.Sections, st.reading())
		}
	}
	return s
}

// LastStatus returns the most recently published status.
func (e *Engine) LastStatus() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.last
	out.Sections = append([]SectionReading(nil), e.last.Sections...)
	return out
}
