package yard

import (
	"strconv"

	"github.com/banshee-data/yardwatch/internal/topology"
)

type traceCounts struct {
	in, out int
}

// traceSampler records coarse entry/exit samples on the trace watch-list.
// Samples are numbered by one ascending counter shared by all sections.
type traceSampler struct {
	edges   edgeRule
	counter int
	counts  map[string]*traceCounts
}

func newTraceSampler(topo *topology.Registry) *traceSampler {
	t := &traceSampler{edges: traceEdges, counts: make(map[string]*traceCounts)}
	for _, id := range topo.Members(topology.ZoneTrace) {
		t.counts[id] = &traceCounts{}
	}
	return t
}

func (t *traceSampler) reset(id string) {
	if c, ok := t.counts[id]; ok {
		*c = traceCounts{}
	}
}

func (t *traceSampler) resetAll() {
	for _, c := range t.counts {
		*c = traceCounts{}
	}
}

// sampleTrace evaluates every trace section present in the current tick.
func (e *Engine) sampleTrace(ts float64) []SectionEvent {
	var samples []SectionEvent
	for _, id := range e.traceOrder {
		r, ok := e.cur[id]
		if !ok {
			continue
		}
		c := e.trace.counts[id]
		st := e.table.ref(id)

		if e.trace.edges.entered(c.in, r.TorpedoAxles, r.Direction) {
			e.trace.counter++
			c.out = 0
			samples = append(samples, e.traceSample(st, EventEntry, ts))
		}
		if e.trace.edges.exited(&c.out, r.TorpedoAxles, r.Direction) {
			samples = append(samples, e.traceSample(st, EventExit, ts))
		}
		c.in = r.TorpedoAxles
	}
	return samples
}

func (e *Engine) traceSample(st *SectionState, kind EventKind, ts float64) SectionEvent {
	ev := eventFrom(st, kind, ts)
	n := strconv.Itoa(e.trace.counter)
	ev.TorpedoID, ev.EngineID = n, n
	e.persisted("train trace", e.rec.RecordTrainTrace(ev))
	e.logf("train trace %s at %s #%s", kind, st.ID, n)
	return ev
}

// TraceCounter returns the current train trace sample number.
func (e *Engine) TraceCounter() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.trace.counter
}
