package yard

import "github.com/banshee-data/yardwatch/internal/topology"

// SectionState is the engine's view of one section. Links, the point binding
// and the last point report survive Reset; everything else is transient.
type SectionState struct {
	topology.Section

	Zone topology.Zone `json:"zone"`

	// Latest reading. Reported is false until the first snapshot that
	// includes the section.
	Reported      bool          `json:"reported"`
	Status        SectionStatus `json:"section_status"`
	Direction     Direction     `json:"direction"`
	EngineAxles   int           `json:"engine_axle_count"`
	TorpedoAxles  int           `json:"torpedo_axle_count"`
	Speed         float64       `json:"speed"`
	SensorLabel   string        `json:"sensor_torpedo_status"`
	FirstAxle     string        `json:"first_axle"`
	ErrorCode     int           `json:"error_code"`
	TorpedoStatus string        `json:"torpedo_status"`

	// Edge bookkeeping.
	InAxles  int `json:"in_torpedo_axle_count"`
	OutAxles int `json:"out_torpedo_axle_count"`

	// Identity and transit timestamps (epoch seconds, 0 = unset).
	TorpedoID     string  `json:"torpedo_id"`
	EngineID      string  `json:"engine_id"`
	EntryTS       float64 `json:"entry_ts"`
	ExitTS        float64 `json:"exit_ts"`
	UnloadEntryTS float64 `json:"unload_entry_ts"`
	UnloadExitTS  float64 `json:"unload_exit_ts"`

	// Governing point, if any.
	PointID     string      `json:"point_id,omitempty"`
	PointStatus PointStatus `json:"point_status"`
	PointMode   PointMode   `json:"point_mode"`

	// Trail-through state.
	Alerted bool    `json:"trail_through_alerted"`
	AlertTS float64 `json:"trail_through_ts"`
}

func (s *SectionState) apply(r SectionReading) {
	s.Reported = true
	s.Status = r.Status
	s.Direction = r.Direction
	s.EngineAxles = r.EngineAxles
	s.TorpedoAxles = r.TorpedoAxles
	s.Speed = r.Speed
	s.SensorLabel = r.TorpedoStatus
	s.FirstAxle = r.FirstAxle
	if s.FirstAxle == "" {
		s.FirstAxle = FirstAxleNone
	}
	s.ErrorCode = r.ErrorCode
}

func (s *SectionState) occupied() bool { return s.Status == StatusOccupied }

func (s *SectionState) reading() SectionReading {
	return SectionReading{
		SectionID:     s.ID,
		Status:        s.Status,
		EngineAxles:   s.EngineAxles,
		TorpedoAxles:  s.TorpedoAxles,
		Direction:     s.Direction,
		Speed:         s.Speed,
		TorpedoStatus: s.TorpedoStatus,
		FirstAxle:     s.FirstAxle,
		ErrorCode:     s.ErrorCode,
	}
}

func (s *SectionState) reset() {
	*s = SectionState{
		Section:       s.Section,
		Zone:          s.Zone,
		PointID:       s.PointID,
		PointStatus:   s.PointStatus,
		PointMode:     s.PointMode,
		Status:        StatusNone,
		Direction:     DirNone,
		SensorLabel:   LabelNone,
		FirstAxle:     FirstAxleNone,
		TorpedoStatus: LabelNone,
	}
}

// Table holds one SectionState per topology section, indexed by id.
// It is not safe for concurrent use; the Engine serializes access.
type Table struct {
	states []SectionState
	index  map[string]int
}

// NewTable creates zeroed state for every section of topo.
func NewTable(topo *topology.Registry) *Table {
	sections := topo.Sections()
	t := &Table{
		states: make([]SectionState, len(sections)),
		index:  make(map[string]int, len(sections)),
	}
	for i, s := range sections {
		st := &t.states[i]
		st.Section = s
		st.Zone = topo.Class(s.ID)
		st.PointStatus = PointUnknown
		st.PointMode = ModeUnknown
		if p, ok := topo.PointForSection(s.ID); ok {
			st.PointID = p.ID
		}
		st.reset()
		t.index[s.ID] = i
	}
	return t
}

func (t *Table) ref(id string) *SectionState {
	i, ok := t.index[id]
	if !ok {
		return nil
	}
	return &t.states[i]
}

// Get returns a copy of the state of id.
func (t *Table) Get(id string) (SectionState, bool) {
	s := t.ref(id)
	if s == nil {
		return SectionState{}, false
	}
	return *s, true
}

// All returns copies of every state in topology order.
func (t *Table) All() []SectionState {
	out := make([]SectionState, len(t.states))
	copy(out, t.states)
	return out
}

// ResetAll zeroes the transient fields of every section.
func (t *Table) ResetAll() {
	for i := range t.states {
		t.states[i].reset()
	}
}
