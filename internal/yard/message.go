package yard

import (
	"bytes"
	"encoding/json"
	"strings"
)

// SectionStatus is the occupancy reported for a section.
type SectionStatus string

const (
	StatusCleared  SectionStatus = "cleared"
	StatusOccupied SectionStatus = "occupied"
	StatusNone     SectionStatus = "none"
)

// Direction is the travel direction reported for a section.
type Direction string

const (
	DirIn   Direction = "in"
	DirOut  Direction = "out"
	DirNone Direction = "none"
)

// PointStatus is the reported switch position.
type PointStatus string

const (
	PointNormal  PointStatus = "normal"
	PointReverse PointStatus = "reverse"
	PointFault   PointStatus = "fault"
	PointUnknown PointStatus = "none"
)

// PointMode is the reported switch control mode.
type PointMode string

const (
	ModeAuto    PointMode = "auto"
	ModeManual  PointMode = "manual"
	ModeUnknown PointMode = "none"
)

// LabelNone is the torpedo status label for "no vehicle".
const LabelNone = "none"

// FirstAxleNone is the first_axle value when no leading axle is reported.
// Otherwise the field carries the id of the section holding the first axle.
const FirstAxleNone = "none"

// SectionReading is one section of a snapshot. The JSON shape is shared by the
// inbound snapshot and the published status.
type SectionReading struct {
	SectionID     string        `json:"section_id"`
	Status        SectionStatus `json:"section_status"`
	EngineAxles   int           `json:"engine_axle_count"`
	TorpedoAxles  int           `json:"torpedo_axle_count"`
	Direction     Direction     `json:"direction"`
	Speed         float64       `json:"speed"`
	TorpedoStatus string        `json:"torpedo_status"`
	FirstAxle     string        `json:"first_axle"`
	ErrorCode     int           `json:"error_code"`
}

func (r SectionReading) occupied() bool { return r.Status == StatusOccupied }

// Snapshot is a validated full-yard sensor message.
type Snapshot struct {
	TS       float64          `json:"ts"`
	Sections []SectionReading `json:"sections"`
}

// PointUpdate is a validated point message. Either id may be empty, not both.
type PointUpdate struct {
	PointID   string      `json:"point_id,omitempty"`
	SectionID string      `json:"section_id,omitempty"`
	Status    PointStatus `json:"point_status"`
	Mode      PointMode   `json:"point_mode"`
}

// TorpedoAssignment sets the torpedo id of a section by hand.
type TorpedoAssignment struct {
	SectionID string `json:"section_id"`
	TorpedoID string `json:"torpedo_id"`
}

// DetectionPoints is a raw detection-point report from one DPU.
type DetectionPoints struct {
	TS     float64          `json:"ts"`
	DPUID  string           `json:"dpu_id"`
	Points []DetectionPoint `json:"dps"`
}

// DetectionPoint is one axle counter head.
type DetectionPoint struct {
	DPID      string  `json:"dp_id"`
	AxleCount int     `json:"axle_count"`
	AxleType  string  `json:"axle_type"`
	Direction string  `json:"direction"`
	Speed     float64 `json:"speed"`
}

// ident accepts a JSON string or number.
type ident string

func (i *ident) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*i = ident(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*i = ident(n.String())
	return nil
}

type wireReading struct {
	SectionID     *string  `json:"section_id"`
	Status        *string  `json:"section_status"`
	EngineAxles   *int     `json:"engine_axle_count"`
	TorpedoAxles  *int     `json:"torpedo_axle_count"`
	Direction     *string  `json:"direction"`
	Speed         *float64 `json:"speed"`
	TorpedoStatus *string  `json:"torpedo_status"`
	FirstAxle     *ident   `json:"first_axle"`
	ErrorCode     *int     `json:"error_code"`
}

type wireSnapshot struct {
	TS       *float64      `json:"ts"`
	Sections []wireReading `json:"sections"`
}

// ParseSnapshot decodes and validates a snapshot. Any error is a
// *MalformedMessageError and the snapshot must be dropped whole.
func ParseSnapshot(data []byte) (Snapshot, error) {
	var w wireSnapshot
	if err := json.Unmarshal(data, &w); err != nil {
		return Snapshot{}, malformed("", "%v", err)
	}
	if w.TS == nil {
		return Snapshot{}, malformed("ts", "missing")
	}
	if *w.TS < 0 {
		return Snapshot{}, malformed("ts", "negative timestamp %v", *w.TS)
	}
	if w.Sections == nil {
		return Snapshot{}, malformed("sections", "missing")
	}

	s := Snapshot{TS: *w.TS, Sections: make([]SectionReading, 0, len(w.Sections))}
	seen := make(map[string]bool, len(w.Sections))
	for i, wr := range w.Sections {
		r, err := wr.validate(i)
		if err != nil {
			return Snapshot{}, err
		}
		if seen[r.SectionID] {
			return Snapshot{}, malformed("sections", "section %s reported twice", r.SectionID)
		}
		seen[r.SectionID] = true
		s.Sections = append(s.Sections, r)
	}
	return s, nil
}

func (w wireReading) validate(i int) (SectionReading, error) {
	field := func(name string) string {
		if w.SectionID != nil {
			return "sections[" + *w.SectionID + "]." + name
		}
		return "sections." + name
	}

	if w.SectionID == nil || strings.TrimSpace(*w.SectionID) == "" {
		return SectionReading{}, malformed("sections", "entry %d has no section_id", i)
	}
	required := []struct {
		name    string
		missing bool
	}{
		{"section_status", w.Status == nil},
		{"engine_axle_count", w.EngineAxles == nil},
		{"torpedo_axle_count", w.TorpedoAxles == nil},
		{"direction", w.Direction == nil},
		{"speed", w.Speed == nil},
		{"torpedo_status", w.TorpedoStatus == nil},
	}
	for _, r := range required {
		if r.missing {
			return SectionReading{}, malformed(field(r.name), "missing")
		}
	}

	r := SectionReading{
		SectionID:     strings.TrimSpace(*w.SectionID),
		Status:        SectionStatus(*w.Status),
		EngineAxles:   *w.EngineAxles,
		TorpedoAxles:  *w.TorpedoAxles,
		Direction:     Direction(*w.Direction),
		Speed:         *w.Speed,
		TorpedoStatus: *w.TorpedoStatus,
	}
	if w.FirstAxle != nil {
		r.FirstAxle = strings.TrimSpace(string(*w.FirstAxle))
	}
	if r.FirstAxle == "" {
		r.FirstAxle = FirstAxleNone
	}
	if w.ErrorCode != nil {
		r.ErrorCode = *w.ErrorCode
	}
	if r.TorpedoStatus == "" {
		r.TorpedoStatus = LabelNone
	}

	switch r.Status {
	case StatusCleared, StatusOccupied, StatusNone:
	default:
		return SectionReading{}, malformed(field("section_status"), "unknown value %q", r.Status)
	}
	switch r.Direction {
	case DirIn, DirOut, DirNone:
	default:
		return SectionReading{}, malformed(field("direction"), "unknown value %q", r.Direction)
	}
	if r.EngineAxles < 0 {
		return SectionReading{}, malformed(field("engine_axle_count"), "negative")
	}
	if r.TorpedoAxles < 0 {
		return SectionReading{}, malformed(field("torpedo_axle_count"), "negative")
	}
	return r, nil
}

type wirePoint struct {
	PointID   *ident  `json:"point_id"`
	SectionID *string `json:"section_id"`
	Status    *string `json:"point_status"`
	Mode      *string `json:"point_mode"`
}

type wirePoints struct {
	TS     *float64    `json:"ts"`
	Points []wirePoint `json:"points"`
}

// ParsePoints decodes a single point object or a {"points": [...]} batch.
func ParsePoints(data []byte) ([]PointUpdate, error) {
	var batch wirePoints
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, malformed("", "%v", err)
	}
	wps := batch.Points
	if wps == nil {
		var single wirePoint
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, malformed("", "%v", err)
		}
		wps = []wirePoint{single}
	}

	out := make([]PointUpdate, 0, len(wps))
	for _, wp := range wps {
		u, err := wp.validate()
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func (w wirePoint) validate() (PointUpdate, error) {
	var u PointUpdate
	if w.PointID != nil {
		u.PointID = strings.TrimSpace(string(*w.PointID))
	}
	if w.SectionID != nil {
		u.SectionID = strings.TrimSpace(*w.SectionID)
	}
	if u.PointID == "" && u.SectionID == "" {
		return PointUpdate{}, malformed("point_id", "missing point_id and section_id")
	}
	if w.Status == nil {
		return PointUpdate{}, malformed("point_status", "missing")
	}
	if w.Mode == nil {
		return PointUpdate{}, malformed("point_mode", "missing")
	}
	u.Status = PointStatus(strings.ToLower(*w.Status))
	u.Mode = PointMode(strings.ToLower(*w.Mode))
	switch u.Status {
	case PointNormal, PointReverse, PointFault:
	default:
		return PointUpdate{}, malformed("point_status", "unknown value %q", *w.Status)
	}
	switch u.Mode {
	case ModeAuto, ModeManual:
	default:
		return PointUpdate{}, malformed("point_mode", "unknown value %q", *w.Mode)
	}
	return u, nil
}

// ParseClear decodes a trail-through clear command.
func ParseClear(data []byte) (string, error) {
	var w struct {
		SectionID *string `json:"section_id"`
		Clear     *bool   `json:"clear_trail_through"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return "", malformed("", "%v", err)
	}
	if w.SectionID == nil || strings.TrimSpace(*w.SectionID) == "" {
		return "", malformed("section_id", "missing")
	}
	if w.Clear != nil && !*w.Clear {
		return "", malformed("clear_trail_through", "must be true")
	}
	return strings.TrimSpace(*w.SectionID), nil
}

// ParseTorpedoAssignment decodes a torpedo_info message.
func ParseTorpedoAssignment(data []byte) (TorpedoAssignment, error) {
	var w struct {
		SectionID *string `json:"section_id"`
		TorpedoID *ident  `json:"torpedo_id"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return TorpedoAssignment{}, malformed("", "%v", err)
	}
	if w.SectionID == nil || strings.TrimSpace(*w.SectionID) == "" {
		return TorpedoAssignment{}, malformed("section_id", "missing")
	}
	if w.TorpedoID == nil || strings.TrimSpace(string(*w.TorpedoID)) == "" {
		return TorpedoAssignment{}, malformed("torpedo_id", "missing")
	}
	return TorpedoAssignment{
		SectionID: strings.TrimSpace(*w.SectionID),
		TorpedoID: strings.TrimSpace(string(*w.TorpedoID)),
	}, nil
}

// ParseDetectionPoints decodes a DPU report.
func ParseDetectionPoints(data []byte) (DetectionPoints, error) {
	var w struct {
		TS    *float64 `json:"ts"`
		DPUID *ident   `json:"dpu_id"`
		DPs   []struct {
			DPID      *ident   `json:"dp_id"`
			AxleCount *int     `json:"axle_count"`
			AxleType  *ident   `json:"axle_type"`
			Direction *string  `json:"direction"`
			Speed     *float64 `json:"speed"`
		} `json:"dps"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return DetectionPoints{}, malformed("", "%v", err)
	}
	if w.TS == nil {
		return DetectionPoints{}, malformed("ts", "missing")
	}
	if w.DPUID == nil {
		return DetectionPoints{}, malformed("dpu_id", "missing")
	}
	if w.DPs == nil {
		return DetectionPoints{}, malformed("dps", "missing")
	}

	out := DetectionPoints{TS: *w.TS, DPUID: string(*w.DPUID)}
	for i, dp := range w.DPs {
		if dp.DPID == nil || dp.AxleCount == nil {
			return DetectionPoints{}, malformed("dps", "entry %d needs dp_id and axle_count", i)
		}
		p := DetectionPoint{DPID: string(*dp.DPID), AxleCount: *dp.AxleCount}
		if dp.AxleType != nil {
			p.AxleType = string(*dp.AxleType)
		}
		if dp.Direction != nil {
			p.Direction = *dp.Direction
		}
		if dp.Speed != nil {
			p.Speed = *dp.Speed
		}
		out.Points = append(out.Points, p)
	}
	return out, nil
}
