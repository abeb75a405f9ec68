// Package topology holds the static yard graph: sections, the four directed
// links between them, the points that govern switch sections and the zone
// classes that decide how each section is interpreted. It is loaded once at
// startup and is read-only afterwards.
package topology

import (
	"strings"

	"github.com/banshee-data/yardwatch/internal/config"
)

// Link names one of the four directed neighbors of a section. Left is the
// yard interior side, right is the approach side.
type Link int

const (
	LeftNormal Link = iota
	LeftReverse
	RightNormal
	RightReverse
)

func (l Link) String() string {
	switch l {
	case LeftNormal:
		return "left_normal"
	case LeftReverse:
		return "left_reverse"
	case RightNormal:
		return "right_normal"
	case RightReverse:
		return "right_reverse"
	}
	return "unknown"
}

// Section is a track segment and its links. An empty link means no neighbor.
type Section struct {
	ID           string `yaml:"id" json:"section_id"`
	LeftNormal   string `yaml:"left_normal,omitempty" json:"left_normal"`
	LeftReverse  string `yaml:"left_reverse,omitempty" json:"left_reverse"`
	RightNormal  string `yaml:"right_normal,omitempty" json:"right_normal"`
	RightReverse string `yaml:"right_reverse,omitempty" json:"right_reverse"`
}

// Neighbor returns the section id reached through l, or "".
func (s Section) Neighbor(l Link) string {
	switch l {
	case LeftNormal:
		return s.LeftNormal
	case LeftReverse:
		return s.LeftReverse
	case RightNormal:
		return s.RightNormal
	case RightReverse:
		return s.RightReverse
	}
	return ""
}

func (s Section) links() []Link {
	return []Link{LeftNormal, LeftReverse, RightNormal, RightReverse}
}

// normalize maps the layout "no link" tokens to "".
func (s Section) normalize() Section {
	s.ID = strings.TrimSpace(s.ID)
	s.LeftNormal = NormalizeLink(s.LeftNormal)
	s.LeftReverse = NormalizeLink(s.LeftReverse)
	s.RightNormal = NormalizeLink(s.RightNormal)
	s.RightReverse = NormalizeLink(s.RightReverse)
	return s
}

// NormalizeLink returns "" for the tokens layouts use to mean "no link".
func NormalizeLink(v string) string {
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "", "none", "null", "-":
		return ""
	}
	return v
}

// Point is a switch and the section it governs.
type Point struct {
	ID        string `yaml:"id" json:"point_id"`
	SectionID string `yaml:"section" json:"section_id"`
}

// Source supplies the raw layout. The store and YAML layout files implement it.
type Source interface {
	SectionConnections() ([]Section, error)
	PointBindings() ([]Point, error)
	ZoneAssignments() ([]ZoneAssignment, error)
}

// Registry is the loaded, validated yard graph.
type Registry struct {
	sections       []Section
	index          map[string]int
	points         map[string]Point
	pointBySection map[string]string
	class          map[string]Zone
	members        map[Zone]map[string]bool
	published      []string
}

// Load reads the layout from src once and validates it. Every failure is a
// *config.ConfigurationError.
func Load(src Source) (*Registry, error) {
	sections, err := src.SectionConnections()
	if err != nil {
		return nil, config.Errorf("layout", "reading section connections: %v", err)
	}
	points, err := src.PointBindings()
	if err != nil {
		return nil, config.Errorf("layout", "reading point bindings: %v", err)
	}
	zones, err := src.ZoneAssignments()
	if err != nil {
		return nil, config.Errorf("layout", "reading zone assignments: %v", err)
	}
	if len(zones) == 0 {
		zones = DefaultZones()
	}
	return build(sections, points, zones)
}

func build(sections []Section, points []Point, zones []ZoneAssignment) (*Registry, error) {
	if len(sections) == 0 {
		return nil, &config.ConfigurationError{Field: "layout", Reason: "no sections defined"}
	}

	r := &Registry{
		sections:       make([]Section, 0, len(sections)),
		index:          make(map[string]int, len(sections)),
		points:         make(map[string]Point, len(points)),
		pointBySection: make(map[string]string, len(points)),
		class:          make(map[string]Zone),
		members:        make(map[Zone]map[string]bool),
	}

	for _, s := range sections {
		s = s.normalize()
		if s.ID == "" {
			return nil, config.Errorf("layout", "section with empty id")
		}
		if _, dup := r.index[s.ID]; dup {
			return nil, config.Errorf("layout", "duplicate section %s", s.ID)
		}
		r.index[s.ID] = len(r.sections)
		r.sections = append(r.sections, s)
	}

	for _, s := range r.sections {
		for _, l := range s.links() {
			n := s.Neighbor(l)
			if n == "" {
				continue
			}
			if _, ok := r.index[n]; !ok {
				return nil, config.Errorf("layout", "section %s %s links unknown section %s", s.ID, l, n)
			}
		}
	}

	for _, p := range points {
		p.ID = strings.TrimSpace(p.ID)
		p.SectionID = strings.TrimSpace(p.SectionID)
		if p.ID == "" {
			return nil, config.Errorf("points", "point with empty id")
		}
		if _, ok := r.index[p.SectionID]; !ok {
			return nil, config.Errorf("points", "point %s governs unknown section %q", p.ID, p.SectionID)
		}
		if _, dup := r.points[p.ID]; dup {
			return nil, config.Errorf("points", "duplicate point %s", p.ID)
		}
		if other, dup := r.pointBySection[p.SectionID]; dup {
			return nil, config.Errorf("points", "section %s governed by both %s and %s", p.SectionID, other, p.ID)
		}
		r.points[p.ID] = p
		r.pointBySection[p.SectionID] = p.ID
	}

	if err := r.assignZones(zones); err != nil {
		return nil, err
	}
	return r, nil
}

// Section returns the section with id.
func (r *Registry) Section(id string) (Section, bool) {
	i, ok := r.index[id]
	if !ok {
		return Section{}, false
	}
	return r.sections[i], true
}

// Has reports whether id names a section.
func (r *Registry) Has(id string) bool {
	_, ok := r.index[id]
	return ok
}

// Sections returns all sections in load order.
func (r *Registry) Sections() []Section {
	out := make([]Section, len(r.sections))
	copy(out, r.sections)
	return out
}

// Len is the number of sections.
func (r *Registry) Len() int { return len(r.sections) }

// Index returns the load-order position of id.
func (r *Registry) Index(id string) (int, bool) {
	i, ok := r.index[id]
	return i, ok
}

// Point returns the point with id.
func (r *Registry) Point(id string) (Point, bool) {
	p, ok := r.points[id]
	return p, ok
}

// PointForSection returns the point governing section id.
func (r *Registry) PointForSection(id string) (Point, bool) {
	pid, ok := r.pointBySection[id]
	if !ok {
		return Point{}, false
	}
	return r.points[pid], true
}

// Points returns all points ordered by the section they govern.
func (r *Registry) Points() []Point {
	out := make([]Point, 0, len(r.points))
	for _, s := range r.sections {
		if pid, ok := r.pointBySection[s.ID]; ok {
			out = append(out, r.points[pid])
		}
	}
	return out
}
