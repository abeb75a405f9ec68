package topology

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Layout is the YAML description of a yard, used to seed the store and in tests.
//
//	sections:
//	  - {id: S1, left_normal: S3}
//	points:
//	  - {id: P1, section: S9}
//	zones:
//	  entry_exit: [S1, S2]
//	dpus:
//	  S1: DPU1
type Layout struct {
	Sections []Section           `yaml:"sections"`
	Points   []Point             `yaml:"points"`
	Zones    map[Zone][]string   `yaml:"zones"`
	DPUs     map[string]string   `yaml:"dpus"`
	Users    map[string][]string `yaml:"users"`
}

// LoadLayout parses a layout file.
func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}
	return ParseLayout(data)
}

// ParseLayout parses layout YAML.
func ParseLayout(data []byte) (*Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	return &l, nil
}

// SectionConnections implements Source.
func (l *Layout) SectionConnections() ([]Section, error) {
	return l.Sections, nil
}

// PointBindings implements Source.
func (l *Layout) PointBindings() ([]Point, error) {
	return l.Points, nil
}

// ZoneAssignments implements Source. Zones are flattened in the order of
// the Zones list; unknown zone names sort last and fail validation in Load.
func (l *Layout) ZoneAssignments() ([]ZoneAssignment, error) {
	names := make([]Zone, 0, len(l.Zones))
	for z := range l.Zones {
		names = append(names, z)
	}
	rank := func(z Zone) int {
		for i, k := range Zones {
			if k == z {
				return i
			}
		}
		return len(Zones)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, rj := rank(names[i]), rank(names[j])
		if ri != rj {
			return ri < rj
		}
		return names[i] < names[j]
	})

	var out []ZoneAssignment
	for _, z := range names {
		out = append(out, seqOf(z, l.Zones[z]...)...)
	}
	return out, nil
}
