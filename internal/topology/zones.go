package topology

import (
	"fmt"
	"sort"

	"github.com/banshee-data/yardwatch/internal/config"
)

// Zone names a classification a section can belong to. The three rule zones
// (entry_exit, middle, unloading) are exclusive; the others are watch-lists.
type Zone string

const (
	ZoneNone      Zone = ""
	ZoneEntryExit Zone = "entry_exit"
	ZoneMiddle    Zone = "middle"
	ZoneUnloading Zone = "unloading"

	// ZoneTrace sections feed the train trace sampler.
	ZoneTrace Zone = "trace"
	// ZoneHazardOut sections are checked for trail-through on outbound moves
	// through their left links, ZoneHazardIn on inbound moves through their
	// right links.
	ZoneHazardOut Zone = "hazard_out"
	ZoneHazardIn  Zone = "hazard_in"
	// ZoneLabelSensor sections take the loaded/empty label from the sensor.
	ZoneLabelSensor Zone = "label_sensor"
	// ZoneLabelFixed sections are never relabelled by propagation.
	ZoneLabelFixed Zone = "label_fixed"
	// ZonePublished lists the sections in the published status, in order.
	ZonePublished Zone = "published"
)

// Zones lists every known zone in a stable order.
var Zones = []Zone{
	ZoneEntryExit, ZoneMiddle, ZoneUnloading,
	ZoneTrace, ZoneHazardOut, ZoneHazardIn,
	ZoneLabelSensor, ZoneLabelFixed, ZonePublished,
}

// IsRule reports whether z is one of the exclusive rule zones.
func (z Zone) IsRule() bool {
	return z == ZoneEntryExit || z == ZoneMiddle || z == ZoneUnloading
}

func (z Zone) valid() bool {
	for _, k := range Zones {
		if k == z {
			return true
		}
	}
	return false
}

// ZoneAssignment places one section in one zone. Seq orders the published list.
type ZoneAssignment struct {
	Zone      Zone   `json:"zone"`
	SectionID string `json:"section_id"`
	Seq       int    `json:"seq"`
}

func seqOf(z Zone, ids ...string) []ZoneAssignment {
	out := make([]ZoneAssignment, len(ids))
	for i, id := range ids {
		out[i] = ZoneAssignment{Zone: z, SectionID: id, Seq: i}
	}
	return out
}

func sectionRange(from, to int) []string {
	ids := make([]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		ids = append(ids, fmt.Sprintf("S%d", i))
	}
	return ids
}

// DefaultZones is the stock classification of the S1..S22 yard, used when the
// layout source carries no zone assignments.
func DefaultZones() []ZoneAssignment {
	var out []ZoneAssignment
	out = append(out, seqOf(ZoneEntryExit, "S1", "S2")...)
	out = append(out, seqOf(ZoneMiddle, sectionRange(3, 11)...)...)
	out = append(out, seqOf(ZoneUnloading, "S12", "S13", "S14")...)
	out = append(out, seqOf(ZoneTrace, "S1", "S2", "S12", "S13", "S14")...)
	out = append(out, seqOf(ZoneHazardOut, "S20", "S18", "S12", "S10", "S9")...)
	out = append(out, seqOf(ZoneHazardIn, "S19", "S15", "S13", "S11")...)
	out = append(out, seqOf(ZoneLabelSensor, "S1", "S2", "S3", "S4", "S20", "S21", "S22")...)
	out = append(out, seqOf(ZoneLabelFixed, "S1", "S2", "S3", "S4")...)
	out = append(out, seqOf(ZonePublished, sectionRange(1, 14)...)...)
	return out
}

func (r *Registry) assignZones(zones []ZoneAssignment) error {
	type pub struct {
		id  string
		seq int
	}
	var published []pub

	for _, a := range zones {
		if !a.Zone.valid() {
			return config.Errorf("zones", "unknown zone %q", a.Zone)
		}
		if _, ok := r.index[a.SectionID]; !ok {
			return config.Errorf("zones", "zone %s names unknown section %q", a.Zone, a.SectionID)
		}
		if a.Zone.IsRule() {
			if prev, ok := r.class[a.SectionID]; ok && prev != a.Zone {
				return config.Errorf("zones", "section %s is in both %s and %s", a.SectionID, prev, a.Zone)
			}
			r.class[a.SectionID] = a.Zone
		}
		m := r.members[a.Zone]
		if m == nil {
			m = make(map[string]bool)
			r.members[a.Zone] = m
		}
		if a.Zone == ZonePublished && !m[a.SectionID] {
			published = append(published, pub{a.SectionID, a.Seq})
		}
		m[a.SectionID] = true
	}

	sort.SliceStable(published, func(i, j int) bool { return published[i].seq < published[j].seq })
	for _, p := range published {
		r.published = append(r.published, p.id)
	}
	if len(r.published) == 0 {
		for _, s := range r.sections {
			r.published = append(r.published, s.ID)
		}
	}
	return nil
}

// Class returns the rule zone of section id, or ZoneNone.
func (r *Registry) Class(id string) Zone {
	return r.class[id]
}

// In reports whether section id belongs to zone z.
func (r *Registry) In(z Zone, id string) bool {
	return r.members[z][id]
}

// Members returns the sections of zone z in load order.
func (r *Registry) Members(z Zone) []string {
	var out []string
	m := r.members[z]
	for _, s := range r.sections {
		if m[s.ID] {
			out = append(out, s.ID)
		}
	}
	return out
}

// Monitored returns the published sections in publication order.
func (r *Registry) Monitored() []string {
	out := make([]string, len(r.published))
	copy(out, r.published)
	return out
}

// Assignments returns the effective zone assignments, suitable for seeding a store.
func (r *Registry) Assignments() []ZoneAssignment {
	var out []ZoneAssignment
	for _, z := range Zones {
		if z == ZonePublished {
			continue
		}
		for i, id := range r.Members(z) {
			out = append(out, ZoneAssignment{Zone: z, SectionID: id, Seq: i})
		}
	}
	for i, id := range r.published {
		out = append(out, ZoneAssignment{Zone: ZonePublished, SectionID: id, Seq: i})
	}
	return out
}
