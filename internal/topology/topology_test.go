package topology

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/yardwatch/internal/config"
)

const layoutPath = "../../config/yard.layout.yaml"

func loadYard(t *testing.T) *Registry {
	t.Helper()
	l, err := LoadLayout(layoutPath)
	require.NoError(t, err)
	r, err := Load(l)
	require.NoError(t, err)
	return r
}

func TestLoad_StockYard(t *testing.T) {
	r := loadYard(t)

	assert.Equal(t, 22, r.Len())

	s9, ok := r.Section("S9")
	require.True(t, ok)
	want := Section{ID: "S9", LeftNormal: "S11", LeftReverse: "S10", RightNormal: "S7"}
	if diff := cmp.Diff(want, s9); diff != "" {
		t.Errorf("S9 mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "S10", s9.Neighbor(LeftReverse))
	assert.Equal(t, "", s9.Neighbor(RightReverse))

	assert.Equal(t, ZoneEntryExit, r.Class("S1"))
	assert.Equal(t, ZoneMiddle, r.Class("S7"))
	assert.Equal(t, ZoneUnloading, r.Class("S13"))
	assert.Equal(t, ZoneNone, r.Class("S19"))

	assert.True(t, r.In(ZoneHazardOut, "S12"))
	assert.True(t, r.In(ZoneHazardIn, "S13"))
	assert.False(t, r.In(ZoneHazardIn, "S12"))
	assert.Equal(t, []string{"S1", "S2", "S12", "S13", "S14"}, r.Members(ZoneTrace))

	mon := r.Monitored()
	require.Len(t, mon, 14)
	assert.Equal(t, "S1", mon[0])
	assert.Equal(t, "S14", mon[13])

	p, ok := r.PointForSection("S12")
	require.True(t, ok)
	assert.Equal(t, "P4", p.ID)
	_, ok = r.PointForSection("S1")
	assert.False(t, ok)
	assert.Len(t, r.Points(), 9)
}

func TestLoad_DefaultZonesWhenSourceHasNone(t *testing.T) {
	l, err := LoadLayout(layoutPath)
	require.NoError(t, err)
	l.Zones = nil

	r, err := Load(l)
	require.NoError(t, err)

	withZones := loadYard(t)
	if diff := cmp.Diff(withZones.Assignments(), r.Assignments()); diff != "" {
		t.Errorf("default zones differ from stock layout (-layout +default):\n%s", diff)
	}
}

func TestLoad_PublishedFallsBackToAllSections(t *testing.T) {
	l := &Layout{
		Sections: []Section{{ID: "A", LeftNormal: "B"}, {ID: "B", RightNormal: "A"}},
		Zones:    map[Zone][]string{ZoneEntryExit: {"A"}},
	}
	r, err := Load(l)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, r.Monitored())
}

func TestLoad_NoneTokensMeanNoLink(t *testing.T) {
	l, err := ParseLayout([]byte(`
sections:
  - {id: A, left_normal: B, left_reverse: NONE, right_normal: none, right_reverse: ""}
  - {id: B}
zones:
  middle: [A, B]
`))
	require.NoError(t, err)
	r, err := Load(l)
	require.NoError(t, err)

	a, _ := r.Section("A")
	assert.Equal(t, Section{ID: "A", LeftNormal: "B"}, a)
}

func TestLoad_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		layout Layout
		want   string
	}{
		{
			name:   "empty",
			layout: Layout{},
			want:   "no sections",
		},
		{
			name:   "unknown link",
			layout: Layout{Sections: []Section{{ID: "A", LeftNormal: "Z"}}, Zones: map[Zone][]string{ZoneMiddle: {"A"}}},
			want:   "links unknown section Z",
		},
		{
			name:   "duplicate section",
			layout: Layout{Sections: []Section{{ID: "A"}, {ID: "A"}}},
			want:   "duplicate section",
		},
		{
			name: "point on unknown section",
			layout: Layout{
				Sections: []Section{{ID: "A"}},
				Points:   []Point{{ID: "P1", SectionID: "B"}},
				Zones:    map[Zone][]string{ZoneMiddle: {"A"}},
			},
			want: "governs unknown section",
		},
		{
			name: "two points one section",
			layout: Layout{
				Sections: []Section{{ID: "A"}},
				Points:   []Point{{ID: "P1", SectionID: "A"}, {ID: "P2", SectionID: "A"}},
				Zones:    map[Zone][]string{ZoneMiddle: {"A"}},
			},
			want: "governed by both",
		},
		{
			name: "overlapping rule zones",
			layout: Layout{
				Sections: []Section{{ID: "A"}},
				Zones:    map[Zone][]string{ZoneMiddle: {"A"}, ZoneUnloading: {"A"}},
			},
			want: "is in both",
		},
		{
			name: "zone names unknown section",
			layout: Layout{
				Sections: []Section{{ID: "A"}},
				Zones:    map[Zone][]string{ZoneTrace: {"Q"}},
			},
			want: "unknown section",
		},
		{
			name: "unknown zone",
			layout: Layout{
				Sections: []Section{{ID: "A"}},
				Zones:    map[Zone][]string{"sidings": {"A"}},
			},
			want: "unknown zone",
		},
		{
			name:   "defaults need the stock yard",
			layout: Layout{Sections: []Section{{ID: "A"}}},
			want:   "unknown section",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(&tt.layout)
			require.Error(t, err)
			var cfgErr *config.ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "want ConfigurationError, got %T", err)
			assert.True(t, strings.Contains(err.Error(), tt.want), "error %q should mention %q", err, tt.want)
		})
	}
}

type failingSource struct{ Layout }

func (failingSource) PointBindings() ([]Point, error) {
	return nil, errors.New("disk on fire")
}

func TestLoad_SourceErrorIsConfigurationError(t *testing.T) {
	_, err := Load(&failingSource{Layout{Sections: []Section{{ID: "A"}}}})
	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestLinkString(t *testing.T) {
	assert.Equal(t, "left_normal", LeftNormal.String())
	assert.Equal(t, "right_reverse", RightReverse.String())
	assert.Equal(t, "unknown", Link(9).String())
}
