// Package report turns stored transit records into performance figures.
package report

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/yardwatch/internal/db"
)

// ErrNoData is returned when there is nothing to chart.
var ErrNoData = errors.New("no completed transits")

// DwellStats summarises a set of dwell times in seconds.
type DwellStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	P50    float64 `json:"p50"`
	P90    float64 `json:"p90"`
	Max    float64 `json:"max"`
}

// Summary is the yard performance over a set of vehicles.
type Summary struct {
	Vehicles     int        `json:"vehicles"`
	InYard       int        `json:"in_yard"`
	Unloading    int        `json:"unloading"`
	YardDwell    DwellStats `json:"yard_dwell"`
	UnloadDwell  DwellStats `json:"unload_dwell"`
	UnloadedRate float64    `json:"unloaded_rate"`
}

// Describe computes DwellStats over values. The slice is not modified.
func Describe(values []float64) DwellStats {
	if len(values) == 0 {
		return DwellStats{}
	}
	x := append([]float64(nil), values...)
	sort.Float64s(x)

	ds := DwellStats{
		Count: len(x),
		Mean:  stat.Mean(x, nil),
		Min:   x[0],
		P50:   stat.Quantile(0.5, stat.Empirical, x, nil),
		P90:   stat.Quantile(0.9, stat.Empirical, x, nil),
		Max:   x[len(x)-1],
	}
	if len(x) > 1 {
		ds.StdDev = stat.StdDev(x, nil)
	}
	return ds
}

// Dwells splits records into completed yard and unload dwell times.
func Dwells(recs []db.TransitRecord) (yard, unload []float64) {
	for _, r := range recs {
		if d, ok := r.YardDwell(); ok {
			yard = append(yard, d)
		}
		if d, ok := r.UnloadDwell(); ok {
			unload = append(unload, d)
		}
	}
	return yard, unload
}

// Summarize builds the performance summary for recs.
func Summarize(recs []db.TransitRecord) Summary {
	yard, unload := Dwells(recs)
	s := Summary{
		Vehicles:    len(recs),
		YardDwell:   Describe(yard),
		UnloadDwell: Describe(unload),
	}
	for _, r := range recs {
		if r.EntryTS != 0 && r.ExitTS < r.EntryTS {
			s.InYard++
		}
		if r.UnloadEntryTS != 0 && r.UnloadExitTS == 0 {
			s.Unloading++
		}
	}
	if s.Vehicles > 0 {
		s.UnloadedRate = float64(len(unload)) / float64(s.Vehicles)
	}
	return s
}
