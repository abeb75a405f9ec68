package db

import (
	"database/sql"

	"github.com/banshee-data/yardwatch/internal/yard"
)

const defaultLimit = 100

func limitOr(n int) int {
	if n <= 0 {
		return defaultLimit
	}
	return n
}

// TransitRecord is one vehicle's yard and unloading timings. Unset times are 0.
type TransitRecord struct {
	TorpedoID     string  `json:"torpedo_id"`
	EngineID      string  `json:"engine_id"`
	EntryTS       float64 `json:"entry_ts"`
	EntrySection  string  `json:"entry_section"`
	ExitTS        float64 `json:"exit_ts"`
	ExitSection   string  `json:"exit_section"`
	UnloadEntryTS float64 `json:"unload_entry_ts"`
	UnloadExitTS  float64 `json:"unload_exit_ts"`
	UnloadSection string  `json:"unload_section"`
}

// YardDwell is the time between yard entry and exit, in seconds.
func (r TransitRecord) YardDwell() (float64, bool) {
	if r.EntryTS == 0 || r.ExitTS == 0 || r.ExitTS < r.EntryTS {
		return 0, false
	}
	return r.ExitTS - r.EntryTS, true
}

// UnloadDwell is the time spent in the unloading zone, in seconds.
func (r TransitRecord) UnloadDwell() (float64, bool) {
	if r.UnloadEntryTS == 0 || r.UnloadExitTS == 0 || r.UnloadExitTS < r.UnloadEntryTS {
		return 0, false
	}
	return r.UnloadExitTS - r.UnloadEntryTS, true
}

// TransitRecords returns the most recent vehicles, newest first.
func (db *DB) TransitRecords(limit int) ([]TransitRecord, error) {
	rows, err := db.Query(`
		SELECT torpedo_id, engine_id, entry_ts, entry_section, exit_ts, exit_section,
			unload_entry_ts, unload_exit_ts, unload_section
		FROM transit_summary
		ORDER BY MAX(COALESCE(entry_ts, 0), COALESCE(unload_entry_ts, 0)) DESC, torpedo_id
		LIMIT ?`, limitOr(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TransitRecord
	for rows.Next() {
		var (
			r                            TransitRecord
			entry, exit, uEntry, uExit   sql.NullFloat64
			entrySec, exitSec, unloadSec sql.NullString
		)
		if err := rows.Scan(&r.TorpedoID, &r.EngineID, &entry, &entrySec, &exit, &exitSec,
			&uEntry, &uExit, &unloadSec); err != nil {
			return nil, err
		}
		r.EntryTS, r.ExitTS = entry.Float64, exit.Float64
		r.UnloadEntryTS, r.UnloadExitTS = uEntry.Float64, uExit.Float64
		r.EntrySection, r.ExitSection, r.UnloadSection = entrySec.String, exitSec.String, unloadSec.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// AlertRecord is the stored trail-through state of a section.
type AlertRecord struct {
	SectionID string  `json:"section_id"`
	TS        float64 `json:"ts"`
	Confirmed bool    `json:"confirm_status"`
	ConfirmTS float64 `json:"confirm_ts,omitempty"`
}

// TrailThroughAlerts lists stored alerts, newest first. openOnly skips the
// confirmed ones.
func (db *DB) TrailThroughAlerts(openOnly bool) ([]AlertRecord, error) {
	q := `SELECT section_id, ts, confirm_status, confirm_ts FROM trail_through`
	if openOnly {
		q += ` WHERE confirm_status = 0`
	}
	q += ` ORDER BY ts DESC, section_id`

	rows, err := db.Query(q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AlertRecord
	for rows.Next() {
		var (
			a         AlertRecord
			confirmTS sql.NullFloat64
		)
		if err := rows.Scan(&a.SectionID, &a.TS, &a.Confirmed, &confirmTS); err != nil {
			return nil, err
		}
		a.ConfirmTS = confirmTS.Float64
		out = append(out, a)
	}
	return out, rows.Err()
}

// TrailThroughAudit returns the audit trail, newest first. An empty
// sectionID returns every section.
func (db *DB) TrailThroughAudit(sectionID string, limit int) ([]yard.TrailThroughAudit, error) {
	rows, err := db.Query(`
		SELECT id, ts, section_id, action, confirm_status
		FROM trail_through_playback
		WHERE ? = '' OR section_id = ?
		ORDER BY ts DESC, rowid DESC
		LIMIT ?`, sectionID, sectionID, limitOr(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []yard.TrailThroughAudit
	for rows.Next() {
		var (
			a      yard.TrailThroughAudit
			action string
		)
		if err := rows.Scan(&a.ID, &a.TS, &a.SectionID, &action, &a.Confirmed); err != nil {
			return nil, err
		}
		a.Action = yard.AuditAction(action)
		out = append(out, a)
	}
	return out, rows.Err()
}

// TraceRecord is one stored train trace sample.
type TraceRecord struct {
	TS           float64        `json:"ts"`
	SectionID    string         `json:"section_id"`
	Kind         yard.EventKind `json:"kind"`
	Sample       string         `json:"sample"`
	TorpedoAxles int            `json:"torpedo_axle_count"`
	Direction    yard.Direction `json:"direction"`
	Speed        float64        `json:"speed"`
}

// TrainTraces returns the latest trace samples, newest first.
func (db *DB) TrainTraces(limit int) ([]TraceRecord, error) {
	rows, err := db.Query(`
		SELECT ts, section_id, kind, sample, torpedo_axle_count, direction, speed
		FROM train_trace
		ORDER BY id DESC
		LIMIT ?`, limitOr(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TraceRecord
	for rows.Next() {
		var (
			r         TraceRecord
			kind, dir string
		)
		if err := rows.Scan(&r.TS, &r.SectionID, &kind, &r.Sample, &r.TorpedoAxles, &dir, &r.Speed); err != nil {
			return nil, err
		}
		r.Kind, r.Direction = yard.EventKind(kind), yard.Direction(dir)
		out = append(out, r)
	}
	return out, rows.Err()
}

// SectionEvents returns fired edges, newest first. An empty sectionID
// returns every section.
func (db *DB) SectionEvents(sectionID string, limit int) ([]yard.SectionEvent, error) {
	rows, err := db.Query(`
		SELECT ts, section_id, kind, section_status, engine_axle_count, torpedo_axle_count,
			direction, speed, torpedo_status, torpedo_id, engine_id
		FROM section_events
		WHERE ? = '' OR section_id = ?
		ORDER BY id DESC
		LIMIT ?`, sectionID, sectionID, limitOr(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []yard.SectionEvent
	for rows.Next() {
		var (
			ev                yard.SectionEvent
			kind, status, dir string
		)
		if err := rows.Scan(&ev.TS, &ev.SectionID, &kind, &status, &ev.EngineAxles, &ev.TorpedoAxles,
			&dir, &ev.Speed, &ev.TorpedoStatus, &ev.TorpedoID, &ev.EngineID); err != nil {
			return nil, err
		}
		ev.Kind, ev.Status, ev.Direction = yard.EventKind(kind), yard.SectionStatus(status), yard.Direction(dir)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// SystemEvents returns the operational log, newest first.
func (db *DB) SystemEvents(limit int) ([]yard.SystemEvent, error) {
	rows, err := db.Query(`
		SELECT ts, event_id, event_desc FROM event_info
		ORDER BY id DESC
		LIMIT ?`, limitOr(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []yard.SystemEvent
	for rows.Next() {
		var ev yard.SystemEvent
		if err := rows.Scan(&ev.TS, &ev.EventID, &ev.Description); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// SectionPlayback returns the recorded readings of a section between from
// and to (inclusive), oldest first.
func (db *DB) SectionPlayback(sectionID string, from, to float64) ([]yard.Snapshot, error) {
	rows, err := db.Query(`
		SELECT ts, section_id, section_status, engine_axle_count, torpedo_axle_count,
			direction, speed, torpedo_status, first_axle, error_code
		FROM section_playback
		WHERE section_id = ? AND ts >= ? AND ts <= ?
		ORDER BY ts, id`, sectionID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []yard.Snapshot
	for rows.Next() {
		var (
			ts          float64
			r           yard.SectionReading
			status, dir string
		)
		if err := rows.Scan(&ts, &r.SectionID, &status, &r.EngineAxles, &r.TorpedoAxles,
			&dir, &r.Speed, &r.TorpedoStatus, &r.FirstAxle, &r.ErrorCode); err != nil {
			return nil, err
		}
		r.Status, r.Direction = yard.SectionStatus(status), yard.Direction(dir)
		out = append(out, yard.Snapshot{TS: ts, Sections: []yard.SectionReading{r}})
	}
	return out, rows.Err()
}

// LatestSections returns the live section picture as last recorded.
func (db *DB) LatestSections() ([]yard.SectionReading, error) {
	rows, err := db.Query(`
		SELECT s.section_id, s.section_status, s.engine_axle_count, s.torpedo_axle_count,
			s.direction, s.speed, s.torpedo_status, s.first_axle, s.error_code
		FROM section_info s
		LEFT JOIN layout_section_connections c ON c.section_id = s.section_id
		ORDER BY c.seq, s.section_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []yard.SectionReading
	for rows.Next() {
		var (
			r           yard.SectionReading
			status, dir string
		)
		if err := rows.Scan(&r.SectionID, &status, &r.EngineAxles, &r.TorpedoAxles,
			&dir, &r.Speed, &r.TorpedoStatus, &r.FirstAxle, &r.ErrorCode); err != nil {
			return nil, err
		}
		r.Status, r.Direction = yard.SectionStatus(status), yard.Direction(dir)
		out = append(out, r)
	}
	return out, rows.Err()
}

// DetectionPointHistory returns the latest reports of one DPU, newest first.
func (db *DB) DetectionPointHistory(dpuID string, limit int) ([]yard.DetectionPoints, error) {
	rows, err := db.Query(`
		SELECT ts, dp_id, axle_count, axle_type, direction, speed
		FROM dp_info
		WHERE dpu_id = ?
		ORDER BY id DESC
		LIMIT ?`, dpuID, limitOr(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []yard.DetectionPoints
	for rows.Next() {
		var (
			ts float64
			p  yard.DetectionPoint
		)
		if err := rows.Scan(&ts, &p.DPID, &p.AxleCount, &p.AxleType, &p.Direction, &p.Speed); err != nil {
			return nil, err
		}
		if n := len(out); n > 0 && out[n-1].TS == ts {
			out[n-1].Points = append(out[n-1].Points, p)
			continue
		}
		out = append(out, yard.DetectionPoints{TS: ts, DPUID: dpuID, Points: []yard.DetectionPoint{p}})
	}
	return out, rows.Err()
}
