package db

import (
	"fmt"

	"github.com/banshee-data/yardwatch/internal/yard"
)

var _ yard.Recorder = (*DB)(nil)

// RecordSnapshot updates the live section picture and appends every
// reading to the playback log.
func (db *DB) RecordSnapshot(s yard.Snapshot) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, r := range s.Sections {
		args := []any{
			s.TS, r.SectionID, string(r.Status), r.EngineAxles, r.TorpedoAxles,
			string(r.Direction), r.Speed, r.TorpedoStatus, r.FirstAxle, r.ErrorCode,
		}
		if _, err := tx.Exec(`
			INSERT INTO section_info (
				ts, section_id, section_status, engine_axle_count, torpedo_axle_count,
				direction, speed, torpedo_status, first_axle, error_code
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(section_id) DO UPDATE SET
				ts = excluded.ts,
				section_status = excluded.section_status,
				engine_axle_count = excluded.engine_axle_count,
				torpedo_axle_count = excluded.torpedo_axle_count,
				direction = excluded.direction,
				speed = excluded.speed,
				torpedo_status = excluded.torpedo_status,
				first_axle = excluded.first_axle,
				error_code = excluded.error_code`, args...); err != nil {
			return fmt.Errorf("section_info %s: %w", r.SectionID, err)
		}
		if _, err := tx.Exec(`
			INSERT INTO section_playback (
				ts, section_id, section_status, engine_axle_count, torpedo_axle_count,
				direction, speed, torpedo_status, first_axle, error_code
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...); err != nil {
			return fmt.Errorf("section_playback %s: %w", r.SectionID, err)
		}
	}
	return tx.Commit()
}

func (db *DB) RecordSectionEvent(ev yard.SectionEvent) error {
	_, err := db.Exec(`
		INSERT INTO section_events (
			ts, section_id, kind, section_status, engine_axle_count, torpedo_axle_count,
			direction, speed, torpedo_status, torpedo_id, engine_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.TS, ev.SectionID, string(ev.Kind), string(ev.Status), ev.EngineAxles, ev.TorpedoAxles,
		string(ev.Direction), ev.Speed, ev.TorpedoStatus, ev.TorpedoID, ev.EngineID,
	)
	return err
}

// RecordTransit upserts the performance row of the vehicle. Yard entry and
// exit go to yard_performance, unloading marks to torpedo_performance.
func (db *DB) RecordTransit(m yard.TransitMark) error {
	var q string
	switch m.Kind {
	case yard.EventEntry:
		q = `INSERT INTO yard_performance (torpedo_id, engine_id, entry_ts, entry_section)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(torpedo_id) DO UPDATE SET
				engine_id = excluded.engine_id,
				entry_ts = excluded.entry_ts,
				entry_section = excluded.entry_section`
	case yard.EventExit:
		q = `INSERT INTO yard_performance (torpedo_id, engine_id, exit_ts, exit_section)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(torpedo_id) DO UPDATE SET
				exit_ts = excluded.exit_ts,
				exit_section = excluded.exit_section`
	case yard.EventUnloadEntry:
		q = `INSERT INTO torpedo_performance (torpedo_id, engine_id, unload_entry_ts, unload_section)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(torpedo_id) DO UPDATE SET
				unload_entry_ts = excluded.unload_entry_ts,
				unload_exit_ts = NULL,
				unload_section = excluded.unload_section`
	case yard.EventUnloadExit:
		q = `INSERT INTO torpedo_performance (torpedo_id, engine_id, unload_exit_ts, unload_section)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(torpedo_id) DO UPDATE SET
				unload_exit_ts = excluded.unload_exit_ts`
	default:
		return fmt.Errorf("unknown transit kind %q", m.Kind)
	}
	_, err := db.Exec(q, m.TorpedoID, m.EngineID, m.TS, m.SectionID)
	return err
}

// RecordTrailThrough opens (or reopens) the alert of a section.
func (db *DB) RecordTrailThrough(a yard.TrailThroughAlert) error {
	_, err := db.Exec(`
		INSERT INTO trail_through (section_id, ts, confirm_status, confirm_ts)
		VALUES (?, ?, 0, NULL)
		ON CONFLICT(section_id) DO UPDATE SET
			ts = excluded.ts,
			confirm_status = 0,
			confirm_ts = NULL`,
		a.SectionID, a.TS,
	)
	return err
}

func (db *DB) ConfirmTrailThrough(sectionID string, ts float64) error {
	_, err := db.Exec(
		`UPDATE trail_through SET confirm_status = 1, confirm_ts = ? WHERE section_id = ?`,
		ts, sectionID,
	)
	return err
}

func (db *DB) RecordTrailThroughAudit(a yard.TrailThroughAudit) error {
	_, err := db.Exec(`
		INSERT INTO trail_through_playback (id, ts, section_id, action, confirm_status)
		VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.TS, a.SectionID, string(a.Action), boolInt(a.Confirmed),
	)
	return err
}

// RecordTrainTrace stores one trace sample. The sample number travels in
// the event's torpedo id.
func (db *DB) RecordTrainTrace(ev yard.SectionEvent) error {
	_, err := db.Exec(`
		INSERT INTO train_trace (ts, section_id, kind, sample, torpedo_axle_count, direction, speed)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.TS, ev.SectionID, string(ev.Kind), ev.TorpedoID, ev.TorpedoAxles, string(ev.Direction), ev.Speed,
	)
	return err
}

func (db *DB) RecordDetectionPoints(d yard.DetectionPoints) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, p := range d.Points {
		if _, err := tx.Exec(`
			INSERT INTO dp_info (ts, dpu_id, dp_id, axle_count, axle_type, direction, speed)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			d.TS, d.DPUID, p.DPID, p.AxleCount, p.AxleType, p.Direction, p.Speed,
		); err != nil {
			return fmt.Errorf("dp_info %s/%s: %w", d.DPUID, p.DPID, err)
		}
	}
	return tx.Commit()
}

func (db *DB) RecordSystemEvent(ev yard.SystemEvent) error {
	_, err := db.Exec(
		`INSERT INTO event_info (ts, event_id, event_desc) VALUES (?, ?, ?)`,
		ev.TS, ev.EventID, ev.Description,
	)
	return err
}
