package db

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/banshee-data/yardwatch/internal/topology"
	"github.com/banshee-data/yardwatch/internal/yard"
)

var _ topology.Source = (*DB)(nil)

// SectionConnections returns the layout sections in their stored order.
func (db *DB) SectionConnections() ([]topology.Section, error) {
	rows, err := db.Query(`
		SELECT section_id, left_normal, left_reverse, right_normal, right_reverse
		FROM layout_section_connections
		ORDER BY seq, section_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []topology.Section
	for rows.Next() {
		var (
			s              topology.Section
			ln, lr, rn, rr sql.NullString
		)
		if err := rows.Scan(&s.ID, &ln, &lr, &rn, &rr); err != nil {
			return nil, err
		}
		s.LeftNormal = topology.NormalizeLink(ln.String)
		s.LeftReverse = topology.NormalizeLink(lr.String)
		s.RightNormal = topology.NormalizeLink(rn.String)
		s.RightReverse = topology.NormalizeLink(rr.String)
		out = append(out, s)
	}
	return out, rows.Err()
}

// PointBindings returns every point and the section it governs.
func (db *DB) PointBindings() ([]topology.Point, error) {
	rows, err := db.Query(`SELECT point_id, section_id FROM point_config ORDER BY point_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []topology.Point
	for rows.Next() {
		var p topology.Point
		if err := rows.Scan(&p.ID, &p.SectionID); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ZoneAssignments returns the stored zone membership. An empty table makes
// topology.Load fall back to the stock zones.
func (db *DB) ZoneAssignments() ([]topology.ZoneAssignment, error) {
	rows, err := db.Query(`SELECT zone, section_id, seq FROM layout_section_zones ORDER BY zone, seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []topology.ZoneAssignment
	for rows.Next() {
		var (
			a    topology.ZoneAssignment
			zone string
		)
		if err := rows.Scan(&zone, &a.SectionID, &a.Seq); err != nil {
			return nil, err
		}
		a.Zone = topology.Zone(zone)
		out = append(out, a)
	}
	return out, rows.Err()
}

// ImportLayout validates l and replaces the stored layout, DPU map and
// users with it in one transaction.
func (db *DB) ImportLayout(l *topology.Layout) (*topology.Registry, error) {
	reg, err := topology.Load(l)
	if err != nil {
		return nil, err
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	for _, table := range []string{"layout_section_connections", "point_config", "layout_section_zones", "yard_config"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return nil, fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, s := range reg.Sections() {
		if _, err := tx.Exec(`
			INSERT INTO layout_section_connections (section_id, seq, left_normal, left_reverse, right_normal, right_reverse)
			VALUES (?, ?, ?, ?, ?, ?)`,
			s.ID, i, s.LeftNormal, s.LeftReverse, s.RightNormal, s.RightReverse,
		); err != nil {
			return nil, fmt.Errorf("section %s: %w", s.ID, err)
		}
	}
	for _, p := range reg.Points() {
		if _, err := tx.Exec(`INSERT INTO point_config (point_id, section_id) VALUES (?, ?)`, p.ID, p.SectionID); err != nil {
			return nil, fmt.Errorf("point %s: %w", p.ID, err)
		}
	}
	for _, a := range reg.Assignments() {
		if _, err := tx.Exec(`INSERT INTO layout_section_zones (zone, section_id, seq) VALUES (?, ?, ?)`,
			string(a.Zone), a.SectionID, a.Seq); err != nil {
			return nil, fmt.Errorf("zone %s/%s: %w", a.Zone, a.SectionID, err)
		}
	}

	sectionIDs := make([]string, 0, len(l.DPUs))
	for id := range l.DPUs {
		sectionIDs = append(sectionIDs, id)
	}
	sort.Strings(sectionIDs)
	for _, id := range sectionIDs {
		if !reg.Has(id) {
			return nil, fmt.Errorf("dpu mapping names unknown section %q", id)
		}
		if _, err := tx.Exec(`INSERT INTO yard_config (section_id, dpu_id) VALUES (?, ?)`, id, l.DPUs[id]); err != nil {
			return nil, fmt.Errorf("dpu %s: %w", id, err)
		}
	}

	names := make([]string, 0, len(l.Users))
	for name := range l.Users {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := upsertUser(tx, name, l.Users[name]); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return reg, nil
}

// LoadTopology reads and validates the stored layout.
func (db *DB) LoadTopology() (*topology.Registry, error) {
	return topology.Load(db)
}

// DPUForSection returns the detection processing unit wired to a section.
func (db *DB) DPUForSection(sectionID string) (string, error) {
	var dpu string
	err := db.QueryRow(`SELECT dpu_id FROM yard_config WHERE section_id = ?`, sectionID).Scan(&dpu)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("section %q: %w", sectionID, yard.ErrNotFound)
	}
	return dpu, err
}

// DPUSections returns the sections wired to a DPU, ordered by layout position.
func (db *DB) DPUSections(dpuID string) ([]string, error) {
	rows, err := db.Query(`
		SELECT y.section_id
		FROM yard_config y
		LEFT JOIN layout_section_connections c ON c.section_id = y.section_id
		WHERE y.dpu_id = ?
		ORDER BY c.seq, y.section_id`, dpuID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("dpu %q: %w", dpuID, yard.ErrNotFound)
	}
	return out, nil
}

func nowUnix() int64 { return time.Now().Unix() }
