package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/banshee-data/yardwatch/internal/yard"
)

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func upsertUser(ex execer, name string, roles []string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("user name is empty")
	}
	clean := make([]string, 0, len(roles))
	for _, r := range roles {
		if r = strings.TrimSpace(r); r != "" {
			clean = append(clean, r)
		}
	}
	data, err := json.Marshal(clean)
	if err != nil {
		return err
	}
	if _, err := ex.Exec(`
		INSERT INTO user_info (username, roles_json, created_unix)
		VALUES (?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET roles_json = excluded.roles_json`,
		name, string(data), nowUnix(),
	); err != nil {
		return fmt.Errorf("user %s: %w", name, err)
	}
	return nil
}

// AddUser creates a user or replaces the roles of an existing one.
func (db *DB) AddUser(name string, roles []string) error {
	return upsertUser(db, name, roles)
}

// UserRoles returns the roles of name.
func (db *DB) UserRoles(name string) ([]string, error) {
	var raw string
	err := db.QueryRow(`SELECT roles_json FROM user_info WHERE username = ?`, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", name, yard.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var roles []string
	if err := json.Unmarshal([]byte(raw), &roles); err != nil {
		return nil, fmt.Errorf("user %q: bad roles: %w", name, err)
	}
	return roles, nil
}

// HasRole reports whether name holds any of roles.
func (db *DB) HasRole(name string, roles ...string) (bool, error) {
	have, err := db.UserRoles(name)
	if err != nil {
		return false, err
	}
	for _, h := range have {
		for _, r := range roles {
			if h == r {
				return true, nil
			}
		}
	}
	return false, nil
}
