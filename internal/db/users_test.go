package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/yardwatch/internal/yard"
)

func TestUsers(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.AddUser("shiftlead", []string{"supervisor", " viewer ", ""}))
	roles, err := db.UserRoles("shiftlead")
	require.NoError(t, err)
	assert.Equal(t, []string{"supervisor", "viewer"}, roles)

	ok, err := db.HasRole("shiftlead", "admin", "supervisor")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = db.HasRole("shiftlead", "admin")
	require.NoError(t, err)
	assert.False(t, ok)

	// Re-adding replaces the roles.
	require.NoError(t, db.AddUser("shiftlead", []string{"viewer"}))
	roles, err = db.UserRoles("shiftlead")
	require.NoError(t, err)
	assert.Equal(t, []string{"viewer"}, roles)

	_, err = db.UserRoles("nobody")
	assert.ErrorIs(t, err, yard.ErrNotFound)
	_, err = db.HasRole("nobody", "viewer")
	assert.ErrorIs(t, err, yard.ErrNotFound)

	assert.Error(t, db.AddUser("  ", []string{"admin"}))
}

func TestImportLayout_SeedsUsers(t *testing.T) {
	db := newTestDB(t)
	importStockLayout(t, db)

	tests := map[string][]string{
		"operator":  {"viewer"},
		"shiftlead": {"supervisor", "viewer"},
		"root":      {"admin"},
	}
	for name, want := range tests {
		got, err := db.UserRoles(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}
