package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationNamesEmbedded(t *testing.T) {
	names, err := migrationNames(migrationsFS)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_users.sql", "002_polls.sql"}, names)
}

func TestMigrationNamesOrderAndFilter(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/010_late.sql":  {Data: []byte("SELECT 1")},
		"migrations/002_mid.sql":   {Data: []byte("SELECT 1")},
		"migrations/README.md":     {Data: []byte("notes")},
		"migrations/001_first.sql": {Data: []byte("SELECT 1")},
	}
	names, err := migrationNames(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_first.sql", "002_mid.sql", "010_late.sql"}, names)
}
