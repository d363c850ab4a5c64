package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *MappingDB {
	t.Helper()
	db, err := InitMappingDB(filepath.Join(t.TempDir(), "data", "mappings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLookupMissing(t *testing.T) {
	db := newTestDB(t)

	threadID, found, err := db.Lookup("unknown")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, threadID)
}

func TestUpsertAndLookup(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.Upsert("comic-1", "thread-1", "First Comic"))

	threadID, found, err := db.Lookup("comic-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "thread-1", threadID)
}

func TestUpsertReplacesExistingRow(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.Upsert("comic-1", "thread-1", "First Comic"))
	require.NoError(t, db.Upsert("comic-1", "thread-2", "First Comic (reposted)"))

	threadID, found, err := db.Lookup("comic-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "thread-2", threadID)

	all, err := db.All()
	require.NoError(t, err)
	assert.Len(t, all, 1, "upsert must never duplicate a comic_id row")
}

func TestAll(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.Upsert("b", "thread-2", "B"))
	require.NoError(t, db.Upsert("a", "thread-1", "A"))

	all, err := db.All()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ComicID)
	assert.Equal(t, "thread-1", all[0].ThreadID)
	assert.Equal(t, "b", all[1].ComicID)
	assert.NotZero(t, all[0].Timestamp)
}
