package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(files, dir)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	for _, entry := range entries {
		raw, err := fs.ReadFile(files, dir+"/"+entry.Name())
		require.NoError(t, err)

		content := string(raw)
		assert.Contains(t, content, "-- +goose Up", entry.Name())
		assert.Contains(t, content, "-- +goose Down", entry.Name())
	}
}

func TestRecycledPoolUsesByteOrder(t *testing.T) {
	raw, err := fs.ReadFile(files, dir+"/00002_create_recycled_appointment_ids.sql")
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), `COLLATE "C"`))
}
