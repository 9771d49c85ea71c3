package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add coverage records", "add_coverage_records"},
		{"Add-Fee-Schedules", "add_fee_schedules"},
		{"ADD_ESCALATIONS", "add_escalations"},
		{"add__coverage__index", "add_coverage_index"},
		{"Members v2", "members_v2"},
		{"   padded   ", "padded"},
		{"unique!key@constraint", "uniquekeyconstraint"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	mf, err := CreateMigration(dir, "add coverage records", "Ledger table with unique month key")
	require.NoError(t, err)
	require.NotNil(t, mf)

	assert.Len(t, mf.Version, 14, "version is a YYYYMMDDHHMMSS timestamp")
	assert.True(t, strings.HasSuffix(mf.UpPath, "_add_coverage_records.up.sql"))
	assert.True(t, strings.HasSuffix(mf.DownPath, "_add_coverage_records.down.sql"))

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "add coverage records")
	assert.Contains(t, string(up), "Ledger table with unique month key")
	assert.Contains(t, string(up), "UP migration SQL")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "rollback")
	assert.Contains(t, string(down), "DOWN migration SQL")
}

func TestCreateMigration_CreatesDirectory(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "db", "migrations")

	_, err := CreateMigration(nested, "init schema", "")
	require.NoError(t, err)

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestListMigrations(t *testing.T) {
	t.Run("pairs are listed once and sorted", func(t *testing.T) {
		dir := t.TempDir()
		for _, f := range []string{
			"000002_add_payments.up.sql",
			"000002_add_payments.down.sql",
			"000001_add_members.up.sql",
			"000001_add_members.down.sql",
			"000003_add_coverage_records.up.sql",
			"000003_add_coverage_records.down.sql",
		} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("-- sql"), 0o644))
		}

		names, err := ListMigrations(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"000001_add_members",
			"000002_add_payments",
			"000003_add_coverage_records",
		}, names)
	})

	t.Run("ignores non-migration files and directories", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "000001_init.up.sql"), []byte("-- sql"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("docs"), 0o644))
		require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.up.sql"), 0o755))

		names, err := ListMigrations(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"000001_init"}, names)
	})

	t.Run("missing directory is empty", func(t *testing.T) {
		names, err := ListMigrations(filepath.Join(t.TempDir(), "nope"))
		require.NoError(t, err)
		assert.Empty(t, names)
	})
}
