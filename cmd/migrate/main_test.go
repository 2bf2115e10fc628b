package main

import (
	"os"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilename(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  int
		name     string
	}{
		{"0001_init_schema_migrations.sql", true, 1, "init_schema_migrations"},
		{"0012_create_invoices.sql", true, 12, "create_invoices"},
		{"001_invalid.sql", false, 0, ""},
		{"0001_test", false, 0, ""},
		{"0001.sql", false, 0, ""},
		{"invalid_0001_test.sql", false, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, ok := parseFilename(tt.filename)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.version, version)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestReadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_create_invoices.sql": {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.invoices` (id STRING);")},
		"0001_init.sql":            {Data: []byte("SELECT 1;")},
		"README.md":                {Data: []byte("notes")},
	}

	migrations, skipped, err := readMigrations(fsys, "proj", "bilix")
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, []string{"README.md"}, skipped)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "create_invoices", migrations[1].Name)
	assert.Equal(t, "CREATE TABLE `proj.bilix.invoices` (id STRING);", migrations[1].SQL)

	// The checksum ignores the placeholders' values.
	again, _, err := readMigrations(fsys, "other", "ds")
	require.NoError(t, err)
	assert.Equal(t, migrations[1].Checksum, again[1].Checksum)
	assert.NotEqual(t, migrations[0].Checksum, migrations[1].Checksum)
}

func TestReadMigrations_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"0001_a.sql": {Data: []byte("SELECT 1;")},
		"0001_b.sql": {Data: []byte("SELECT 2;")},
	}
	_, _, err := readMigrations(fsys, "p", "d")
	assert.Error(t, err)
}

func TestPlan(t *testing.T) {
	migrations := []Migration{
		{Version: 1, Name: "a", Checksum: "c1"},
		{Version: 2, Name: "b", Checksum: "c2-new"},
		{Version: 3, Name: "c", Checksum: "c3"},
	}
	applied := []AppliedMigration{
		{Version: 1, Checksum: "c1"},
		{Version: 2, Checksum: "c2"},
	}

	pending, drifted := plan(migrations, applied)
	require.Len(t, pending, 1)
	assert.Equal(t, 3, pending[0].Version)
	require.Len(t, drifted, 1)
	assert.Equal(t, 2, drifted[0].Version)
}

func TestRepositoryMigrations(t *testing.T) {
	dir, err := findMigrationsDir("migrations/bigquery")
	require.NoError(t, err)

	migrations, skipped, err := readMigrations(os.DirFS(dir), "proj", "bilix")
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.NotEmpty(t, migrations)

	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version, m.Filename)
		assert.NotContains(t, m.SQL, "{{")
	}
}
