package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pr0mega/BCLLDraft/internal/division"
	"github.com/pr0mega/BCLLDraft/internal/snapshot"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "divisions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"APP_ENV", "PORT", "CORS_ORIGINS", "SNAPSHOT_DSN", "SNAPSHOT_KEY", "NATS_URL", "NATS_SUBJECT_PREFIX", "DIVISIONS_FILE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, []string{"http://localhost:*", "http://127.0.0.1:*"}, cfg.App.CORSOrigins)
	assert.Empty(t, cfg.Snapshot.DSN)
	assert.Equal(t, snapshot.DefaultKey, cfg.Snapshot.Key)
	assert.Empty(t, cfg.NATS.URL)
	assert.Equal(t, "bcll.snapshot", cfg.NATS.SubjectPrefix)
	assert.Equal(t, division.Defaults(), cfg.Divisions)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FromEnv(t *testing.T) {
	path := writeFile(t, "divisions:\n  - name: T-Ball\n  - name: Coach Pitch\n")
	t.Setenv("APP_ENV", "production")
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ORIGINS", "https://draft.bcll.org, https://display.bcll.org ,")
	t.Setenv("SNAPSHOT_DSN", "postgres://draft@db/bcll")
	t.Setenv("SNAPSHOT_KEY", "spring")
	t.Setenv("NATS_URL", "nats://nats:4222")
	t.Setenv("NATS_SUBJECT_PREFIX", "league")
	t.Setenv("DIVISIONS_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, []string{"https://draft.bcll.org", "https://display.bcll.org"}, cfg.App.CORSOrigins)
	assert.Equal(t, "postgres://draft@db/bcll", cfg.Snapshot.DSN)
	assert.Equal(t, "spring", cfg.Snapshot.Key)
	assert.Equal(t, "nats://nats:4222", cfg.NATS.URL)
	assert.Equal(t, "league", cfg.NATS.SubjectPrefix)
	require.Len(t, cfg.Divisions, 2)
	assert.Equal(t, "T-Ball", cfg.Divisions[0].Name)
}

func TestLoadDivisions(t *testing.T) {
	path := writeFile(t, `divisions:
  - name: " Majors "
    order: 2
    teams: [Reds, Rays]
  - name: Rookies
    order: 1
`)

	divs, err := LoadDivisions(path)
	require.NoError(t, err)

	assert.Equal(t, []division.Division{
		{Name: "Rookies", Order: 1, Teams: []string{}, DraftOrderTeams: []string{}},
		{Name: "Majors", Order: 2, Teams: []string{"Reds", "Rays"}, DraftOrderTeams: []string{"Reds", "Rays"}},
	}, divs)
}

func TestLoadDivisions_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty", "divisions: []\n", "lists no divisions"},
		{"blank name", "divisions:\n  - name: ' '\n", "has no name"},
		{"duplicate", "divisions:\n  - name: Minors\n  - name: Minors\n", "listed twice"},
		{"bad yaml", "divisions: [\n", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadDivisions(writeFile(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := LoadDivisions(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read")
}
