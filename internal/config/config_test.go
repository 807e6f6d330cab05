package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, 60, cfg.Schedule.BlockMinutes)
	assert.True(t, cfg.Schedule.Window["monday"].Enabled)
	assert.False(t, cfg.Schedule.Window["saturday"].Enabled)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
timezone = "Europe/Stockholm"

[schedule]
block_minutes = 90
gap_minutes = 15

[schedule.window.monday]
enabled = true
start = "08:00"
end = "16:00"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "Europe/Stockholm", cfg.Timezone)
	assert.Equal(t, 90, cfg.Schedule.BlockMinutes)
	assert.Equal(t, 15, cfg.Schedule.GapMinutes)
	assert.Equal(t, "08:00", cfg.Schedule.Window["monday"].Start)
	// Unmentioned days keep their defaults.
	assert.True(t, cfg.Schedule.Window["friday"].Enabled)
}

func TestLoadFromRejectsInvalidWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[schedule.window.monday]
enabled = true
start = "17:00"
end = "09:00"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}
