package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProject(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "burrow.yaml"), []byte(body), 0o644))
	return dir
}

// TestLoadProject_Defaults verifies an empty file picks up every default.
func TestLoadProject_Defaults(t *testing.T) {
	dir := writeProject(t, "{}\n")

	proj, err := LoadProject(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(dir), proj.Name)
	assert.Equal(t, "docker", proj.Backend)
	assert.Equal(t, "ubuntu:24.04", proj.Image)
	assert.Equal(t, 10, proj.PortWidth)
	assert.Equal(t, proj.Name+"-dev", proj.DefaultInstance())
}

// TestLoadProject_InvalidMemory verifies a bad memory string is rejected
// at load time.
func TestLoadProject_InvalidMemory(t *testing.T) {
	dir := writeProject(t, "memory: lots\n")
	_, err := LoadProject(dir)
	assert.ErrorContains(t, err, "invalid memory")
}

// TestLoadProject_MemoryBytes verifies unit parsing.
func TestLoadProject_MemoryBytes(t *testing.T) {
	dir := writeProject(t, "memory: 2G\n")
	proj, err := LoadProject(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(2<<30), proj.MemoryBytes())
}

// TestEnabledServices_Merge verifies project and global enablement merge
// without duplicates.
func TestEnabledServices_Merge(t *testing.T) {
	proj := &ProjectConfig{
		Services: map[string]ServiceSetting{
			"postgresql": {Enabled: true},
			"redis":      {Enabled: false},
		},
	}
	global := &Config{
		Services: map[string]ServiceSetting{
			"postgresql": {Enabled: true},
			"mongodb":    {Enabled: true},
		},
	}

	names := proj.EnabledServices(global)
	assert.ElementsMatch(t, []string{"postgresql", "mongodb"}, names)
}

// TestServiceSettingFor_ProjectWins verifies field-by-field precedence.
func TestServiceSettingFor_ProjectWins(t *testing.T) {
	proj := &ProjectConfig{
		Services: map[string]ServiceSetting{
			"postgresql": {Enabled: true, Port: 15432},
		},
	}
	global := &Config{
		Services: map[string]ServiceSetting{
			"postgresql": {Enabled: true, Port: 5432, Version: "16"},
		},
	}

	s := proj.ServiceSettingFor(global, "postgresql")
	assert.True(t, s.Enabled)
	assert.Equal(t, 15432, s.Port)
	assert.Equal(t, "16", s.Version)
}
