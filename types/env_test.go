package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseMount covers the one, two and three part forms.
func TestParseMount(t *testing.T) {
	m, err := ParseMount("/src/liba")
	require.NoError(t, err)
	assert.Equal(t, Mount{Source: "/src/liba", Target: "/workspace/liba", Permissions: MountReadWrite}, m)

	m, err = ParseMount("/src/liba:ro")
	require.NoError(t, err)
	assert.Equal(t, Mount{Source: "/src/liba", Target: "/workspace/liba", Permissions: MountReadOnly}, m)

	m, err = ParseMount("/src/liba:/opt/liba:rw")
	require.NoError(t, err)
	assert.Equal(t, Mount{Source: "/src/liba", Target: "/opt/liba", Permissions: MountReadWrite}, m)

	_, err = ParseMount("/src/liba:bogus")
	assert.Error(t, err)
	_, err = ParseMount("a:b:c:d")
	assert.Error(t, err)
}

// TestNewMount_TrailingSlash verifies the default target strips trailing
// slashes before taking the basename.
func TestNewMount_TrailingSlash(t *testing.T) {
	m := NewMount("/src/liba/", MountReadWrite)
	assert.Equal(t, "/workspace/liba", m.Target)
}

// TestMount_String verifies the round-trippable rendering.
func TestMount_String(t *testing.T) {
	m := Mount{Source: "/a", Target: "/b", Permissions: MountReadOnly}
	assert.Equal(t, "/a:/b:ro", m.String())

	parsed, err := ParseMount(m.String())
	require.NoError(t, err)
	assert.Equal(t, m, parsed)
}

// TestTempEnvState_Mounts covers add, duplicate rejection and removal.
func TestTempEnvState_Mounts(t *testing.T) {
	state := &TempEnvState{Name: "demo-temp"}

	require.NoError(t, state.AddMount(NewMount("/src/liba", MountReadWrite)))
	assert.True(t, state.HasMount("/src/liba"))

	err := state.AddMount(NewMount("/src/liba", MountReadOnly))
	assert.ErrorContains(t, err, "already exists")

	require.NoError(t, state.RemoveMount("/src/liba"))
	assert.False(t, state.HasMount("/src/liba"))

	err = state.RemoveMount("/src/liba")
	assert.ErrorContains(t, err, "not found")
}
