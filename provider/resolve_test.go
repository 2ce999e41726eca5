package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burrowtool/burrow/config"
	"github.com/burrowtool/burrow/types"
)

// TestResolveInstanceName covers the default, explicit and pre-qualified
// forms.
func TestResolveInstanceName(t *testing.T) {
	proj := &config.ProjectConfig{Name: "demo"}

	name, err := ResolveInstanceName(proj, "")
	require.NoError(t, err)
	assert.Equal(t, "demo-dev", name)

	name, err = ResolveInstanceName(proj, "staging")
	require.NoError(t, err)
	assert.Equal(t, "demo-staging", name)

	name, err = ResolveInstanceName(proj, "demo-staging")
	require.NoError(t, err)
	assert.Equal(t, "demo-staging", name)
}

// TestResolveInstanceName_NoProject verifies resolution without a project
// requires an explicit instance.
func TestResolveInstanceName_NoProject(t *testing.T) {
	_, err := ResolveInstanceName(nil, "")
	assert.ErrorIs(t, err, ErrNoProject)

	name, err := ResolveInstanceName(nil, "anything")
	require.NoError(t, err)
	assert.Equal(t, "anything", name)
}

// TestMatchInstance covers exact, -dev convention, substring and
// ambiguous matching.
func TestMatchInstance(t *testing.T) {
	instances := []types.InstanceInfo{
		{Name: "demo-dev"},
		{Name: "demo-staging"},
		{Name: "other-dev"},
	}

	name, err := MatchInstance("demo-dev", instances)
	require.NoError(t, err)
	assert.Equal(t, "demo-dev", name)

	name, err = MatchInstance("demo", instances)
	require.NoError(t, err)
	assert.Equal(t, "demo-dev", name)

	name, err = MatchInstance("staging", instances)
	require.NoError(t, err)
	assert.Equal(t, "demo-staging", name)

	_, err = MatchInstance("dev", instances)
	assert.ErrorContains(t, err, "ambiguous")

	_, err = MatchInstance("nothing", instances)
	assert.ErrorIs(t, err, ErrNotFound)
}
