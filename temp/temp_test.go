package temp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burrowtool/burrow/config"
	"github.com/burrowtool/burrow/provider"
	"github.com/burrowtool/burrow/types"
)

// fakeProvider records lifecycle calls and implements the temp capability.
type fakeProvider struct {
	created      []string
	started      []string
	destroyed    []string
	mountUpdates [][]types.Mount
	running      bool
}

var (
	_ provider.Provider     = (*fakeProvider)(nil)
	_ provider.TempProvider = (*fakeProvider)(nil)
)

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Create(_ context.Context, instance string, _ bool) error {
	f.created = append(f.created, instance)
	return nil
}

func (f *fakeProvider) Start(_ context.Context, instance string) error {
	f.started = append(f.started, instance)
	f.running = true
	return nil
}

func (f *fakeProvider) Stop(context.Context, string) error    { f.running = false; return nil }
func (f *fakeProvider) Restart(context.Context, string) error { return nil }

func (f *fakeProvider) Destroy(_ context.Context, instance string) error {
	f.destroyed = append(f.destroyed, instance)
	f.running = false
	return nil
}

func (f *fakeProvider) Kill(context.Context, string) error      { return nil }
func (f *fakeProvider) Provision(context.Context, string) error { return nil }

func (f *fakeProvider) SSH(context.Context, string, string) error    { return nil }
func (f *fakeProvider) Exec(context.Context, string, []string) error { return nil }
func (f *fakeProvider) Logs(context.Context, string, bool, int) error {
	return nil
}

func (f *fakeProvider) StatusReport(context.Context, string) (*types.StatusReport, error) {
	return &types.StatusReport{}, nil
}

func (f *fakeProvider) List(context.Context) ([]types.InstanceInfo, error) { return nil, nil }

func (f *fakeProvider) ResolveInstance(instance string) (string, error) { return instance, nil }
func (f *fakeProvider) SyncDirectory() string                           { return "/workspace" }

func (f *fakeProvider) UpdateMounts(_ context.Context, state *types.TempEnvState) error {
	f.mountUpdates = append(f.mountUpdates, append([]types.Mount(nil), state.Mounts...))
	return nil
}

func (f *fakeProvider) RecreateWithMounts(ctx context.Context, state *types.TempEnvState) error {
	return f.UpdateMounts(ctx, state)
}

func (f *fakeProvider) IsRunning(context.Context, string) (bool, error) { return f.running, nil }
func (f *fakeProvider) CheckHealth(context.Context, string) (bool, error) {
	return f.running, nil
}

func testSetup(t *testing.T) (*Manager, *fakeProvider, *config.ProjectConfig) {
	t.Helper()
	conf := config.DefaultConfig()
	conf.StateDir = t.TempDir()
	require.NoError(t, conf.EnsureStateDirs())
	proj := &config.ProjectConfig{Name: "demo", Backend: "fake", Dir: t.TempDir()}
	return NewManager(conf), &fakeProvider{}, proj
}

// TestCreate_RecordsState verifies creation persists the record and
// names the instance after the project.
func TestCreate_RecordsState(t *testing.T) {
	mgr, prov, proj := testSetup(t)
	ctx := context.Background()

	state, err := mgr.Create(ctx, prov, proj, nil)
	require.NoError(t, err)
	assert.Equal(t, "demo-temp", state.Name)
	assert.Equal(t, []string{"demo-temp"}, prov.created)
	assert.Equal(t, []string{"demo-temp"}, prov.started)

	got, err := mgr.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, state.Name, got.Name)
	assert.Equal(t, proj.Dir, got.ProjectDir)
}

// TestCreate_SecondFails verifies only one temp environment may exist.
func TestCreate_SecondFails(t *testing.T) {
	mgr, prov, proj := testSetup(t)
	ctx := context.Background()

	_, err := mgr.Create(ctx, prov, proj, nil)
	require.NoError(t, err)

	_, err = mgr.Create(ctx, prov, proj, nil)
	assert.ErrorContains(t, err, "already exists")
}

// TestMount_AppliesThenPersists verifies the backend sees the new mount
// set and state follows.
func TestMount_AppliesThenPersists(t *testing.T) {
	mgr, prov, proj := testSetup(t)
	ctx := context.Background()

	_, err := mgr.Create(ctx, prov, proj, nil)
	require.NoError(t, err)

	m := types.NewMount("/src/liba", types.MountReadOnly)
	require.NoError(t, mgr.Mount(ctx, prov, m))
	require.Len(t, prov.mountUpdates, 1)
	assert.Equal(t, []types.Mount{m}, prov.mountUpdates[0])

	state, err := mgr.Get(ctx)
	require.NoError(t, err)
	assert.True(t, state.HasMount("/src/liba"))
}

// TestMount_Duplicate verifies duplicate sources are rejected before the
// backend is touched.
func TestMount_Duplicate(t *testing.T) {
	mgr, prov, proj := testSetup(t)
	ctx := context.Background()

	m := types.NewMount("/src/liba", types.MountReadWrite)
	_, err := mgr.Create(ctx, prov, proj, []types.Mount{m})
	require.NoError(t, err)
	updates := len(prov.mountUpdates)

	err = mgr.Mount(ctx, prov, m)
	assert.ErrorContains(t, err, "already exists")
	assert.Len(t, prov.mountUpdates, updates)
}

// TestUnmount_All verifies --all clears the mount set.
func TestUnmount_All(t *testing.T) {
	mgr, prov, proj := testSetup(t)
	ctx := context.Background()

	mounts := []types.Mount{
		types.NewMount("/src/liba", types.MountReadWrite),
		types.NewMount("/src/libb", types.MountReadOnly),
	}
	_, err := mgr.Create(ctx, prov, proj, mounts)
	require.NoError(t, err)

	require.NoError(t, mgr.Unmount(ctx, prov, "", true))
	state, err := mgr.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, state.Mounts)
}

// TestDestroy_ClearsRecord verifies destroy removes the instance and the
// record.
func TestDestroy_ClearsRecord(t *testing.T) {
	mgr, prov, proj := testSetup(t)
	ctx := context.Background()

	_, err := mgr.Create(ctx, prov, proj, nil)
	require.NoError(t, err)

	require.NoError(t, mgr.Destroy(ctx, prov))
	assert.Equal(t, []string{"demo-temp"}, prov.destroyed)

	_, err = mgr.Get(ctx)
	assert.ErrorIs(t, err, ErrNoTempEnv)
}
