package env

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burrowtool/burrow/config"
	"github.com/burrowtool/burrow/provider"
	"github.com/burrowtool/burrow/runner"
	"github.com/burrowtool/burrow/service"
	"github.com/burrowtool/burrow/types"
)

// fakeProvider records lifecycle calls for handler workflow tests.
type fakeProvider struct {
	proj      *config.ProjectConfig
	created   []string
	destroyed []string
	instances []types.InstanceInfo
}

var _ provider.Provider = (*fakeProvider)(nil)

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Create(_ context.Context, instance string, _ bool) error {
	f.created = append(f.created, instance)
	return nil
}

func (f *fakeProvider) Start(context.Context, string) error   { return nil }
func (f *fakeProvider) Stop(context.Context, string) error    { return nil }
func (f *fakeProvider) Restart(context.Context, string) error { return nil }

func (f *fakeProvider) Destroy(_ context.Context, instance string) error {
	f.destroyed = append(f.destroyed, instance)
	return nil
}

func (f *fakeProvider) Kill(context.Context, string) error      { return nil }
func (f *fakeProvider) Provision(context.Context, string) error { return nil }

func (f *fakeProvider) SSH(context.Context, string, string) error     { return nil }
func (f *fakeProvider) Exec(context.Context, string, []string) error  { return nil }
func (f *fakeProvider) Logs(context.Context, string, bool, int) error { return nil }

func (f *fakeProvider) StatusReport(context.Context, string) (*types.StatusReport, error) {
	return &types.StatusReport{}, nil
}

func (f *fakeProvider) List(context.Context) ([]types.InstanceInfo, error) {
	return f.instances, nil
}

func (f *fakeProvider) ResolveInstance(instance string) (string, error) {
	return provider.ResolveInstanceName(f.proj, instance)
}

func (f *fakeProvider) SyncDirectory() string { return "/workspace" }

// stubProber reports healthy once it has been asked healthyAfter times.
type stubProber struct {
	healthyAfter int
	calls        int
}

func (p *stubProber) Probe(context.Context, service.Definition, int) bool {
	p.calls++
	return p.calls >= p.healthyAfter
}

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func testEnv(t *testing.T, prober service.Prober) (*env, *fakeProvider) {
	t.Helper()
	conf := config.DefaultConfig()
	conf.StateDir = t.TempDir()
	require.NoError(t, conf.EnsureStateDirs())

	proj := &config.ProjectConfig{
		Name:      "demo",
		Backend:   "fake",
		Dir:       t.TempDir(),
		PortWidth: 10,
		Services: map[string]config.ServiceSetting{
			"postgresql": {Enabled: true},
		},
	}
	prov := &fakeProvider{proj: proj}
	mgr := service.NewManager(conf, runner.NewFake(),
		service.WithSleep(noSleep),
		service.WithProber(prober))
	return &env{
		ctx:  context.Background(),
		conf: conf,
		proj: proj,
		prov: prov,
		mgr:  mgr,
		run:  runner.NewFake(),
	}, prov
}

func serviceInfo(t *testing.T, e *env, name string) service.Info {
	t.Helper()
	infos, err := e.mgr.List(e.ctx)
	require.NoError(t, err)
	for _, info := range infos {
		if info.Name == name {
			return info
		}
	}
	t.Fatalf("service %s not listed", name)
	return service.Info{}
}

// TestCreateEnv_AcquiresServices verifies a cold create ends with the
// enabled service Running and the new instance recorded as consumer.
func TestCreateEnv_AcquiresServices(t *testing.T) {
	e, prov := testEnv(t, &stubProber{healthyAfter: 1})

	require.NoError(t, Handler{}.createEnv(e, "demo-dev", false))

	assert.Equal(t, []string{"demo-dev"}, prov.created)
	info := serviceInfo(t, e, "postgresql")
	assert.Equal(t, service.StatusRunning, info.Status)
	assert.Equal(t, []string{"demo-dev"}, info.Consumers)
}

// TestCreateEnv_ServiceTimeoutDegrades verifies an exhausted health
// budget warns instead of failing the create, keeping the consumer
// registered against the Failing service.
func TestCreateEnv_ServiceTimeoutDegrades(t *testing.T) {
	e, prov := testEnv(t, &stubProber{healthyAfter: 999})

	require.NoError(t, Handler{}.createEnv(e, "demo-dev", false))

	assert.Equal(t, []string{"demo-dev"}, prov.created)
	info := serviceInfo(t, e, "postgresql")
	assert.Equal(t, service.StatusFailing, info.Status)
	assert.Equal(t, []string{"demo-dev"}, info.Consumers)
}

// TestDestroyEnv_UnknownName verifies destroying a name that matches no
// instance warns and succeeds.
func TestDestroyEnv_UnknownName(t *testing.T) {
	e, prov := testEnv(t, &stubProber{healthyAfter: 1})

	require.NoError(t, Handler{}.destroyEnv(e, "ghost"))
	assert.Empty(t, prov.destroyed)
}

// TestDestroyEnv_Existing verifies a resolvable instance is destroyed and
// its service consumers released.
func TestDestroyEnv_Existing(t *testing.T) {
	e, prov := testEnv(t, &stubProber{healthyAfter: 1})
	prov.instances = []types.InstanceInfo{{Name: "demo-dev", Backend: "fake"}}

	require.NoError(t, Handler{}.createEnv(e, "demo-dev", false))
	require.NoError(t, Handler{}.destroyEnv(e, "demo-dev"))

	assert.Equal(t, []string{"demo-dev"}, prov.destroyed)
	info := serviceInfo(t, e, "postgresql")
	assert.Equal(t, service.StatusStopped, info.Status)
	assert.Empty(t, info.Consumers)
}
