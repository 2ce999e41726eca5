package docker

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burrowtool/burrow/provider"
	"github.com/burrowtool/burrow/runner"
	"github.com/burrowtool/burrow/types"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(raw)
}

const inspectPrefix = "docker inspect -f {{.State.Status}}\t{{.State.StartedAt}}"

func respondState(fake *runner.Fake, instance, status string) {
	fake.Respond(inspectPrefix+" "+instance, runner.FakeResponse{
		Stdout: status + "\t2026-08-25T10:00:00.000000000Z\n",
	})
}

func respondAbsent(fake *runner.Fake, instance string) {
	fake.Respond(inspectPrefix+" "+instance, runner.FakeResponse{
		ExitCode: 1,
		Stderr:   "Error: No such object: " + instance,
	})
}

// TestCreate_AlreadyExists verifies create without force refuses to
// touch an existing instance.
func TestCreate_AlreadyExists(t *testing.T) {
	fake := runner.NewFake()
	respondState(fake, "demo-dev", "running")
	p := testProvider(t, fake)

	err := p.Create(context.Background(), "demo-dev", false)
	assert.ErrorIs(t, err, provider.ErrAlreadyExists)
	assert.Equal(t, 0, fake.CallCount("docker compose"))
}

// TestDestroy_Nonexistent verifies destroying a missing instance
// succeeds.
func TestDestroy_Nonexistent(t *testing.T) {
	fake := runner.NewFake()
	respondAbsent(fake, "demo-dev")
	p := testProvider(t, fake)

	require.NoError(t, p.Destroy(context.Background(), "demo-dev"))
	assert.Equal(t, 0, fake.CallCount("docker rm"))
}

// TestStop_NotRunning verifies stopping a stopped instance is a warning,
// not an error.
func TestStop_NotRunning(t *testing.T) {
	fake := runner.NewFake()
	respondState(fake, "demo-dev", "exited")
	p := testProvider(t, fake)

	require.NoError(t, p.Stop(context.Background(), "demo-dev"))
	assert.Equal(t, 0, fake.CallCount("docker stop"))
}

// TestStop_UsesConfiguredTimeout verifies the graceful stop bound comes
// from config.
func TestStop_UsesConfiguredTimeout(t *testing.T) {
	fake := runner.NewFake()
	respondState(fake, "demo-dev", "running")
	p := testProvider(t, fake)
	p.conf.StopTimeoutSeconds = 42

	require.NoError(t, p.Stop(context.Background(), "demo-dev"))
	assert.Equal(t, 1, fake.CallCount("docker stop -t 42 demo-dev"))
}

// TestKill_GracefulFirst verifies kill tries the short graceful stop and
// preserves the container.
func TestKill_GracefulFirst(t *testing.T) {
	fake := runner.NewFake()
	respondState(fake, "demo-dev", "running")
	p := testProvider(t, fake)

	require.NoError(t, p.Kill(context.Background(), "demo-dev"))
	assert.Equal(t, 1, fake.CallCount("docker stop -t 5 demo-dev"))
	assert.Equal(t, 0, fake.CallCount("docker kill"))
	assert.Equal(t, 0, fake.CallCount("docker rm"))
}

// TestKill_EscalatesToKill verifies kill escalates when the graceful
// stop fails.
func TestKill_EscalatesToKill(t *testing.T) {
	fake := runner.NewFake()
	respondState(fake, "demo-dev", "running")
	fake.Respond("docker stop -t 5 demo-dev", runner.FakeResponse{ExitCode: 1, Stderr: "timeout"})
	p := testProvider(t, fake)

	require.NoError(t, p.Kill(context.Background(), "demo-dev"))
	assert.Equal(t, 1, fake.CallCount("docker kill demo-dev"))
}

// TestKill_Absent verifies killing a missing instance is ErrNotFound.
func TestKill_Absent(t *testing.T) {
	fake := runner.NewFake()
	respondAbsent(fake, "demo-dev")
	p := testProvider(t, fake)

	err := p.Kill(context.Background(), "demo-dev")
	assert.ErrorIs(t, err, provider.ErrNotFound)
}

// TestStatusReport_Stopped verifies a non-running instance yields the
// minimal report.
func TestStatusReport_Stopped(t *testing.T) {
	fake := runner.NewFake()
	respondState(fake, "demo-dev", "exited")
	p := testProvider(t, fake)

	report, err := p.StatusReport(context.Background(), "demo-dev")
	require.NoError(t, err)
	assert.False(t, report.IsRunning)
	assert.Equal(t, "docker", report.Backend)
	assert.Equal(t, 0, fake.CallCount("docker stats"))
}

// TestStatusReport_Running verifies resource figures are parsed from the
// stats row.
func TestStatusReport_Running(t *testing.T) {
	fake := runner.NewFake()
	respondState(fake, "demo-dev", "running")
	fake.Respond("docker stats", runner.FakeResponse{Stdout: "12.5%\t512MiB / 2GiB\n"})
	p := testProvider(t, fake)

	report, err := p.StatusReport(context.Background(), "demo-dev")
	require.NoError(t, err)
	assert.True(t, report.IsRunning)
	assert.InDelta(t, 12.5, report.Resources.CPUPercent, 0.01)
	assert.Equal(t, int64(512), report.Resources.MemoryUsedMB)
	assert.Equal(t, int64(2048), report.Resources.MemoryLimitMB)
}

// TestList parses the ps listing into instance rows.
func TestList(t *testing.T) {
	fake := runner.NewFake()
	fake.Respond("docker ps", runner.FakeResponse{
		Stdout: "demo-dev\trunning\t3 hours ago\ndemo-staging\texited\t\n",
	})
	p := testProvider(t, fake)

	infos, err := p.List(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, types.InstanceInfo{Name: "demo-dev", Backend: "docker", IsRunning: true, Uptime: "3 hours"}, infos[0])
	assert.Equal(t, types.InstanceInfo{Name: "demo-staging", Backend: "docker"}, infos[1])
}

// TestUpdateMounts_Absent verifies mount reconciliation renders a file
// when none exists yet.
func TestUpdateMounts_NoComposeFile(t *testing.T) {
	fake := runner.NewFake()
	respondState(fake, "demo-temp", "running")
	p := testProvider(t, fake)

	state := &types.TempEnvState{
		Name:   "demo-temp",
		Mounts: []types.Mount{types.NewMount("/src/liba", types.MountReadOnly)},
	}
	require.NoError(t, p.UpdateMounts(context.Background(), state))
	assert.Contains(t, readFile(t, p.composePath("demo-temp")), "/src/liba:/workspace/liba:ro")
	assert.Equal(t, 1, fake.CallCount("docker compose -f "+p.composePath("demo-temp")))
}
