package docker

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	units "github.com/docker/go-units"

	"github.com/burrowtool/burrow/types"
)

// inspectState maps the container state onto the environment lifecycle
// and returns the uptime for running instances.
func (p *Provider) inspectState(ctx context.Context, instance string) (types.EnvState, string, error) {
	out, err := p.run.Run(ctx, "docker", "inspect", "-f",
		"{{.State.Status}}\t{{.State.StartedAt}}", instance)
	if err != nil {
		if isNoSuchContainer(err) {
			return types.EnvStateAbsent, "", nil
		}
		return "", "", fmt.Errorf("inspect %s: %w", instance, err)
	}
	status, startedAt, _ := strings.Cut(strings.TrimSpace(out.Stdout), "\t")
	switch status {
	case "running":
		return types.EnvStateRunning, uptimeSince(startedAt), nil
	case "created":
		return types.EnvStateCreated, "", nil
	default:
		// exited, paused, dead all present as stopped.
		return types.EnvStateStopped, "", nil
	}
}

func uptimeSince(startedAt string) string {
	t, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return ""
	}
	return units.HumanDuration(time.Since(t))
}

// StatusReport returns a minimal report for a non-running instance and a
// full resource report for a running one. Service rows are filled in by
// the caller, which owns the service manager.
func (p *Provider) StatusReport(ctx context.Context, instance string) (*types.StatusReport, error) {
	state, uptime, err := p.inspectState(ctx, instance)
	if err != nil {
		return nil, err
	}
	report := &types.StatusReport{
		Name:      instance,
		Backend:   p.Name(),
		IsRunning: state == types.EnvStateRunning,
		Uptime:    uptime,
	}
	if !report.IsRunning {
		return report, nil
	}

	out, err := p.run.Run(ctx, "docker", "stats", "--no-stream", "--format",
		"{{.CPUPerc}}\t{{.MemUsage}}", instance)
	if err != nil {
		// Resource figures are best effort; the report is still useful.
		return report, nil
	}
	report.Resources = parseStats(strings.TrimSpace(out.Stdout))
	return report, nil
}

// parseStats parses one "CPU%\tMEM / LIMIT" stats row. Malformed rows
// yield zero usage.
func parseStats(row string) types.ResourceUsage {
	var usage types.ResourceUsage
	cpu, mem, ok := strings.Cut(row, "\t")
	if !ok {
		return usage
	}
	if v, err := strconv.ParseFloat(strings.TrimSuffix(cpu, "%"), 64); err == nil {
		usage.CPUPercent = v
	}
	used, limit, ok := strings.Cut(mem, " / ")
	if ok {
		if n, err := units.RAMInBytes(strings.TrimSpace(used)); err == nil {
			usage.MemoryUsedMB = n / units.MiB
		}
		if n, err := units.RAMInBytes(strings.TrimSpace(limit)); err == nil {
			usage.MemoryLimitMB = n / units.MiB
		}
	}
	return usage
}

// List returns every instance of this project known to the daemon.
func (p *Provider) List(ctx context.Context) ([]types.InstanceInfo, error) {
	out, err := p.run.Run(ctx, "docker", "ps", "-a",
		"--filter", "label="+labelProject+"="+p.proj.Name,
		"--format", "{{.Names}}\t{{.State}}\t{{.RunningFor}}")
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	var infos []types.InstanceInfo
	for _, line := range strings.Split(strings.TrimSpace(out.Stdout), "\n") {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 3)
		info := types.InstanceInfo{Name: fields[0], Backend: p.Name()}
		if len(fields) > 1 && fields[1] == "running" {
			info.IsRunning = true
			if len(fields) > 2 {
				info.Uptime = strings.TrimSuffix(fields[2], " ago")
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}
