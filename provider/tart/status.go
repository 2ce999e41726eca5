package tart

import (
	"context"
	"os"
	"strings"
	"time"

	units "github.com/docker/go-units"

	"github.com/burrowtool/burrow/types"
	"github.com/burrowtool/burrow/utils"
)

// StatusReport returns a minimal report for a non-running VM. Full guest
// resource figures would need an in-guest agent, so the running report
// carries uptime only; service rows are filled in by the caller.
func (p *Provider) StatusReport(ctx context.Context, instance string) (*types.StatusReport, error) {
	report := &types.StatusReport{
		Name:    instance,
		Backend: p.Name(),
	}
	if !p.isRunning(instance) {
		return report, nil
	}
	report.IsRunning = true
	report.Uptime = p.uptime(instance)
	return report, nil
}

// uptime derives uptime from the PID file mtime written at start.
func (p *Provider) uptime(instance string) string {
	info, err := os.Stat(p.pidFile(instance))
	if err != nil {
		return ""
	}
	return units.HumanDuration(time.Since(info.ModTime()))
}

// List returns every VM of this project, prefix-matched by name.
func (p *Provider) List(ctx context.Context) ([]types.InstanceInfo, error) {
	entries, err := p.listVMs(ctx)
	if err != nil {
		return nil, err
	}
	prefix := p.proj.Name + "-"
	var infos []types.InstanceInfo
	for _, e := range entries {
		if !strings.HasPrefix(e.Name, prefix) {
			continue
		}
		info := types.InstanceInfo{Name: e.Name, Backend: p.Name()}
		if p.isRunning(e.Name) {
			info.IsRunning = true
			info.Uptime = p.uptime(e.Name)
		}
		infos = append(infos, info)
	}
	p.pruneStaleRunState(infos)
	return infos, nil
}

// Stale PID files accumulate when the host reboots; listing prunes them
// so isRunning stays trustworthy.
func (p *Provider) pruneStaleRunState(instances []types.InstanceInfo) {
	for _, inst := range instances {
		if inst.IsRunning {
			continue
		}
		path := p.pidFile(inst.Name)
		if pid, err := utils.ReadPIDFile(path); err == nil && !utils.VerifyProcess(pid, tartComm) {
			_ = os.Remove(path)
		}
	}
}
