// Package tart implements the full-VM environment variant on top of the
// tart CLI. VM processes are launched detached with a PID file under the
// per-instance run directory; the workspace is shared into the guest via
// a virtiofs directory mount.
package tart

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/burrowtool/burrow/config"
	"github.com/burrowtool/burrow/provider"
	"github.com/burrowtool/burrow/runner"
	"github.com/burrowtool/burrow/utils"
)

const (
	// GuestWorkspace is where the shared project directory appears in the
	// guest.
	GuestWorkspace = "/Volumes/My Shared Files/workspace"

	// sshUser is the default account baked into tart guest images.
	sshUser = "admin"

	tartComm = "tart"
)

// Provider is the tart backend.
type Provider struct {
	conf *config.Config
	proj *config.ProjectConfig
	run  runner.Runner
}

var _ provider.Provider = (*Provider)(nil)

// New creates a tart Provider for one project.
func New(conf *config.Config, proj *config.ProjectConfig, run runner.Runner) *Provider {
	return &Provider{conf: conf, proj: proj, run: run}
}

func (p *Provider) Name() string { return "tart" }

func (p *Provider) SyncDirectory() string { return GuestWorkspace }

// ResolveInstance maps an optional short instance name to the full
// project-qualified one.
func (p *Provider) ResolveInstance(instance string) (string, error) {
	return provider.ResolveInstanceName(p.proj, instance)
}

// Available reports whether the tart binary is usable.
func (p *Provider) Available(ctx context.Context) error {
	if _, err := p.run.Run(ctx, tartComm, "--version"); err != nil {
		return provider.ErrBackendUnavailable
	}
	return nil
}

func (p *Provider) runDir(instance string) string {
	return p.conf.VMRunDir(instance)
}

func (p *Provider) pidFile(instance string) string {
	return filepath.Join(p.runDir(instance), "tart.pid")
}

func (p *Provider) serialLog(instance string) string {
	return filepath.Join(p.runDir(instance), "serial.log")
}

// vmEntry is one row of tart list JSON output.
type vmEntry struct {
	Name    string `json:"Name"`
	Source  string `json:"Source"`
	State   string `json:"State"`
	Running bool   `json:"Running"`
}

func (p *Provider) listVMs(ctx context.Context) ([]vmEntry, error) {
	out, err := p.run.Run(ctx, tartComm, "list", "--format", "json")
	if err != nil {
		return nil, fmt.Errorf("tart list: %w", err)
	}
	var entries []vmEntry
	if err := json.Unmarshal([]byte(out.Stdout), &entries); err != nil {
		return nil, fmt.Errorf("parse tart list output: %w", err)
	}
	local := entries[:0]
	for _, e := range entries {
		if e.Source == "" || e.Source == "local" {
			local = append(local, e)
		}
	}
	return local, nil
}

func (p *Provider) exists(ctx context.Context, instance string) (bool, error) {
	entries, err := p.listVMs(ctx)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.Name == instance {
			return true, nil
		}
	}
	return false, nil
}

// isRunning trusts the PID file over tart's own state: the detached run
// process is what we supervise.
func (p *Provider) isRunning(instance string) bool {
	pid, err := utils.ReadPIDFile(p.pidFile(instance))
	if err != nil {
		return false
	}
	return utils.VerifyProcess(pid, tartComm)
}

// guestIP resolves the VM's address, retrying while DHCP settles.
func (p *Provider) guestIP(ctx context.Context, instance string) (string, error) {
	var ip string
	err := utils.WaitFor(ctx, time.Minute, 2*time.Second, func() (bool, error) {
		out, err := p.run.Run(ctx, tartComm, "ip", instance)
		if err != nil {
			return false, nil //nolint:nilerr // keep polling until timeout
		}
		ip = strings.TrimSpace(out.Stdout)
		return ip != "", nil
	})
	if err != nil {
		return "", fmt.Errorf("resolve IP for %s: %w", instance, err)
	}
	return ip, nil
}
