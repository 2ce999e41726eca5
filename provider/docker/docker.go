// Package docker implements the container-backed environment variant.
// Instances are compose services rendered into a tool-owned directory;
// one container per instance, workspace bind-mounted at /workspace.
package docker

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/burrowtool/burrow/config"
	"github.com/burrowtool/burrow/provider"
	"github.com/burrowtool/burrow/runner"
)

const (
	// GuestWorkspace is where the project directory appears in the guest.
	GuestWorkspace = "/workspace"

	labelManaged = "burrow.managed"
	labelProject = "burrow.project"
)

// Provider is the docker backend.
type Provider struct {
	conf *config.Config
	proj *config.ProjectConfig
	run  runner.Runner
}

var (
	_ provider.Provider        = (*Provider)(nil)
	_ provider.TempProvider    = (*Provider)(nil)
	_ provider.ContextProvider = (*Provider)(nil)
)

// New creates a docker Provider for one project.
func New(conf *config.Config, proj *config.ProjectConfig, run runner.Runner) *Provider {
	return &Provider{conf: conf, proj: proj, run: run}
}

func (p *Provider) Name() string { return "docker" }

// SyncDirectory is the guest-side workspace path.
func (p *Provider) SyncDirectory() string { return GuestWorkspace }

// ResolveInstance maps an optional short instance name to the full
// project-qualified one.
func (p *Provider) ResolveInstance(instance string) (string, error) {
	return provider.ResolveInstanceName(p.proj, instance)
}

// Available reports whether the docker daemon answers.
func (p *Provider) Available(ctx context.Context) error {
	if _, err := p.run.Run(ctx, "docker", "info", "--format", "{{.ServerVersion}}"); err != nil {
		return provider.ErrBackendUnavailable
	}
	return nil
}

// renderDir is the tool-owned directory holding the instance's compose file.
func (p *Provider) renderDir(instance string) string {
	return filepath.Join(p.conf.RenderDir(p.proj.Name), instance)
}

func (p *Provider) composePath(instance string) string {
	return filepath.Join(p.renderDir(instance), "docker-compose.yml")
}

// compose runs docker compose against the instance's rendered file.
func (p *Provider) compose(ctx context.Context, instance string, args ...string) (*runner.Output, error) {
	full := append([]string{"compose", "-f", p.composePath(instance), "-p", instance}, args...)
	return p.run.Run(ctx, "docker", full...)
}

func isNoSuchContainer(err error) bool {
	var cerr *runner.CommandError
	if !errors.As(err, &cerr) {
		return false
	}
	msg := strings.ToLower(cerr.Stderr)
	return strings.Contains(msg, "no such container") || strings.Contains(msg, "no such object")
}
