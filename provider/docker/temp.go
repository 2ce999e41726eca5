package docker

import (
	"context"
	"fmt"
	"strings"

	"github.com/burrowtool/burrow/log"
	"github.com/burrowtool/burrow/types"
)

// UpdateMounts rewrites the managed mount region of the instance's compose
// file to match state, then applies it. Compose recreates the container
// only when the declaration actually changed, so an unchanged mount set is
// a cheap no-op.
func (p *Provider) UpdateMounts(ctx context.Context, state *types.TempEnvState) error {
	if err := p.rewriteMounts(state.Name, state.Mounts); err != nil {
		return err
	}
	if _, err := p.compose(ctx, state.Name, "up", "-d"); err != nil {
		return fmt.Errorf("apply mounts for %s: %w", state.Name, err)
	}
	return p.waitRunning(ctx, state.Name)
}

// RecreateWithMounts tears the container down (named volumes preserved)
// and brings it back up with the full mount set re-rendered.
func (p *Provider) RecreateWithMounts(ctx context.Context, state *types.TempEnvState) error {
	logger := log.WithFunc("docker.RecreateWithMounts")

	if _, err := p.compose(ctx, state.Name, "down"); err != nil {
		logger.Warnf(ctx, "down %s: %v", state.Name, err)
	}
	if err := p.renderCompose(state.Name, state.Mounts, nil); err != nil {
		return err
	}
	if _, err := p.compose(ctx, state.Name, "up", "-d"); err != nil {
		return fmt.Errorf("recreate %s: %w", state.Name, err)
	}
	return p.waitRunning(ctx, state.Name)
}

// IsRunning reports whether the named environment's container is running.
func (p *Provider) IsRunning(ctx context.Context, name string) (bool, error) {
	state, _, err := p.inspectState(ctx, name)
	if err != nil {
		return false, err
	}
	return state == types.EnvStateRunning, nil
}

// CheckHealth verifies the container accepts commands, not just that the
// daemon reports it running.
func (p *Provider) CheckHealth(ctx context.Context, name string) (bool, error) {
	running, err := p.IsRunning(ctx, name)
	if err != nil || !running {
		return false, err
	}
	out, err := p.run.Run(ctx, "docker", "exec", name, "echo", "ok")
	if err != nil {
		return false, nil
	}
	return strings.TrimSpace(out.Stdout) == "ok", nil
}
