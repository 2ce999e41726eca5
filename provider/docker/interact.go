package docker

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/term"

	"github.com/burrowtool/burrow/provider"
	"github.com/burrowtool/burrow/types"
)

// SSH opens an interactive shell in the instance at the given workdir.
func (p *Provider) SSH(ctx context.Context, instance, workdir string) error {
	if err := p.requireRunning(ctx, instance); err != nil {
		return err
	}
	if workdir == "" {
		workdir = GuestWorkspace
	}
	args := []string{"exec", "-i"}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		args = append(args, "-t")
	}
	args = append(args, "-w", workdir, instance, "/bin/bash", "-l")
	return p.run.RunInteractive(ctx, "docker", args...)
}

// Exec runs a command in the instance's workspace, streaming output.
func (p *Provider) Exec(ctx context.Context, instance string, cmd []string) error {
	if len(cmd) == 0 {
		return fmt.Errorf("exec %s: empty command", instance)
	}
	if err := p.requireRunning(ctx, instance); err != nil {
		return err
	}
	args := append([]string{"exec", "-w", GuestWorkspace, instance}, cmd...)
	return p.run.RunInteractive(ctx, "docker", args...)
}

// Logs streams container logs. tail <= 0 means the full log.
func (p *Provider) Logs(ctx context.Context, instance string, follow bool, tail int) error {
	args := []string{"logs"}
	if follow {
		args = append(args, "-f")
	}
	if tail > 0 {
		args = append(args, "--tail", strconv.Itoa(tail))
	}
	args = append(args, instance)
	return p.run.RunInteractive(ctx, "docker", args...)
}

func (p *Provider) requireRunning(ctx context.Context, instance string) error {
	state, _, err := p.inspectState(ctx, instance)
	if err != nil {
		return err
	}
	switch state {
	case types.EnvStateAbsent:
		return fmt.Errorf("%s: %w", instance, provider.ErrNotFound)
	case types.EnvStateRunning:
		return nil
	default:
		return fmt.Errorf("%s is not running", instance)
	}
}
