package docker

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/burrowtool/burrow/log"
	"github.com/burrowtool/burrow/provider"
	"github.com/burrowtool/burrow/types"
	"github.com/burrowtool/burrow/utils"
)

// Create renders the compose declaration and brings the container up, runs
// provisioning, then leaves the instance stopped in the Created state.
// With force an existing instance is destroyed first. A create interrupted
// by context cancellation cleans up back to Absent.
func (p *Provider) Create(ctx context.Context, instance string, force bool) error {
	logger := log.WithFunc("docker.Create")

	state, _, err := p.inspectState(ctx, instance)
	if err != nil {
		return err
	}
	if state != types.EnvStateAbsent {
		if !force {
			return fmt.Errorf("%s: %w", instance, provider.ErrAlreadyExists)
		}
		logger.Infof(ctx, "force: destroying existing %s", instance)
		if err := p.Destroy(ctx, instance); err != nil {
			return err
		}
	}

	if err := p.renderCompose(instance, nil, nil); err != nil {
		return err
	}

	cleanup := func() {
		// Best effort, detached from the cancelled context.
		dctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := p.compose(dctx, instance, "down", "--volumes"); err != nil {
			logger.Warnf(dctx, "cleanup %s: %v", instance, err)
		}
	}

	if _, err := p.compose(ctx, instance, "up", "-d"); err != nil {
		if ctx.Err() != nil {
			cleanup()
			return ctx.Err()
		}
		return fmt.Errorf("create %s: %w", instance, err)
	}
	if err := p.waitRunning(ctx, instance); err != nil {
		cleanup()
		return err
	}

	if err := p.provision(ctx, instance); err != nil {
		if ctx.Err() != nil {
			cleanup()
			return ctx.Err()
		}
		return err
	}

	if _, err := p.compose(ctx, instance, "stop"); err != nil {
		return fmt.Errorf("stop after create %s: %w", instance, err)
	}
	logger.Infof(ctx, "created %s", instance)
	return nil
}

// Start brings a Created or Stopped instance to Running. Already-running
// instances succeed with a warning. A missing compose file is re-rendered.
func (p *Provider) Start(ctx context.Context, instance string) error {
	return p.start(ctx, instance, nil)
}

func (p *Provider) start(ctx context.Context, instance string, pctx *provider.Context) error {
	logger := log.WithFunc("docker.Start")

	state, _, err := p.inspectState(ctx, instance)
	if err != nil {
		return err
	}
	if state == types.EnvStateAbsent {
		return fmt.Errorf("%s: %w", instance, provider.ErrNotFound)
	}
	if state == types.EnvStateRunning && pctx == nil {
		logger.Warnf(ctx, "%s already running", instance)
		return nil
	}

	if pctx != nil && pctx.GlobalConfig != nil {
		if err := p.renderCompose(instance, nil, pctx.GlobalConfig); err != nil {
			return err
		}
	} else if !utils.ValidFile(p.composePath(instance)) {
		if err := p.renderCompose(instance, nil, nil); err != nil {
			return err
		}
	}

	if _, err := p.compose(ctx, instance, "up", "-d"); err != nil {
		return fmt.Errorf("start %s: %w", instance, err)
	}
	return p.waitRunning(ctx, instance)
}

// Stop gracefully stops a running instance within the configured timeout.
// Stopping an already-stopped instance succeeds with a warning.
func (p *Provider) Stop(ctx context.Context, instance string) error {
	state, _, err := p.inspectState(ctx, instance)
	if err != nil {
		return err
	}
	switch state {
	case types.EnvStateAbsent:
		return fmt.Errorf("%s: %w", instance, provider.ErrNotFound)
	case types.EnvStateCreated, types.EnvStateStopped:
		log.WithFunc("docker.Stop").Warnf(ctx, "%s not running", instance)
		return nil
	}
	timeout := strconv.Itoa(p.conf.StopTimeoutSeconds)
	if _, err := p.run.Run(ctx, "docker", "stop", "-t", timeout, instance); err != nil {
		return fmt.Errorf("stop %s: %w", instance, err)
	}
	return nil
}

// Restart is stop followed by start.
func (p *Provider) Restart(ctx context.Context, instance string) error {
	if err := p.Stop(ctx, instance); err != nil {
		return err
	}
	return p.Start(ctx, instance)
}

// Destroy removes the container, its anonymous volumes and the rendered
// declaration. Destroying a nonexistent instance succeeds with a warning.
func (p *Provider) Destroy(ctx context.Context, instance string) error {
	logger := log.WithFunc("docker.Destroy")

	state, _, err := p.inspectState(ctx, instance)
	if err != nil {
		return err
	}
	if state == types.EnvStateAbsent {
		logger.Warnf(ctx, "%s does not exist", instance)
	} else if utils.ValidFile(p.composePath(instance)) {
		if _, err := p.compose(ctx, instance, "down", "--volumes"); err != nil {
			return fmt.Errorf("destroy %s: %w", instance, err)
		}
	} else {
		if _, err := p.run.Run(ctx, "docker", "rm", "-f", instance); err != nil && !isNoSuchContainer(err) {
			return fmt.Errorf("destroy %s: %w", instance, err)
		}
	}
	if err := os.RemoveAll(p.renderDir(instance)); err != nil {
		return fmt.Errorf("remove render dir for %s: %w", instance, err)
	}
	return nil
}

// Kill force-halts the instance: a short graceful window, then SIGKILL.
// The container itself is preserved.
func (p *Provider) Kill(ctx context.Context, instance string) error {
	state, _, err := p.inspectState(ctx, instance)
	if err != nil {
		return err
	}
	if state == types.EnvStateAbsent {
		return fmt.Errorf("%s: %w", instance, provider.ErrNotFound)
	}
	if state != types.EnvStateRunning {
		return nil
	}
	if _, err := p.run.Run(ctx, "docker", "stop", "-t", "5", instance); err == nil {
		return nil
	}
	if _, err := p.run.Run(ctx, "docker", "kill", instance); err != nil {
		return fmt.Errorf("kill %s: %w", instance, err)
	}
	return nil
}

// Provision re-runs the configured provisioning command. Valid whenever
// the instance exists; a stopped instance is started for the duration and
// stopped again after.
func (p *Provider) Provision(ctx context.Context, instance string) error {
	state, _, err := p.inspectState(ctx, instance)
	if err != nil {
		return err
	}
	if state == types.EnvStateAbsent {
		return fmt.Errorf("%s: %w", instance, provider.ErrNotFound)
	}

	if state != types.EnvStateRunning {
		if err := p.Start(ctx, instance); err != nil {
			return err
		}
		defer func() {
			if _, serr := p.compose(context.WithoutCancel(ctx), instance, "stop"); serr != nil {
				log.WithFunc("docker.Provision").Warnf(ctx, "stop after provision: %v", serr)
			}
		}()
	}
	return p.provision(ctx, instance)
}

func (p *Provider) provision(ctx context.Context, instance string) error {
	cmd := p.proj.Provision.Command
	if len(cmd) == 0 {
		return nil
	}
	args := append([]string{"exec", "-w", GuestWorkspace, instance}, cmd...)
	if err := p.run.RunInteractive(ctx, "docker", args...); err != nil {
		return fmt.Errorf("provision %s: %w", instance, err)
	}
	return nil
}

func (p *Provider) waitRunning(ctx context.Context, instance string) error {
	return utils.WaitFor(ctx, 60*time.Second, time.Second, func() (bool, error) {
		state, _, err := p.inspectState(ctx, instance)
		if err != nil {
			return false, err
		}
		return state == types.EnvStateRunning, nil
	})
}
