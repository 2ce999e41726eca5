package tart

import (
	"context"
	"fmt"
	"os"
	"time"

	units "github.com/docker/go-units"

	"github.com/burrowtool/burrow/log"
	"github.com/burrowtool/burrow/provider"
	"github.com/burrowtool/burrow/utils"
)

// Create clones the base image into a new VM and applies the project's
// CPU and memory settings. With force an existing VM is destroyed first.
// A create interrupted by cancellation deletes the half-cloned VM.
func (p *Provider) Create(ctx context.Context, instance string, force bool) error {
	logger := log.WithFunc("tart.Create")

	exists, err := p.exists(ctx, instance)
	if err != nil {
		return err
	}
	if exists {
		if !force {
			return fmt.Errorf("%s: %w", instance, provider.ErrAlreadyExists)
		}
		logger.Infof(ctx, "force: destroying existing %s", instance)
		if err := p.Destroy(ctx, instance); err != nil {
			return err
		}
	}

	if _, err := p.run.Run(ctx, tartComm, "clone", p.proj.Image, instance); err != nil {
		if ctx.Err() != nil {
			p.cleanupClone(instance)
			return ctx.Err()
		}
		return fmt.Errorf("clone %s: %w", instance, err)
	}

	if err := p.applyResources(ctx, instance); err != nil {
		p.cleanupClone(instance)
		return err
	}
	if err := utils.EnsureDirs(p.runDir(instance)); err != nil {
		return err
	}

	if len(p.proj.Provision.Command) > 0 {
		if err := p.provisionStopped(ctx, instance); err != nil {
			if ctx.Err() != nil {
				p.cleanupClone(instance)
				return ctx.Err()
			}
			return err
		}
	}
	logger.Infof(ctx, "created %s", instance)
	return nil
}

func (p *Provider) cleanupClone(instance string) {
	dctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := p.run.Run(dctx, tartComm, "delete", instance); err != nil {
		log.WithFunc("tart.cleanupClone").Warnf(dctx, "delete %s: %v", instance, err)
	}
}

func (p *Provider) applyResources(ctx context.Context, instance string) error {
	args := []string{"set", instance}
	if p.proj.CPUs > 0 {
		args = append(args, "--cpu", fmt.Sprint(p.proj.CPUs))
	}
	if mem := p.proj.MemoryBytes(); mem > 0 {
		args = append(args, "--memory", fmt.Sprint(mem/units.MiB))
	}
	if len(args) == 2 {
		return nil
	}
	if _, err := p.run.Run(ctx, tartComm, args...); err != nil {
		return fmt.Errorf("set resources for %s: %w", instance, err)
	}
	return nil
}

// provisionStopped boots the fresh VM, runs provisioning over SSH and
// shuts it back down, leaving the instance in the Created state.
func (p *Provider) provisionStopped(ctx context.Context, instance string) error {
	if err := p.Start(ctx, instance); err != nil {
		return err
	}
	perr := p.Provision(ctx, instance)
	if serr := p.Stop(ctx, instance); serr != nil && perr == nil {
		perr = serr
	}
	return perr
}

// Start launches the VM process detached with the workspace shared into
// the guest, records its PID and waits for the guest to acquire an
// address. Already-running instances succeed with a warning.
func (p *Provider) Start(ctx context.Context, instance string) error {
	logger := log.WithFunc("tart.Start")

	exists, err := p.exists(ctx, instance)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%s: %w", instance, provider.ErrNotFound)
	}
	if p.isRunning(instance) {
		logger.Warnf(ctx, "%s already running", instance)
		return nil
	}

	if err := utils.EnsureDirs(p.runDir(instance)); err != nil {
		return err
	}
	args := []string{
		"run", instance,
		"--no-graphics",
		fmt.Sprintf("--dir=workspace:%s", p.proj.Dir),
	}
	for _, m := range p.proj.Mounts {
		args = append(args, "--dir="+m)
	}
	pid, err := p.run.StartDetached(tartComm, p.serialLog(instance), args...)
	if err != nil {
		return fmt.Errorf("start %s: %w", instance, err)
	}
	if err := utils.WritePIDFile(p.pidFile(instance), pid); err != nil {
		return err
	}

	if _, err := p.guestIP(ctx, instance); err != nil {
		return fmt.Errorf("start %s: %w", instance, err)
	}
	logger.Infof(ctx, "started %s (pid %d)", instance, pid)
	return nil
}

// Stop asks the guest to shut down and falls back to terminating the VM
// process within the configured timeout. Stopping a stopped instance
// succeeds with a warning.
func (p *Provider) Stop(ctx context.Context, instance string) error {
	logger := log.WithFunc("tart.Stop")

	exists, err := p.exists(ctx, instance)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%s: %w", instance, provider.ErrNotFound)
	}
	if !p.isRunning(instance) {
		logger.Warnf(ctx, "%s not running", instance)
		return nil
	}

	grace := time.Duration(p.conf.StopTimeoutSeconds) * time.Second
	if _, err := p.run.Run(ctx, tartComm, "stop", "--timeout", fmt.Sprint(p.conf.StopTimeoutSeconds), instance); err != nil {
		logger.Warnf(ctx, "tart stop %s: %v, terminating process", instance, err)
		pid, perr := utils.ReadPIDFile(p.pidFile(instance))
		if perr == nil && utils.VerifyProcess(pid, tartComm) {
			if terr := utils.TerminateProcess(pid, grace); terr != nil {
				return fmt.Errorf("terminate %s: %w", instance, terr)
			}
		}
	}
	if err := os.Remove(p.pidFile(instance)); err != nil && !os.IsNotExist(err) {
		return err
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

// Destroy stops the VM if needed and deletes it together with its run
// directory. Destroying a nonexistent instance succeeds with a warning.
func (p *Provider) Destroy(ctx context.Context, instance string) error {
	logger := log.WithFunc("tart.Destroy")

	exists, err := p.exists(ctx, instance)
	if err != nil {
		return err
	}
	if !exists {
		logger.Warnf(ctx, "%s does not exist", instance)
	} else {
		if p.isRunning(instance) {
			if err := p.Stop(ctx, instance); err != nil {
				return err
			}
		}
		if _, err := p.run.Run(ctx, tartComm, "delete", instance); err != nil {
			return fmt.Errorf("delete %s: %w", instance, err)
		}
	}
	if err := os.RemoveAll(p.runDir(instance)); err != nil {
		return fmt.Errorf("remove run dir for %s: %w", instance, err)
	}
	return nil
}

// Kill is not supported: the only hard stop tart offers destroys the VM
// process state, and degrading to destroy would violate the contract.
func (p *Provider) Kill(ctx context.Context, instance string) error {
	return fmt.Errorf("kill %s: %w (use destroy)", instance, provider.ErrUnsupported)
}

// Provision re-runs the configured provisioning command over SSH. The
// instance must be running.
func (p *Provider) Provision(ctx context.Context, instance string) error {
	cmd := p.proj.Provision.Command
	if len(cmd) == 0 {
		return nil
	}
	if !p.isRunning(instance) {
		return fmt.Errorf("provision %s: instance is not running", instance)
	}
	return p.sshExec(ctx, instance, cmd)
}
