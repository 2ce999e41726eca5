package tart

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/burrowtool/burrow/provider"
)

func sshArgs(ip string) []string {
	return []string{
		"-o", "StrictHostKeyChecking=no",
		"-o", "UserKnownHostsFile=/dev/null",
		"-o", "LogLevel=ERROR",
		sshUser + "@" + ip,
	}
}

// SSH opens an interactive shell in the guest at the given workdir.
func (p *Provider) SSH(ctx context.Context, instance, workdir string) error {
	ip, err := p.requireIP(ctx, instance)
	if err != nil {
		return err
	}
	if workdir == "" {
		workdir = GuestWorkspace
	}
	args := append([]string{"-t"}, sshArgs(ip)...)
	args = append(args, fmt.Sprintf("cd %q && exec $SHELL -l", workdir))
	return p.run.RunInteractive(ctx, "ssh", args...)
}

// Exec runs a command in the guest workspace, streaming output.
func (p *Provider) Exec(ctx context.Context, instance string, cmd []string) error {
	if len(cmd) == 0 {
		return fmt.Errorf("exec %s: empty command", instance)
	}
	return p.sshExec(ctx, instance, cmd)
}

func (p *Provider) sshExec(ctx context.Context, instance string, cmd []string) error {
	ip, err := p.requireIP(ctx, instance)
	if err != nil {
		return err
	}
	quoted := make([]string, len(cmd))
	for i, c := range cmd {
		quoted[i] = strconv.Quote(c)
	}
	remote := fmt.Sprintf("cd %q && %s", GuestWorkspace, strings.Join(quoted, " "))
	args := append(sshArgs(ip), remote)
	return p.run.RunInteractive(ctx, "ssh", args...)
}

// Logs streams the VM serial log. tail <= 0 means the full log.
func (p *Provider) Logs(ctx context.Context, instance string, follow bool, tail int) error {
	exists, err := p.exists(ctx, instance)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%s: %w", instance, provider.ErrNotFound)
	}
	args := []string{"-n"}
	if tail > 0 {
		args = append(args, strconv.Itoa(tail))
	} else {
		args = append(args, "+1")
	}
	if follow {
		args = append(args, "-f")
	}
	args = append(args, p.serialLog(instance))
	return p.run.RunInteractive(ctx, "tail", args...)
}

func (p *Provider) requireIP(ctx context.Context, instance string) (string, error) {
	exists, err := p.exists(ctx, instance)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("%s: %w", instance, provider.ErrNotFound)
	}
	if !p.isRunning(instance) {
		return "", fmt.Errorf("%s is not running", instance)
	}
	return p.guestIP(ctx, instance)
}
