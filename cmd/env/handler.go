package env

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	cmdcore "github.com/burrowtool/burrow/cmd/core"
	"github.com/burrowtool/burrow/config"
	"github.com/burrowtool/burrow/log"
	"github.com/burrowtool/burrow/ports"
	"github.com/burrowtool/burrow/provider"
	"github.com/burrowtool/burrow/runner"
	"github.com/burrowtool/burrow/service"
	"github.com/burrowtool/burrow/types"
)

type Handler struct {
	cmdcore.BaseHandler
}

// env bundles everything a lifecycle handler needs for one invocation.
type env struct {
	ctx  context.Context
	conf *config.Config
	proj *config.ProjectConfig
	prov provider.Provider
	mgr  *service.Manager
	run  runner.Runner
}

func (h Handler) initEnv(cmd *cobra.Command) (*env, error) {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return nil, err
	}
	proj, err := cmdcore.LoadProject()
	if err != nil {
		return nil, err
	}
	run := runner.New()
	prov, err := cmdcore.InitProvider(conf, proj, run)
	if err != nil {
		return nil, err
	}
	return &env{
		ctx:  ctx,
		conf: conf,
		proj: proj,
		prov: prov,
		mgr:  cmdcore.InitServiceManager(conf, run, prov),
		run:  run,
	}, nil
}

// resolveExisting maps an optional argument to a full instance name,
// falling back to partial matching against the backend listing.
func (e *env) resolveExisting(arg string) (string, error) {
	instance, err := e.prov.ResolveInstance(arg)
	if err != nil {
		return "", err
	}
	if arg == "" {
		return instance, nil
	}
	infos, err := e.prov.List(e.ctx)
	if err != nil {
		return instance, nil //nolint:nilerr // listing is best effort here
	}
	for _, info := range infos {
		if info.Name == instance {
			return instance, nil
		}
	}
	return provider.MatchInstance(arg, infos)
}

func argInstance(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func (h Handler) Create(cmd *cobra.Command, args []string) error {
	e, err := h.initEnv(cmd)
	if err != nil {
		return err
	}
	instance, err := e.prov.ResolveInstance(argInstance(args))
	if err != nil {
		return err
	}
	force, _ := cmd.Flags().GetBool("force")
	return h.createEnv(e, instance, force)
}

// createEnv reserves the project's ports, brings the enabled services up
// with the new instance as consumer, then creates the environment.
func (h Handler) createEnv(e *env, instance string, force bool) error {
	logger := log.WithFunc("cmd.create")

	reg := ports.NewRegistry(e.conf)
	rng, err := reg.Allocate(e.ctx, e.proj.Name, e.proj.Dir, e.proj.PortWidth)
	if err != nil {
		return err
	}
	logger.Infof(e.ctx, "project %s holds ports %s", e.proj.Name, rng)

	if err := h.acquireServices(e, instance); err != nil {
		return err
	}

	if err := e.prov.Create(e.ctx, instance, force); err != nil {
		return err
	}
	logger.Infof(e.ctx, "created %s, start with: burrow start", instance)
	return nil
}

func (h Handler) Start(cmd *cobra.Command, args []string) error {
	e, err := h.initEnv(cmd)
	if err != nil {
		return err
	}
	instance, err := e.resolveExisting(argInstance(args))
	if err != nil {
		return err
	}

	if err := h.acquireServices(e, instance); err != nil {
		return err
	}

	refresh, _ := cmd.Flags().GetBool("refresh-config")
	if refresh {
		return startWithRefresh(e, instance, false)
	}
	return e.prov.Start(e.ctx, instance)
}

func (h Handler) Restart(cmd *cobra.Command, args []string) error {
	e, err := h.initEnv(cmd)
	if err != nil {
		return err
	}
	instance, err := e.resolveExisting(argInstance(args))
	if err != nil {
		return err
	}

	refresh, _ := cmd.Flags().GetBool("refresh-config")
	if refresh {
		return startWithRefresh(e, instance, true)
	}
	return e.prov.Restart(e.ctx, instance)
}

// startWithRefresh applies updated global configuration through the
// context-aware capability when the backend has one, and falls back to a
// plain start with a warning when it does not.
func startWithRefresh(e *env, instance string, restart bool) error {
	logger := log.WithFunc("cmd.start")
	pctx := &provider.Context{GlobalConfig: e.conf}
	if cp, ok := provider.AsContextProvider(e.prov); ok {
		if restart {
			return cp.RestartWithContext(e.ctx, instance, pctx)
		}
		return cp.StartWithContext(e.ctx, instance, pctx)
	}
	logger.Warnf(e.ctx, "backend %s cannot refresh config in place, starting as-is", e.prov.Name())
	if restart {
		return e.prov.Restart(e.ctx, instance)
	}
	return e.prov.Start(e.ctx, instance)
}

// acquireServices starts every enabled service with this instance as
// consumer. Health timeouts degrade to warnings so one slow service does
// not block the environment.
func (h Handler) acquireServices(e *env, instance string) error {
	logger := log.WithFunc("cmd.acquireServices")
	for _, name := range e.proj.EnabledServices(e.conf) {
		setting := e.proj.ServiceSettingFor(e.conf, name)
		err := e.mgr.Acquire(e.ctx, name, instance, setting)
		if err == nil {
			continue
		}
		var herr *service.HealthCheckTimeoutError
		if errors.As(err, &herr) {
			logger.Warnf(e.ctx, "%v, continuing without it", herr)
			continue
		}
		return err
	}
	return nil
}

func (h Handler) Stop(cmd *cobra.Command, args []string) error {
	e, err := h.initEnv(cmd)
	if err != nil {
		return err
	}
	instance, err := e.resolveExisting(argInstance(args))
	if err != nil {
		return err
	}
	if err := e.prov.Stop(e.ctx, instance); err != nil {
		return err
	}
	return e.mgr.ReleaseAll(e.ctx, instance)
}

func (h Handler) Destroy(cmd *cobra.Command, args []string) error {
	e, err := h.initEnv(cmd)
	if err != nil {
		return err
	}
	return h.destroyEnv(e, argInstance(args))
}

// destroyEnv resolves and destroys an instance. A name that matches
// nothing succeeds with a warning so cleanup scripts can re-run.
func (h Handler) destroyEnv(e *env, arg string) error {
	instance, err := e.resolveExisting(arg)
	if errors.Is(err, provider.ErrNotFound) {
		log.WithFunc("cmd.destroy").Warnf(e.ctx, "%s: nothing to destroy", arg)
		return nil
	}
	if err != nil {
		return err
	}
	if err := e.prov.Destroy(e.ctx, instance); err != nil {
		return err
	}
	return e.mgr.ReleaseAll(e.ctx, instance)
}

func (h Handler) Kill(cmd *cobra.Command, args []string) error {
	e, err := h.initEnv(cmd)
	if err != nil {
		return err
	}
	instance, err := e.resolveExisting(argInstance(args))
	if err != nil {
		return err
	}
	return e.prov.Kill(e.ctx, instance)
}

func (h Handler) Provision(cmd *cobra.Command, args []string) error {
	e, err := h.initEnv(cmd)
	if err != nil {
		return err
	}
	instance, err := e.resolveExisting(argInstance(args))
	if err != nil {
		return err
	}
	if err := h.acquireServices(e, instance); err != nil {
		return err
	}
	return e.prov.Provision(e.ctx, instance)
}

func (h Handler) SSH(cmd *cobra.Command, args []string) error {
	e, err := h.initEnv(cmd)
	if err != nil {
		return err
	}
	instance, err := e.resolveExisting(argInstance(args))
	if err != nil {
		return err
	}
	workdir, _ := cmd.Flags().GetString("workdir")
	return e.prov.SSH(e.ctx, instance, workdir)
}

func (h Handler) Exec(cmd *cobra.Command, args []string) error {
	e, err := h.initEnv(cmd)
	if err != nil {
		return err
	}
	target, _ := cmd.Flags().GetString("instance")
	instance, err := e.resolveExisting(target)
	if err != nil {
		return err
	}
	return e.prov.Exec(e.ctx, instance, args)
}

func (h Handler) Logs(cmd *cobra.Command, args []string) error {
	e, err := h.initEnv(cmd)
	if err != nil {
		return err
	}
	instance, err := e.resolveExisting(argInstance(args))
	if err != nil {
		return err
	}
	follow, _ := cmd.Flags().GetBool("follow")
	tail, _ := cmd.Flags().GetInt("tail")
	return e.prov.Logs(e.ctx, instance, follow, tail)
}

func (h Handler) Status(cmd *cobra.Command, args []string) error {
	e, err := h.initEnv(cmd)
	if err != nil {
		return err
	}
	instance, err := e.resolveExisting(argInstance(args))
	if err != nil {
		return err
	}
	report, err := e.prov.StatusReport(e.ctx, instance)
	if err != nil {
		return err
	}
	if report.IsRunning {
		report.Services = h.serviceRows(e)
	}
	printReport(report)
	if report.IsRunning {
		fmt.Printf("  workspace: %s -> %s\n", e.proj.Dir, e.prov.SyncDirectory())
	}
	return nil
}

func (h Handler) serviceRows(e *env) []types.ServiceStatus {
	probes := e.mgr.Statuses(e.ctx, e.proj.EnabledServices(e.conf))
	rows := make([]types.ServiceStatus, 0, len(probes))
	for _, p := range probes {
		rows = append(rows, types.ServiceStatus{
			Name:      p.Name,
			IsRunning: p.Healthy,
			Port:      p.Port,
			Error:     p.Err,
		})
	}
	return rows
}

func printReport(r *types.StatusReport) {
	state := "stopped"
	if r.IsRunning {
		state = "running"
		if r.Uptime != "" {
			state += " (up " + r.Uptime + ")"
		}
	}
	fmt.Printf("%s [%s]: %s\n", r.Name, r.Backend, state)
	if !r.IsRunning {
		return
	}
	if r.Resources != (types.ResourceUsage{}) {
		fmt.Printf("  cpu: %.1f%%  memory: %d/%d MB\n",
			r.Resources.CPUPercent, r.Resources.MemoryUsedMB, r.Resources.MemoryLimitMB)
	}
	for _, s := range r.Services {
		health := "unhealthy"
		if s.IsRunning {
			health = "healthy"
		}
		if s.Error != "" {
			health = s.Error
		}
		fmt.Printf("  service %s: %s (port %d)\n", s.Name, health, s.Port)
	}
}

func (h Handler) List(cmd *cobra.Command, _ []string) error {
	e, err := h.initEnv(cmd)
	if err != nil {
		return err
	}
	infos, err := e.prov.List(e.ctx)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("No environments found.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tBACKEND\tSTATE\tUPTIME")
	for _, info := range infos {
		state := "stopped"
		if info.IsRunning {
			state = "running"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", info.Name, info.Backend, state, info.Uptime)
	}
	w.Flush() //nolint:errcheck,gosec
	return nil
}
