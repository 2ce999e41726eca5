package temp

import (
	"context"
	"errors"
	"fmt"
	"time"

	units "github.com/docker/go-units"
	"github.com/spf13/cobra"

	cmdcore "github.com/burrowtool/burrow/cmd/core"
	"github.com/burrowtool/burrow/config"
	"github.com/burrowtool/burrow/provider"
	"github.com/burrowtool/burrow/runner"
	"github.com/burrowtool/burrow/temp"
	"github.com/burrowtool/burrow/types"
)

type Handler struct {
	cmdcore.BaseHandler
}

// initFromState rebuilds the provider from the recorded project
// directory, so temp subcommands work from anywhere.
func (h Handler) initFromState(cmd *cobra.Command) (context.Context, *temp.Manager, provider.Provider, *types.TempEnvState, error) {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	mgr := temp.NewManager(conf)
	state, err := mgr.Get(ctx)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	proj, err := config.LoadProject(state.ProjectDir)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	prov, err := cmdcore.InitProvider(conf, proj, runner.New())
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return ctx, mgr, prov, state, nil
}

func (h Handler) Create(cmd *cobra.Command, args []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	proj, err := cmdcore.LoadProject()
	if err != nil {
		return err
	}
	prov, err := cmdcore.InitProvider(conf, proj, runner.New())
	if err != nil {
		return err
	}

	mounts := make([]types.Mount, 0, len(args))
	for _, arg := range args {
		m, err := types.ParseMount(arg)
		if err != nil {
			return err
		}
		mounts = append(mounts, m)
	}

	state, err := temp.NewManager(conf).Create(ctx, prov, proj, mounts)
	if err != nil {
		return err
	}
	fmt.Printf("Temp environment %s is ready. Connect with: burrow temp ssh\n", state.Name)
	return nil
}

func (h Handler) SSH(cmd *cobra.Command, _ []string) error {
	ctx, _, prov, state, err := h.initFromState(cmd)
	if err != nil {
		return err
	}
	return prov.SSH(ctx, state.Name, "")
}

func (h Handler) Status(cmd *cobra.Command, _ []string) error {
	ctx, _, prov, state, err := h.initFromState(cmd)
	if err != nil {
		return err
	}

	status := "stopped"
	if tp, ok := provider.AsTempProvider(prov); ok {
		running, err := tp.IsRunning(ctx, state.Name)
		if err != nil {
			return err
		}
		if running {
			status = "running (unhealthy)"
			if healthy, _ := tp.CheckHealth(ctx, state.Name); healthy {
				status = "running"
			}
		}
	}

	fmt.Printf("%s [%s]: %s, created %s ago\n",
		state.Name, state.Backend, status, units.HumanDuration(sinceCreated(state)))
	if len(state.Mounts) == 0 {
		fmt.Println("No mounts.")
		return nil
	}
	for _, m := range state.Mounts {
		fmt.Printf("  %s\n", m)
	}
	return nil
}

func sinceCreated(s *types.TempEnvState) time.Duration {
	return time.Since(s.CreatedAt)
}

func (h Handler) Destroy(cmd *cobra.Command, _ []string) error {
	ctx, mgr, prov, state, err := h.initFromState(cmd)
	if err != nil {
		return err
	}
	if err := mgr.Destroy(ctx, prov); err != nil {
		return err
	}
	fmt.Printf("Destroyed %s.\n", state.Name)
	return nil
}

func (h Handler) Mount(cmd *cobra.Command, args []string) error {
	ctx, mgr, prov, _, err := h.initFromState(cmd)
	if err != nil {
		return err
	}
	m, err := types.ParseMount(args[0])
	if err != nil {
		return err
	}
	if err := mgr.Mount(ctx, prov, m); err != nil {
		return err
	}
	fmt.Printf("Mounted %s.\n", m)
	return nil
}

func (h Handler) Unmount(cmd *cobra.Command, args []string) error {
	ctx, mgr, prov, _, err := h.initFromState(cmd)
	if err != nil {
		return err
	}
	all, _ := cmd.Flags().GetBool("all")
	if !all && len(args) == 0 {
		return errors.New("pass a directory or --all")
	}
	source := ""
	if len(args) > 0 {
		source = args[0]
	}
	return mgr.Unmount(ctx, prov, source, all)
}

func (h Handler) Mounts(cmd *cobra.Command, _ []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	state, err := temp.NewManager(conf).Get(ctx)
	if err != nil {
		return err
	}
	if len(state.Mounts) == 0 {
		fmt.Println("No mounts.")
		return nil
	}
	for _, m := range state.Mounts {
		fmt.Printf("%s\n", m)
	}
	return nil
}
