package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	cmdcore "github.com/burrowtool/burrow/cmd/core"
	"github.com/burrowtool/burrow/config"
	"github.com/burrowtool/burrow/runner"
	svc "github.com/burrowtool/burrow/service"
)

type Handler struct {
	cmdcore.BaseHandler
}

// initManager builds a manager without instance reconciliation: operator
// commands act on the recorded state as-is.
func (h Handler) initManager(cmd *cobra.Command) (context.Context, *config.Config, *svc.Manager, error) {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	return ctx, conf, svc.NewManager(conf, runner.New()), nil
}

func (h Handler) List(cmd *cobra.Command, _ []string) error {
	ctx, _, mgr, err := h.initManager(cmd)
	if err != nil {
		return err
	}
	infos, err := mgr.List(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SERVICE\tSTATE\tPORT\tCONSUMERS")
	for _, info := range infos {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			info.Name, info.Status, info.Port, strings.Join(info.Consumers, ","))
	}
	w.Flush() //nolint:errcheck,gosec
	return nil
}

func (h Handler) Start(cmd *cobra.Command, args []string) error {
	ctx, conf, mgr, err := h.initManager(cmd)
	if err != nil {
		return err
	}
	name := args[0]
	err = mgr.Start(ctx, name, conf.Services[name])
	var herr *svc.HealthCheckTimeoutError
	if errors.As(err, &herr) {
		return fmt.Errorf("%s started but %v", name, herr)
	}
	if err != nil {
		return err
	}
	fmt.Printf("%s is running.\n", name)
	return nil
}

func (h Handler) Stop(cmd *cobra.Command, args []string) error {
	ctx, _, mgr, err := h.initManager(cmd)
	if err != nil {
		return err
	}
	if err := mgr.Stop(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("%s stopped.\n", args[0])
	return nil
}

func (h Handler) Status(cmd *cobra.Command, args []string) error {
	ctx, _, mgr, err := h.initManager(cmd)
	if err != nil {
		return err
	}
	probes := mgr.Statuses(ctx, args)
	for _, p := range probes {
		if p.Err != "" {
			return fmt.Errorf("%s: %s", p.Name, p.Err)
		}
		health := "unhealthy"
		if p.Healthy {
			health = "healthy"
		}
		fmt.Printf("%s: %s (port %d)\n", p.Name, health, p.Port)
	}
	return nil
}
