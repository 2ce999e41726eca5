// Package core holds the shared plumbing for command handlers: config
// access, project loading and backend variant construction.
package core

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/burrowtool/burrow/config"
	"github.com/burrowtool/burrow/provider"
	"github.com/burrowtool/burrow/provider/docker"
	"github.com/burrowtool/burrow/provider/tart"
	"github.com/burrowtool/burrow/runner"
	"github.com/burrowtool/burrow/service"
)

// BaseHandler provides shared config access for all command handlers.
type BaseHandler struct {
	ConfProvider func() *config.Config
}

// Init returns the command context and validated config in one call.
func (h BaseHandler) Init(cmd *cobra.Command) (context.Context, *config.Config, error) {
	conf, err := h.Conf()
	if err != nil {
		return nil, nil, err
	}
	return CommandContext(cmd), conf, nil
}

// Conf validates and returns the config. All handlers call this first.
func (h BaseHandler) Conf() (*config.Config, error) {
	if h.ConfProvider == nil {
		return nil, fmt.Errorf("config provider is nil")
	}
	conf := h.ConfProvider()
	if conf == nil {
		return nil, fmt.Errorf("config not initialized")
	}
	return conf, nil
}

// CommandContext returns command context, falling back to Background.
func CommandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

// LoadProject loads the project config from the current directory.
func LoadProject() (*config.ProjectConfig, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}
	return config.LoadProject(dir)
}

// InitProvider selects the backend variant named by the project config.
func InitProvider(conf *config.Config, proj *config.ProjectConfig, run runner.Runner) (provider.Provider, error) {
	switch proj.Backend {
	case "docker":
		return docker.New(conf, proj, run), nil
	case "tart":
		return tart.New(conf, proj, run), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", proj.Backend)
	}
}

// InitServiceManager builds the service manager with live-instance
// reconciliation wired to the given provider's listing.
func InitServiceManager(conf *config.Config, run runner.Runner, prov provider.Provider) *service.Manager {
	lister := func(ctx context.Context) (map[string]struct{}, error) {
		infos, err := prov.List(ctx)
		if err != nil {
			return nil, err
		}
		live := make(map[string]struct{}, len(infos))
		for _, info := range infos {
			live[info.Name] = struct{}{}
		}
		return live, nil
	}
	return service.NewManager(conf, run, service.WithConsumerLister(lister))
}
