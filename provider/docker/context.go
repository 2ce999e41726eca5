package docker

import (
	"context"

	"github.com/burrowtool/burrow/provider"
)

// StartWithContext starts the instance after re-rendering its declaration
// from the updated global configuration, so config changes land without a
// destroy-and-recreate cycle.
func (p *Provider) StartWithContext(ctx context.Context, instance string, pctx *provider.Context) error {
	return p.start(ctx, instance, pctx)
}

// RestartWithContext is Stop followed by StartWithContext.
func (p *Provider) RestartWithContext(ctx context.Context, instance string, pctx *provider.Context) error {
	if err := p.Stop(ctx, instance); err != nil {
		return err
	}
	return p.start(ctx, instance, pctx)
}
