package service

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/burrowtool/burrow/runner"
)

// Prober checks whether a service answers on its host port.
type Prober interface {
	Probe(ctx context.Context, def Definition, port int) bool
}

// NewProber returns the default prober. Process probes go through the
// runner so they can be scripted in tests.
func NewProber(run runner.Runner) Prober {
	return &prober{run: run}
}

type prober struct {
	run runner.Runner
}

func (p *prober) Probe(ctx context.Context, def Definition, port int) bool {
	switch def.HealthKind {
	case HealthHTTP:
		return p.probeHTTP(ctx, def, port)
	case HealthProcess:
		return p.probeProcess(ctx, def)
	default:
		return p.probeTCP(ctx, port)
	}
}

func (p *prober) probeTCP(ctx context.Context, port int) bool {
	d := net.Dialer{Timeout: 2 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func (p *prober) probeHTTP(ctx context.Context, def Definition, port int) bool {
	url := fmt.Sprintf("http://127.0.0.1:%d%s", port, def.HealthPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	client := http.Client{Timeout: 2 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}

func (p *prober) probeProcess(ctx context.Context, def Definition) bool {
	out, err := p.run.Run(ctx, "docker", "inspect", "-f", "{{.State.Running}}", def.ContainerName())
	if err != nil {
		return false
	}
	return strings.TrimSpace(out.Stdout) == "true"
}
