// Package service supervises host-wide shared services. Services are
// reference counted: environments register as consumers on acquire and
// the backing container is torn down when the last consumer releases.
package service

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/burrowtool/burrow/config"
	"github.com/burrowtool/burrow/log"
	"github.com/burrowtool/burrow/runner"
	storejson "github.com/burrowtool/burrow/storage/json"
)

// Status is the persisted lifecycle state of one shared service.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusFailing  Status = "failing"
)

// State is the persisted record for one service.
type State struct {
	Status    Status   `json:"status"`
	Port      int      `json:"port"`
	Consumers []string `json:"consumers,omitempty"`
}

type stateIndex struct {
	Services map[string]*State `json:"services"`
}

// Init implements storage.Initer.
func (idx *stateIndex) Init() {
	if idx.Services == nil {
		idx.Services = make(map[string]*State)
	}
}

func (idx *stateIndex) get(name string) *State {
	st, ok := idx.Services[name]
	if !ok {
		st = &State{Status: StatusStopped}
		idx.Services[name] = st
	}
	return st
}

// HealthCheckTimeoutError reports a service that launched but never
// answered its probe within the per-service attempt budget. It is
// non-fatal to environment startup: the service is left Failing and the
// caller reports a warning.
type HealthCheckTimeoutError struct {
	Service  string
	Attempts int
	Waited   time.Duration
}

func (e *HealthCheckTimeoutError) Error() string {
	return fmt.Sprintf("service %s not healthy after %d attempts (%s)", e.Service, e.Attempts, e.Waited)
}

// ConsumerLister returns the set of live environment instances. Recorded
// consumers absent from this set are pruned before refcount decisions, so
// a crashed environment cannot pin a service forever.
type ConsumerLister func(ctx context.Context) (map[string]struct{}, error)

// Info is one row of the service status listing.
type Info struct {
	Name      string
	Status    Status
	Port      int
	Consumers []string
}

// Manager supervises shared services. Same-process concurrent acquires
// of one service collapse into a single launch via singleflight;
// cross-process launches are serialized by the flock-guarded state store.
type Manager struct {
	conf   *config.Config
	run    runner.Runner
	defs   map[string]Definition
	store  *storejson.Store[stateIndex]
	probe  Prober
	flight singleflight.Group
	sleep  func(ctx context.Context, d time.Duration) error
	lister ConsumerLister
}

// Option configures a Manager.
type Option func(*Manager)

// WithProber replaces the default health prober.
func WithProber(p Prober) Option { return func(m *Manager) { m.probe = p } }

// WithSleep replaces the health-loop sleep, so tests run without waiting.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(m *Manager) { m.sleep = fn }
}

// WithConsumerLister wires live-instance reconciliation.
func WithConsumerLister(l ConsumerLister) Option { return func(m *Manager) { m.lister = l } }

// WithDefinitions replaces the built-in catalog.
func WithDefinitions(defs map[string]Definition) Option {
	return func(m *Manager) { m.defs = defs }
}

// NewManager creates a Manager backed by the configured state store.
func NewManager(conf *config.Config, run runner.Runner, opts ...Option) *Manager {
	m := &Manager{
		conf:  conf,
		run:   run,
		defs:  Builtins(),
		store: storejson.New[stateIndex](conf.ServiceStateLock(), conf.ServiceStateFile()),
		sleep: sleepCtx,
	}
	m.probe = NewProber(run)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Definition returns the catalog entry for a service name.
func (m *Manager) Definition(name string) (Definition, bool) {
	def, ok := m.defs[name]
	return def, ok
}

// Acquire registers consumer on the service and makes sure it is running.
// The consumer is registered even when the health budget is exhausted, so
// a later release still converges the refcount; in that case Acquire
// returns a HealthCheckTimeoutError and leaves the service Failing.
func (m *Manager) Acquire(ctx context.Context, name, consumer string, setting config.ServiceSetting) error {
	def, ok := m.defs[name]
	if !ok {
		return fmt.Errorf("unknown service %q", name)
	}
	port := setting.Port
	if port == 0 {
		port = def.Port
	}

	if err := m.addConsumer(ctx, name, consumer, port); err != nil {
		return err
	}

	_, err, _ := m.flight.Do(name, func() (any, error) {
		return nil, m.ensureRunning(ctx, def, setting, port)
	})
	return err
}

// Start makes sure the service is running without registering a consumer.
func (m *Manager) Start(ctx context.Context, name string, setting config.ServiceSetting) error {
	def, ok := m.defs[name]
	if !ok {
		return fmt.Errorf("unknown service %q", name)
	}
	port := setting.Port
	if port == 0 {
		port = def.Port
	}
	_, err, _ := m.flight.Do(name, func() (any, error) {
		return nil, m.ensureRunning(ctx, def, setting, port)
	})
	return err
}

func (m *Manager) addConsumer(ctx context.Context, name, consumer string, port int) error {
	if consumer == "" {
		return nil
	}
	return m.store.Update(ctx, func(idx *stateIndex) error {
		st := idx.get(name)
		m.pruneConsumers(ctx, st)
		if !slices.Contains(st.Consumers, consumer) {
			st.Consumers = append(st.Consumers, consumer)
			sort.Strings(st.Consumers)
		}
		st.Port = port
		return nil
	})
}

// pruneConsumers drops recorded consumers that no longer correspond to a
// live environment instance.
func (m *Manager) pruneConsumers(ctx context.Context, st *State) {
	if m.lister == nil || len(st.Consumers) == 0 {
		return
	}
	live, err := m.lister(ctx)
	if err != nil {
		log.WithFunc("service.pruneConsumers").Warnf(ctx, "list environments: %v", err)
		return
	}
	kept := st.Consumers[:0]
	for _, c := range st.Consumers {
		if _, ok := live[c]; ok {
			kept = append(kept, c)
		}
	}
	st.Consumers = kept
}

// ensureRunning converges the service to Running. The status read and the
// Starting write are separate lock sections, so two processes may both
// decide to launch; the container name is host-unique and launch removes
// any leftover holder of it first, so concurrent launchers still converge
// on a single container.
func (m *Manager) ensureRunning(ctx context.Context, def Definition, setting config.ServiceSetting, port int) error {
	logger := log.WithFunc("service.ensureRunning")

	status, err := m.status(ctx, def.Name)
	if err != nil {
		return err
	}
	switch status {
	case StatusRunning:
		// Trust-but-verify: the record survives crashes the container
		// does not.
		if m.containerRunning(ctx, def) {
			return nil
		}
		logger.Warnf(ctx, "%s recorded running but container is gone, relaunching", def.Name)
	case StatusStarting:
		done, err := m.waitForPeer(ctx, def)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		logger.Warnf(ctx, "%s stuck starting, taking over launch", def.Name)
	}

	if err := m.setStatus(ctx, def.Name, StatusStarting); err != nil {
		return err
	}
	if err := m.launch(ctx, def, setting, port); err != nil {
		if serr := m.setStatus(ctx, def.Name, StatusFailing); serr != nil {
			logger.Errorf(ctx, "record failure for %s: %v", def.Name, serr)
		}
		return fmt.Errorf("launch %s: %w", def.Name, err)
	}

	if err := m.awaitHealthy(ctx, def, port); err != nil {
		if serr := m.setStatus(ctx, def.Name, StatusFailing); serr != nil {
			logger.Errorf(ctx, "record failure for %s: %v", def.Name, serr)
		}
		return err
	}
	return m.setStatus(ctx, def.Name, StatusRunning)
}

// waitForPeer waits out another process already launching the service.
// Returns true when the peer brought it to Running, false when the record
// looks stale and this process should take over.
func (m *Manager) waitForPeer(ctx context.Context, def Definition) (bool, error) {
	bound := time.Duration(def.HealthAttempts)*def.HealthInterval + 5*time.Second
	deadline := time.Now().Add(bound)
	for time.Now().Before(deadline) {
		if err := m.sleep(ctx, def.HealthInterval); err != nil {
			return false, err
		}
		status, err := m.status(ctx, def.Name)
		if err != nil {
			return false, err
		}
		switch status {
		case StatusRunning:
			return true, nil
		case StatusFailing, StatusStopped:
			return false, nil
		}
	}
	return false, nil
}

func (m *Manager) launch(ctx context.Context, def Definition, setting config.ServiceSetting, port int) error {
	name := def.ContainerName()

	// Leftovers from a previous run keep the name reserved.
	_, _ = m.run.Run(ctx, "docker", "rm", "-f", name)

	args := []string{
		"run", "-d",
		"--name", name,
		"--restart", "unless-stopped",
		"-p", fmt.Sprintf("127.0.0.1:%d:%d", port, def.ContainerPort),
	}

	if def.GuestDataPath != "" {
		dataDir := setting.DataDir
		if dataDir == "" {
			dataDir = m.conf.ServiceDataDir(def.Name)
		}
		if err := os.MkdirAll(dataDir, 0o750); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		args = append(args, "-v", dataDir+":"+def.GuestDataPath)
	}

	var password string
	if def.PasswordEnv != "" || slices.Contains(def.ExtraArgs, "%PASSWORD%") {
		var err error
		password, err = GetOrGeneratePassword(m.conf.SecretsDir(), def.Name)
		if err != nil {
			return err
		}
	}
	if def.PasswordEnv != "" {
		args = append(args, "-e", def.PasswordEnv+"="+password)
	}

	args = append(args, def.ImageRef(setting.Version))
	for _, a := range def.ExtraArgs {
		args = append(args, strings.ReplaceAll(a, "%PASSWORD%", password))
	}

	if _, err := m.run.Run(ctx, "docker", args...); err != nil {
		return err
	}
	log.WithFunc("service.launch").Infof(ctx, "started %s on port %d", def.DisplayName, port)
	return nil
}

// awaitHealthy polls the service probe up to the definition's attempt
// budget, sleeping one interval before each attempt.
func (m *Manager) awaitHealthy(ctx context.Context, def Definition, port int) error {
	logger := log.WithFunc("service.awaitHealthy")
	start := time.Now()
	for attempt := 1; attempt <= def.HealthAttempts; attempt++ {
		if err := m.sleep(ctx, def.HealthInterval); err != nil {
			return err
		}
		if m.probe.Probe(ctx, def, port) {
			logger.Debugf(ctx, "%s healthy after %d attempt(s)", def.Name, attempt)
			return nil
		}
	}
	return &HealthCheckTimeoutError{
		Service:  def.Name,
		Attempts: def.HealthAttempts,
		Waited:   time.Since(start).Round(time.Millisecond),
	}
}

// Release removes consumer from the service and tears the backing
// container down when no live consumers remain. Releasing an unknown
// consumer is a no-op.
func (m *Manager) Release(ctx context.Context, name, consumer string) error {
	def, ok := m.defs[name]
	if !ok {
		return fmt.Errorf("unknown service %q", name)
	}
	return m.store.Update(ctx, func(idx *stateIndex) error {
		st := idx.get(name)
		st.Consumers = slices.DeleteFunc(st.Consumers, func(c string) bool { return c == consumer })
		m.pruneConsumers(ctx, st)
		if len(st.Consumers) > 0 || st.Status == StatusStopped {
			return nil
		}
		if err := m.teardown(ctx, def); err != nil {
			return err
		}
		st.Status = StatusStopped
		return nil
	})
}

// ReleaseAll removes consumer from every recorded service.
func (m *Manager) ReleaseAll(ctx context.Context, consumer string) error {
	names, err := m.recordedServices(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if _, ok := m.defs[name]; !ok {
			continue
		}
		if err := m.Release(ctx, name, consumer); err != nil {
			return err
		}
	}
	return nil
}

// Stop tears the service down regardless of recorded consumers, clearing
// the consumer list. Meant for explicit operator action.
func (m *Manager) Stop(ctx context.Context, name string) error {
	def, ok := m.defs[name]
	if !ok {
		return fmt.Errorf("unknown service %q", name)
	}
	return m.store.Update(ctx, func(idx *stateIndex) error {
		st := idx.get(name)
		if err := m.teardown(ctx, def); err != nil {
			return err
		}
		st.Status = StatusStopped
		st.Consumers = nil
		return nil
	})
}

func (m *Manager) teardown(ctx context.Context, def Definition) error {
	name := def.ContainerName()
	if def.SupportsGracefulShutdown {
		if _, err := m.run.Run(ctx, "docker", "stop", name); err != nil {
			log.WithFunc("service.teardown").Warnf(ctx, "stop %s: %v", name, err)
		}
		_, err := m.run.Run(ctx, "docker", "rm", name)
		return err
	}
	_, err := m.run.Run(ctx, "docker", "rm", "-f", name)
	return err
}

// List returns status rows for every catalog service, merged with the
// persisted state.
func (m *Manager) List(ctx context.Context) ([]Info, error) {
	var out []Info
	err := m.store.With(ctx, func(idx *stateIndex) error {
		for name, def := range m.defs {
			info := Info{Name: name, Status: StatusStopped, Port: def.Port}
			if st, ok := idx.Services[name]; ok {
				info.Status = st.Status
				if st.Port != 0 {
					info.Port = st.Port
				}
				info.Consumers = append([]string(nil), st.Consumers...)
			}
			out = append(out, info)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Statuses returns per-service health rows for one consumer's enabled
// services, probing each live port.
func (m *Manager) Statuses(ctx context.Context, names []string) []ServiceProbe {
	out := make([]ServiceProbe, 0, len(names))
	for _, name := range names {
		def, ok := m.defs[name]
		if !ok {
			out = append(out, ServiceProbe{Name: name, Err: "unknown service"})
			continue
		}
		port := def.Port
		if st := m.conf.Services[name]; st.Port != 0 {
			port = st.Port
		}
		out = append(out, ServiceProbe{
			Name:    name,
			Port:    port,
			Healthy: m.probe.Probe(ctx, def, port),
		})
	}
	return out
}

// ServiceProbe is one live health row.
type ServiceProbe struct {
	Name    string
	Port    int
	Healthy bool
	Err     string
}

func (m *Manager) recordedServices(ctx context.Context) ([]string, error) {
	var names []string
	err := m.store.With(ctx, func(idx *stateIndex) error {
		for name := range idx.Services {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (m *Manager) status(ctx context.Context, name string) (Status, error) {
	var status Status = StatusStopped
	err := m.store.With(ctx, func(idx *stateIndex) error {
		if st, ok := idx.Services[name]; ok {
			status = st.Status
		}
		return nil
	})
	return status, err
}

func (m *Manager) setStatus(ctx context.Context, name string, status Status) error {
	return m.store.Update(ctx, func(idx *stateIndex) error {
		idx.get(name).Status = status
		return nil
	})
}

func (m *Manager) containerRunning(ctx context.Context, def Definition) bool {
	out, err := m.run.Run(ctx, "docker", "inspect", "-f", "{{.State.Running}}", def.ContainerName())
	if err != nil {
		return false
	}
	return strings.TrimSpace(out.Stdout) == "true"
}

// PortFor returns the effective host port for a service under the given
// setting.
func (m *Manager) PortFor(name string, setting config.ServiceSetting) (int, error) {
	def, ok := m.defs[name]
	if !ok {
		return 0, fmt.Errorf("unknown service %q", name)
	}
	if setting.Port != 0 {
		return setting.Port, nil
	}
	return def.Port, nil
}
