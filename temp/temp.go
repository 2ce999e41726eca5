// Package temp manages the ephemeral environment: a single throwaway
// instance whose mount set can change after creation. State lives in a
// flock-guarded YAML file so concurrent invocations see one truth.
package temp

import (
	"context"
	"fmt"
	"time"

	"github.com/burrowtool/burrow/config"
	"github.com/burrowtool/burrow/log"
	"github.com/burrowtool/burrow/provider"
	storeyaml "github.com/burrowtool/burrow/storage/yaml"
	"github.com/burrowtool/burrow/types"
)

// InstanceSuffix names the ephemeral instance within a project.
const InstanceSuffix = "temp"

// ErrNoTempEnv is returned when no ephemeral environment is recorded.
var ErrNoTempEnv = fmt.Errorf("no temp environment exists")

type doc struct {
	Env *types.TempEnvState `yaml:"env,omitempty"`
}

// Manager owns the persisted temp environment record.
type Manager struct {
	store *storeyaml.Store[doc]
}

// NewManager creates a Manager backed by the configured store paths.
func NewManager(conf *config.Config) *Manager {
	return &Manager{store: storeyaml.New[doc](conf.TempStateLock(), conf.TempStateFile())}
}

// Get returns the recorded temp environment, or ErrNoTempEnv.
func (m *Manager) Get(ctx context.Context) (*types.TempEnvState, error) {
	var env *types.TempEnvState
	err := m.store.With(ctx, func(d *doc) error {
		env = d.Env
		return nil
	})
	if err != nil {
		return nil, err
	}
	if env == nil {
		return nil, ErrNoTempEnv
	}
	return env, nil
}

// Create provisions the ephemeral instance with an initial mount set and
// records it. Only one temp environment exists at a time.
func (m *Manager) Create(ctx context.Context, prov provider.Provider, proj *config.ProjectConfig, mounts []types.Mount) (*types.TempEnvState, error) {
	if _, err := m.Get(ctx); err == nil {
		return nil, fmt.Errorf("temp environment already exists, destroy it first")
	}

	name := proj.Name + "-" + InstanceSuffix
	if err := prov.Create(ctx, name, false); err != nil {
		return nil, err
	}
	if err := prov.Start(ctx, name); err != nil {
		return nil, err
	}

	state := &types.TempEnvState{
		Name:       name,
		Backend:    prov.Name(),
		ProjectDir: proj.Dir,
		Mounts:     mounts,
		CreatedAt:  time.Now().UTC(),
	}
	if len(mounts) > 0 {
		tp, ok := provider.AsTempProvider(prov)
		if !ok {
			return nil, fmt.Errorf("backend %s: %w", prov.Name(), provider.ErrUnsupported)
		}
		if err := tp.UpdateMounts(ctx, state); err != nil {
			return nil, err
		}
	}

	if err := m.put(ctx, state); err != nil {
		return nil, err
	}
	log.WithFunc("temp.Create").Infof(ctx, "temp environment %s ready", name)
	return state, nil
}

// Mount adds a mount to the running temp environment. The backend change
// is applied first; state is persisted only after it lands.
func (m *Manager) Mount(ctx context.Context, prov provider.Provider, mount types.Mount) error {
	state, err := m.Get(ctx)
	if err != nil {
		return err
	}
	if err := state.AddMount(mount); err != nil {
		return err
	}
	tp, ok := provider.AsTempProvider(prov)
	if !ok {
		return fmt.Errorf("backend %s: %w", state.Backend, provider.ErrUnsupported)
	}
	if err := tp.UpdateMounts(ctx, state); err != nil {
		return err
	}
	return m.put(ctx, state)
}

// Unmount removes one mount, or every mount with all set.
func (m *Manager) Unmount(ctx context.Context, prov provider.Provider, source string, all bool) error {
	state, err := m.Get(ctx)
	if err != nil {
		return err
	}
	if all {
		state.Mounts = nil
	} else if err := state.RemoveMount(source); err != nil {
		return err
	}
	tp, ok := provider.AsTempProvider(prov)
	if !ok {
		return fmt.Errorf("backend %s: %w", state.Backend, provider.ErrUnsupported)
	}
	if err := tp.UpdateMounts(ctx, state); err != nil {
		return err
	}
	return m.put(ctx, state)
}

// Destroy tears the instance down and clears the record. A missing
// backend resource still clears the record so state cannot wedge.
func (m *Manager) Destroy(ctx context.Context, prov provider.Provider) error {
	state, err := m.Get(ctx)
	if err != nil {
		return err
	}
	if err := prov.Destroy(ctx, state.Name); err != nil {
		return err
	}
	return m.store.Update(ctx, func(d *doc) error {
		d.Env = nil
		return nil
	})
}

func (m *Manager) put(ctx context.Context, state *types.TempEnvState) error {
	return m.store.Update(ctx, func(d *doc) error {
		d.Env = state
		return nil
	})
}
