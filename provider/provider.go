// Package provider defines the uniform lifecycle contract every backend
// variant implements, plus the optional capability interfaces a variant
// may additionally support.
package provider

import (
	"context"
	"errors"

	"github.com/burrowtool/burrow/config"
	"github.com/burrowtool/burrow/types"
)

// Sentinel errors shared by all backend variants.
var (
	// ErrNotFound is returned when the named instance does not exist.
	ErrNotFound = errors.New("instance not found")
	// ErrAlreadyExists is returned by Create without force when the
	// instance is already present.
	ErrAlreadyExists = errors.New("instance already exists")
	// ErrUnsupported is returned when a variant lacks a capability.
	// Variants must return this instead of degrading to a destructive
	// alternative.
	ErrUnsupported = errors.New("operation not supported by this backend")
	// ErrBackendUnavailable means the backend daemon or binary is not
	// reachable at all.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrNoProject is returned by instance resolution when the project
	// has no name and no explicit instance was given.
	ErrNoProject = errors.New("no project configured")
)

// Context carries per-call options into context-aware operations.
// Not persisted.
type Context struct {
	// GlobalConfig, when set, is an updated global configuration whose
	// changes should be applied by regenerating the backend declaration
	// before start/restart.
	GlobalConfig *config.Config
	// Verbose enables detailed output from backend commands.
	Verbose bool
}

// Provider is the uniform capability set of one backend variant.
// Instance arguments name a resolved instance; an empty string means the
// project's default instance.
type Provider interface {
	Name() string

	// Create brings the instance from Absent to Created and triggers
	// provisioning. With force, an existing instance is destroyed first;
	// without, an existing instance yields ErrAlreadyExists.
	Create(ctx context.Context, instance string, force bool) error
	Start(ctx context.Context, instance string) error
	Stop(ctx context.Context, instance string) error
	// Restart is stop followed by start.
	Restart(ctx context.Context, instance string) error
	// Destroy removes the instance and its persisted artifacts.
	// Destroying a nonexistent instance succeeds with a warning.
	Destroy(ctx context.Context, instance string) error
	// Kill forces a halt: graceful with a short bound, then a hard stop.
	// Variants without a non-destructive hard stop return ErrUnsupported.
	Kill(ctx context.Context, instance string) error
	// Provision re-runs the external provisioning tool. Valid in
	// Created, Stopped or Running; does not change state.
	Provision(ctx context.Context, instance string) error

	SSH(ctx context.Context, instance, workdir string) error
	Exec(ctx context.Context, instance string, cmd []string) error
	Logs(ctx context.Context, instance string, follow bool, tail int) error

	// StatusReport returns a minimal report for a non-running instance
	// and a full resource report for a running one.
	StatusReport(ctx context.Context, instance string) (*types.StatusReport, error)
	List(ctx context.Context) ([]types.InstanceInfo, error)

	// ResolveInstance maps an optional user-supplied instance name to
	// the backend's full instance name.
	ResolveInstance(instance string) (string, error)
	// SyncDirectory is the workspace path synced into the environment.
	SyncDirectory() string
}

// TempProvider is the optional capability for ephemeral environments with
// dynamic mount reconciliation. Obtain it via AsTempProvider.
type TempProvider interface {
	// UpdateMounts rewrites the managed mount region of the backend
	// declaration to match state and applies it with the least
	// disruptive backend operation available.
	UpdateMounts(ctx context.Context, state *types.TempEnvState) error
	// RecreateWithMounts applies the mount set by recreating or
	// reloading the backend resource, preserving named storage.
	RecreateWithMounts(ctx context.Context, state *types.TempEnvState) error
	IsRunning(ctx context.Context, name string) (bool, error)
	CheckHealth(ctx context.Context, name string) (bool, error)
}

// ContextProvider is the optional capability for applying updated global
// configuration via a plain start/restart instead of destroy-and-recreate.
type ContextProvider interface {
	StartWithContext(ctx context.Context, instance string, pctx *Context) error
	RestartWithContext(ctx context.Context, instance string, pctx *Context) error
}

// AsTempProvider returns the temp capability of p, if implemented.
func AsTempProvider(p Provider) (TempProvider, bool) {
	tp, ok := p.(TempProvider)
	return tp, ok
}

// AsContextProvider returns the context-aware capability of p, if implemented.
func AsContextProvider(p Provider) (ContextProvider, bool) {
	cp, ok := p.(ContextProvider)
	return cp, ok
}
