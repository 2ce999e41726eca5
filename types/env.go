package types

import (
	"fmt"
	"strings"
	"time"
)

// EnvState represents the lifecycle state of an environment as observed
// through its backend.
type EnvState string

const (
	EnvStateAbsent  EnvState = "absent"  // no backend resource exists
	EnvStateCreated EnvState = "created" // created but never started
	EnvStateRunning EnvState = "running"
	EnvStateStopped EnvState = "stopped"
)

// MountPermission is the access mode of a bind mount.
type MountPermission string

const (
	MountReadWrite MountPermission = "rw"
	MountReadOnly  MountPermission = "ro"
)

// ParseMountPermission parses "rw" or "ro".
func ParseMountPermission(s string) (MountPermission, error) {
	switch s {
	case "rw":
		return MountReadWrite, nil
	case "ro":
		return MountReadOnly, nil
	default:
		return "", fmt.Errorf("invalid mount permission %q (use \"ro\" or \"rw\")", s)
	}
}

// Mount declares a bind between a host path and a guest path.
type Mount struct {
	Source      string          `yaml:"source" json:"source"`
	Target      string          `yaml:"target" json:"target"`
	Permissions MountPermission `yaml:"permissions" json:"permissions"`
}

// NewMount builds a Mount whose target defaults to /workspace/<basename>.
func NewMount(source string, perm MountPermission) Mount {
	base := source
	if i := strings.LastIndexByte(strings.TrimRight(source, "/"), '/'); i >= 0 {
		base = strings.TrimRight(source, "/")[i+1:]
	}
	if base == "" {
		base = "mounted"
	}
	return Mount{Source: source, Target: "/workspace/" + base, Permissions: perm}
}

// String renders the mount in source:target:permissions form.
func (m Mount) String() string {
	return fmt.Sprintf("%s:%s:%s", m.Source, m.Target, m.Permissions)
}

// ParseMount parses "source", "source:perm" or "source:target:perm".
func ParseMount(s string) (Mount, error) {
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		return NewMount(parts[0], MountReadWrite), nil
	case 2:
		perm, err := ParseMountPermission(parts[1])
		if err != nil {
			return Mount{}, fmt.Errorf("mount %q: %w", s, err)
		}
		return NewMount(parts[0], perm), nil
	case 3:
		perm, err := ParseMountPermission(parts[2])
		if err != nil {
			return Mount{}, fmt.Errorf("mount %q: %w", s, err)
		}
		return Mount{Source: parts[0], Target: parts[1], Permissions: perm}, nil
	default:
		return Mount{}, fmt.Errorf("invalid mount spec %q", s)
	}
}

// TempEnvState is the persisted record for an ephemeral environment whose
// mount set may change after creation.
type TempEnvState struct {
	Name       string    `yaml:"name"`
	Backend    string    `yaml:"backend"`
	ProjectDir string    `yaml:"project_dir"`
	Mounts     []Mount   `yaml:"mounts"`
	CreatedAt  time.Time `yaml:"created_at"`
}

// HasMount reports whether a mount with the given source is present.
func (s *TempEnvState) HasMount(source string) bool {
	for _, m := range s.Mounts {
		if m.Source == source {
			return true
		}
	}
	return false
}

// AddMount appends a mount; duplicate sources are rejected.
func (s *TempEnvState) AddMount(m Mount) error {
	if s.HasMount(m.Source) {
		return fmt.Errorf("mount already exists for source %s", m.Source)
	}
	s.Mounts = append(s.Mounts, m)
	return nil
}

// RemoveMount removes the mount with the given source.
func (s *TempEnvState) RemoveMount(source string) error {
	for i, m := range s.Mounts {
		if m.Source == source {
			s.Mounts = append(s.Mounts[:i], s.Mounts[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("mount not found for source %s", source)
}

// InstanceInfo is one row of a cross-backend environment listing.
type InstanceInfo struct {
	Name      string `json:"name"`
	Backend   string `json:"backend"`
	IsRunning bool   `json:"is_running"`
	Uptime    string `json:"uptime,omitempty"`
}
