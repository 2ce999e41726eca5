package config

import (
	"fmt"
	"os"
	"path/filepath"

	units "github.com/docker/go-units"
	"gopkg.in/yaml.v3"
)

// DefaultInstanceSuffix is appended to the project name when no explicit
// instance name is given.
const DefaultInstanceSuffix = "dev"

// ProvisionConfig names the external convergence tool run inside the
// environment. The core only observes its exit status.
type ProvisionConfig struct {
	Command []string `yaml:"command"`
}

// ProjectConfig is the validated per-project configuration consumed by
// the core. Loading, merging and presets happen upstream; the core only
// reads the fields below.
type ProjectConfig struct {
	Name      string                    `yaml:"name"`
	Backend   string                    `yaml:"backend"`
	Image     string                    `yaml:"image"`
	Memory    string                    `yaml:"memory"`
	CPUs      int                       `yaml:"cpus"`
	Mounts    []string                  `yaml:"mounts"`
	Services  map[string]ServiceSetting `yaml:"services"`
	PortWidth int                       `yaml:"port_width"`
	Provision ProvisionConfig           `yaml:"provision"`

	// Dir is the workspace directory the config was loaded from.
	Dir string `yaml:"-"`
}

// LoadProject reads burrow.yaml from dir and applies defaults.
func LoadProject(dir string) (*ProjectConfig, error) {
	path := filepath.Join(dir, "burrow.yaml")
	raw, err := os.ReadFile(path) //nolint:gosec // project file under user workspace
	if err != nil {
		return nil, fmt.Errorf("read project config: %w", err)
	}
	cfg := &ProjectConfig{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Dir = dir
	cfg.applyDefaults()
	if cfg.Memory != "" {
		if _, err := units.RAMInBytes(cfg.Memory); err != nil {
			return nil, fmt.Errorf("invalid memory %q: %w", cfg.Memory, err)
		}
	}
	return cfg, nil
}

func (p *ProjectConfig) applyDefaults() {
	if p.Name == "" {
		p.Name = filepath.Base(p.Dir)
	}
	if p.Backend == "" {
		p.Backend = "docker"
	}
	if p.Image == "" {
		p.Image = "ubuntu:24.04"
	}
	if p.PortWidth <= 0 {
		p.PortWidth = 10
	}
	if p.Services == nil {
		p.Services = map[string]ServiceSetting{}
	}
}

// MemoryBytes returns the configured memory limit, or 0 when unset.
func (p *ProjectConfig) MemoryBytes() int64 {
	if p.Memory == "" {
		return 0
	}
	n, err := units.RAMInBytes(p.Memory)
	if err != nil {
		return 0
	}
	return n
}

// DefaultInstance is the instance name used when none is given.
func (p *ProjectConfig) DefaultInstance() string {
	return p.Name + "-" + DefaultInstanceSuffix
}

// EnabledServices returns the names of services enabled for this project,
// merging the project's own declarations with the global config. The
// project declaration wins for per-service settings.
func (p *ProjectConfig) EnabledServices(global *Config) []string {
	seen := map[string]bool{}
	var names []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for name, s := range p.Services {
		if s.Enabled {
			add(name)
		}
	}
	if global != nil {
		for name, s := range global.Services {
			if s.Enabled {
				add(name)
			}
		}
	}
	return names
}

// ServiceSettingFor merges the project-level and global settings for one
// service; the project declaration takes precedence field by field.
func (p *ProjectConfig) ServiceSettingFor(global *Config, name string) ServiceSetting {
	var out ServiceSetting
	if global != nil {
		out = global.Services[name]
	}
	if s, ok := p.Services[name]; ok {
		out.Enabled = out.Enabled || s.Enabled
		if s.Port != 0 {
			out.Port = s.Port
		}
		if s.Version != "" {
			out.Version = s.Version
		}
		if s.DataDir != "" {
			out.DataDir = s.DataDir
		}
	}
	return out
}
