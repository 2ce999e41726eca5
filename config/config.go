package config

import (
	"os"
	"path/filepath"
)

// ServiceSetting is the per-service slice of global configuration.
// Enabled services are started for every environment; port and version
// override the catalog defaults.
type ServiceSetting struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Port    int    `json:"port,omitempty" yaml:"port,omitempty" mapstructure:"port"`
	Version string `json:"version,omitempty" yaml:"version,omitempty" mapstructure:"version"`
	DataDir string `json:"data_dir,omitempty" yaml:"data_dir,omitempty" mapstructure:"data_dir"`
}

// Config holds global burrow configuration, shared by every project on
// the host.
type Config struct {
	// StateDir is the base directory for host-wide persistent state
	// (port registry, service state, temp environment state, secrets).
	StateDir string `json:"state_dir" mapstructure:"state_dir"`
	// StopTimeoutSeconds bounds graceful shutdown of environments.
	StopTimeoutSeconds int `json:"stop_timeout_seconds" mapstructure:"stop_timeout_seconds"`
	// LogLevel for the console logger.
	LogLevel string `json:"log_level" mapstructure:"log_level"`
	// Services enabled globally for all environments.
	Services map[string]ServiceSetting `json:"services" mapstructure:"services"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		StateDir:           filepath.Join(home, ".burrow"),
		StopTimeoutSeconds: 30,
		LogLevel:           "info",
		Services:           map[string]ServiceSetting{},
	}
}

// EnsureStateDirs creates the static state directories.
func (c *Config) EnsureStateDirs() error {
	dirs := []string{c.StateDir, c.dbDir(), c.SecretsDir()}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) dbDir() string { return filepath.Join(c.StateDir, "db") }

// PortRegistryFile and PortRegistryLock are the port allocation store paths.
func (c *Config) PortRegistryFile() string { return filepath.Join(c.dbDir(), "ports.json") }
func (c *Config) PortRegistryLock() string { return filepath.Join(c.dbDir(), "ports.lock") }

// ServiceStateFile and ServiceStateLock are the shared-service store paths.
func (c *Config) ServiceStateFile() string { return filepath.Join(c.dbDir(), "services.json") }
func (c *Config) ServiceStateLock() string { return filepath.Join(c.dbDir(), "services.lock") }

// TempStateFile and TempStateLock are the ephemeral-environment store paths.
func (c *Config) TempStateFile() string { return filepath.Join(c.dbDir(), "temp-env.yaml") }
func (c *Config) TempStateLock() string { return filepath.Join(c.dbDir(), "temp-env.lock") }

// SecretsDir holds generated per-service credentials.
func (c *Config) SecretsDir() string { return filepath.Join(c.StateDir, "secrets") }

// ServiceDataDir is the default host data directory for a shared service.
func (c *Config) ServiceDataDir(service string) string {
	return filepath.Join(c.StateDir, "data", service)
}

// RenderDir is the per-project directory for tool-owned backend
// declarations (rendered compose files, VM run metadata). Never a
// user-authored location.
func (c *Config) RenderDir(project string) string {
	return filepath.Join(c.StateDir, "render", project)
}

// VMRunDir is the per-instance runtime directory for VM backends
// (PID files, serial logs).
func (c *Config) VMRunDir(instance string) string {
	return filepath.Join(c.StateDir, "run", instance)
}
