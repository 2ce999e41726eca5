package service

import (
	"fmt"
	"time"
)

// HealthKind selects the readiness probe used for a service.
type HealthKind string

const (
	// HealthTCP probes with a TCP connect. Used for data stores.
	HealthTCP HealthKind = "tcp"
	// HealthHTTP probes with an HTTP GET. Used for proxy-style services.
	HealthHTTP HealthKind = "http"
	// HealthProcess probes backend container liveness only.
	HealthProcess HealthKind = "process"
)

// Definition is a static catalog entry for one shared service.
// Health bounds are per-definition: backing stores need materially more
// total wait time than an HTTP proxy.
type Definition struct {
	Name        string
	DisplayName string

	// Image and DefaultVersion form the backend container image.
	Image          string
	DefaultVersion string

	// Port is the default host port; ContainerPort the service's own.
	Port          int
	ContainerPort int

	// GuestDataPath is the data directory inside the container, bound to
	// a host data dir so service data survives restarts.
	GuestDataPath string

	// PasswordEnv, when set, receives the generated credential.
	PasswordEnv string
	// ExtraArgs are appended to the container command line. The literal
	// %PASSWORD% is replaced with the generated credential.
	ExtraArgs []string

	HealthKind     HealthKind
	HealthAttempts int
	HealthInterval time.Duration
	// HealthPath is the request path for HTTP probes.
	HealthPath string

	// SupportsGracefulShutdown selects stop-then-remove over forced
	// removal during teardown.
	SupportsGracefulShutdown bool
}

// ContainerName is the host-wide backend container name for the service.
func (d Definition) ContainerName() string {
	return fmt.Sprintf("burrow-%s-global", d.Name)
}

// ImageRef combines image and version, preferring the override.
func (d Definition) ImageRef(version string) string {
	if version == "" {
		version = d.DefaultVersion
	}
	return d.Image + ":" + version
}

// Builtins returns the built-in service catalog keyed by name.
// Plugin-declared services are merged in by the caller.
func Builtins() map[string]Definition {
	defs := []Definition{
		{
			Name:                     "postgresql",
			DisplayName:              "PostgreSQL",
			Image:                    "postgres",
			DefaultVersion:           "16",
			Port:                     5432,
			ContainerPort:            5432,
			GuestDataPath:            "/var/lib/postgresql/data",
			PasswordEnv:              "POSTGRES_PASSWORD",
			HealthKind:               HealthTCP,
			HealthAttempts:           10,
			HealthInterval:           2 * time.Second,
			SupportsGracefulShutdown: true,
		},
		{
			Name:                     "redis",
			DisplayName:              "Redis",
			Image:                    "redis",
			DefaultVersion:           "7",
			Port:                     6379,
			ContainerPort:            6379,
			GuestDataPath:            "/data",
			ExtraArgs:                []string{"--requirepass", "%PASSWORD%"},
			HealthKind:               HealthTCP,
			HealthAttempts:           5,
			HealthInterval:           time.Second,
			SupportsGracefulShutdown: true,
		},
		{
			Name:                     "mongodb",
			DisplayName:              "MongoDB",
			Image:                    "mongo",
			DefaultVersion:           "7",
			Port:                     27017,
			ContainerPort:            27017,
			GuestDataPath:            "/data/db",
			PasswordEnv:              "MONGO_INITDB_ROOT_PASSWORD",
			HealthKind:               HealthTCP,
			HealthAttempts:           10,
			HealthInterval:           2 * time.Second,
			SupportsGracefulShutdown: true,
		},
		{
			Name:                     "mysql",
			DisplayName:              "MySQL",
			Image:                    "mysql",
			DefaultVersion:           "8",
			Port:                     3306,
			ContainerPort:            3306,
			GuestDataPath:            "/var/lib/mysql",
			PasswordEnv:              "MYSQL_ROOT_PASSWORD",
			HealthKind:               HealthTCP,
			HealthAttempts:           15,
			HealthInterval:           2 * time.Second,
			SupportsGracefulShutdown: true,
		},
		{
			Name:           "docker-registry",
			DisplayName:    "Docker registry",
			Image:          "registry",
			DefaultVersion: "2",
			Port:           5000,
			ContainerPort:  5000,
			GuestDataPath:  "/var/lib/registry",
			HealthKind:     HealthHTTP,
			HealthAttempts: 5,
			HealthInterval: time.Second,
			HealthPath:     "/v2/",
		},
		{
			Name:           "auth-proxy",
			DisplayName:    "Auth proxy",
			Image:          "burrowtool/auth-proxy",
			DefaultVersion: "latest",
			Port:           3090,
			ContainerPort:  3090,
			HealthKind:     HealthHTTP,
			HealthAttempts: 5,
			HealthInterval: 500 * time.Millisecond,
			HealthPath:     "/healthz",
		},
		{
			Name:           "package-registry",
			DisplayName:    "Package registry",
			Image:          "burrowtool/package-registry",
			DefaultVersion: "latest",
			Port:           3080,
			ContainerPort:  3080,
			GuestDataPath:  "/srv/packages",
			HealthKind:     HealthHTTP,
			HealthAttempts: 5,
			HealthInterval: time.Second,
			HealthPath:     "/healthz",
		},
	}
	out := make(map[string]Definition, len(defs))
	for _, d := range defs {
		out[d.Name] = d
	}
	return out
}
