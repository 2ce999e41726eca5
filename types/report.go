package types

// ResourceUsage holds live resource metrics for a running environment.
// Fields are zero when the backend cannot report them.
type ResourceUsage struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryUsedMB  int64   `json:"memory_used_mb"`
	MemoryLimitMB int64   `json:"memory_limit_mb"`
	DiskUsedGB    float64 `json:"disk_used_gb"`
	DiskTotalGB   float64 `json:"disk_total_gb"`
}

// ServiceStatus is one shared-service row of a status report.
type ServiceStatus struct {
	Name      string `json:"name"`
	IsRunning bool   `json:"is_running"`
	Port      int    `json:"port,omitempty"`
	Error     string `json:"error,omitempty"`
}

// StatusReport is the read model produced by a backend's status collection.
// For a non-running environment only Name, Backend and IsRunning are set.
type StatusReport struct {
	Name      string          `json:"name"`
	Backend   string          `json:"backend"`
	IsRunning bool            `json:"is_running"`
	Uptime    string          `json:"uptime,omitempty"`
	Resources ResourceUsage   `json:"resources"`
	Services  []ServiceStatus `json:"services,omitempty"`
}
