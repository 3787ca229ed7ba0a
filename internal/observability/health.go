package observability

import "time"

// HealthStatus is the payload of the health endpoint. Checks carries
// per-subsystem booleans (route table populated, live reload active).
type HealthStatus struct {
	Status    string          `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
	Version   string          `json:"version"`
	Uptime    string          `json:"uptime"`
	Checks    map[string]bool `json:"checks"`
}
