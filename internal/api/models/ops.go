package models

// Health is the liveness response.
type Health struct {
	Status  HealthStatus           `json:"status"`
	Time    Timestamp              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SystemStatus reports the registry and the health of each station host.
type SystemStatus struct {
	Status   HealthStatus   `json:"status"`
	Time     Timestamp      `json:"time"`
	Stations int            `json:"stations"`
	Sources  []SourceStatus `json:"sources"`
}

// SourceStatus is the circuit breaker view of one station host.
type SourceStatus struct {
	Host          string       `json:"host"`
	Status        HealthStatus `json:"status"`
	CircuitState  string       `json:"circuitState"`
	LastSuccessAt *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt *Timestamp   `json:"lastFailureAt,omitempty"`
	Message       *string      `json:"message,omitempty"`
}
