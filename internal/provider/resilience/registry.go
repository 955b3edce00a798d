package resilience

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// SourceHealth is a snapshot of one source's breaker and outcome history.
type SourceHealth struct {
	Name          string           `json:"name"`
	CircuitState  gobreaker.State  `json:"-"`
	State         string           `json:"state"`
	Counts        gobreaker.Counts `json:"-"`
	LastSuccessAt *time.Time       `json:"last_success_at,omitempty"`
	LastFailureAt *time.Time       `json:"last_failure_at,omitempty"`
	LastError     string           `json:"last_error,omitempty"`
}

// IsHealthy reports a closed breaker.
func (h *SourceHealth) IsHealthy() bool {
	return h.CircuitState == gobreaker.StateClosed
}

// IsDegraded reports a half-open breaker.
func (h *SourceHealth) IsDegraded() bool {
	return h.CircuitState == gobreaker.StateHalfOpen
}

// IsUnhealthy reports an open breaker.
func (h *SourceHealth) IsUnhealthy() bool {
	return h.CircuitState == gobreaker.StateOpen
}

// Registry tracks one client per source and its health.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]*registeredSource
}

type registeredSource struct {
	client        *Client
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]*registeredSource),
	}
}

// Register adds or replaces the client for name.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[name] = &registeredSource{client: client}
}

// Unregister removes a source.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sources, name)
}

// Client returns the registered client for name, creating one from base when
// none exists. base.Name and base.Registry are overridden.
func (r *Registry) Client(name string, base ClientConfig) *Client {
	name = strings.ToLower(name)

	r.mu.RLock()
	src, ok := r.sources[name]
	r.mu.RUnlock()
	if ok {
		return src.client
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if src, ok := r.sources[name]; ok {
		return src.client
	}

	base.Name = name
	base.Registry = nil
	if base.CircuitBreaker != nil {
		cb := *base.CircuitBreaker
		cb.Name = name
		base.CircuitBreaker = &cb
	}
	client := NewClient(base)
	client.config.Registry = r
	r.sources[name] = &registeredSource{client: client}
	return client
}

// RecordSuccess records a successful request.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if src, ok := r.sources[name]; ok {
		now := time.Now()
		src.lastSuccessAt = &now
	}
}

// RecordFailure records a failed request.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if src, ok := r.sources[name]; ok {
		now := time.Now()
		src.lastFailureAt = &now
		if err != nil {
			src.lastError = err.Error()
		}
	}
}

// Health returns the health of one source, or nil if unknown.
func (r *Registry) Health(name string) *SourceHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src, ok := r.sources[name]
	if !ok {
		return nil
	}
	return src.health(name)
}

// AllHealth returns the health of every source, sorted by name.
func (r *Registry) AllHealth() []*SourceHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	health := make([]*SourceHealth, 0, len(r.sources))
	for name, src := range r.sources {
		health = append(health, src.health(name))
	}
	slices.SortFunc(health, func(a, b *SourceHealth) int {
		return strings.Compare(a.Name, b.Name)
	})
	return health
}

// Names returns the registered source names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}

func (s *registeredSource) health(name string) *SourceHealth {
	state := s.client.CircuitBreakerState()
	return &SourceHealth{
		Name:          name,
		CircuitState:  state,
		State:         state.String(),
		Counts:        s.client.CircuitBreakerCounts(),
		LastSuccessAt: s.lastSuccessAt,
		LastFailureAt: s.lastFailureAt,
		LastError:     s.lastError,
	}
}
