// Package breaker wraps sony/gobreaker into a per-source circuit
// breaker manager, one breaker per TI source / AI model / external
// dependency name, keyed by string name the way the kubernaut
// notification reconciler keys breakers per delivery channel.
package breaker

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/fathomsec/urlscan-engine/internal/scanerr"
	"github.com/fathomsec/urlscan-engine/internal/telemetry"
)

// Manager lazily creates and holds one gobreaker.CircuitBreaker per
// named source.
type Manager struct {
	mu       sync.Mutex
	settings gobreaker.Settings
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewManager builds a Manager. Callers supply the base settings
// (MaxRequests/Interval/Timeout/ReadyToTrip); OnStateChange is always
// overridden to update the circuit-breaker-state metric and is not
// settable by the caller.
func NewManager(settings gobreaker.Settings) *Manager {
	return &Manager{settings: settings, breakers: make(map[string]*gobreaker.CircuitBreaker)}
}

// DefaultSettings returns settings appropriate for an external TI
// source or AI model call: trip after 5 consecutive failures within a
// 60s rolling window, stay open for 30s before probing.
func DefaultSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
}

func (m *Manager) breakerFor(name string) *gobreaker.CircuitBreaker {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b, ok := m.breakers[name]; ok {
		return b
	}

	settings := m.settings
	settings.Name = name
	settings.OnStateChange = func(name string, from, to gobreaker.State) {
		telemetry.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
	}
	b := gobreaker.NewCircuitBreaker(settings)
	m.breakers[name] = b
	return b
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}

// Execute runs fn through the named breaker, translating gobreaker's
// own open-circuit sentinel into a scanerr.CircuitOpenError.
func (m *Manager) Execute(ctx context.Context, name string, fn func(ctx context.Context) (any, error)) (any, error) {
	b := m.breakerFor(name)
	result, err := b.Execute(func() (any, error) {
		return fn(ctx)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, scanerr.CircuitOpen(name)
	}
	return result, err
}

// State reports the current state of the named breaker. A source that
// has never been called is reported closed.
func (m *Manager) State(name string) gobreaker.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.breakers[name]; ok {
		return b.State()
	}
	return gobreaker.StateClosed
}
