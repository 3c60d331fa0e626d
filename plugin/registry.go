package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/carpark/id"
	"github.com/xraph/carpark/session"
	"github.com/xraph/carpark/types"
)

// DefaultHookTimeout bounds how long a single hook may run.
const DefaultHookTimeout = 5 * time.Second

// Registry manages registered plugins and dispatches lifecycle events.
// Hook interfaces are type-cached at registration.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit             []OnInit
	onShutdown         []OnShutdown
	onSessionOpened    []OnSessionOpened
	onSessionClosed    []OnSessionClosed
	onOutboundRejected []OnOutboundRejected
	onChargeComputed   []OnChargeComputed
	onStoreError       []OnStoreError
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultHookTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout. Non-positive values are ignored.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its hook interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	var hooks []string
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
		hooks = append(hooks, "OnInit")
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
		hooks = append(hooks, "OnShutdown")
	}
	if v, ok := p.(OnSessionOpened); ok {
		r.onSessionOpened = append(r.onSessionOpened, v)
		hooks = append(hooks, "OnSessionOpened")
	}
	if v, ok := p.(OnSessionClosed); ok {
		r.onSessionClosed = append(r.onSessionClosed, v)
		hooks = append(hooks, "OnSessionClosed")
	}
	if v, ok := p.(OnOutboundRejected); ok {
		r.onOutboundRejected = append(r.onOutboundRejected, v)
		hooks = append(hooks, "OnOutboundRejected")
	}
	if v, ok := p.(OnChargeComputed); ok {
		r.onChargeComputed = append(r.onChargeComputed, v)
		hooks = append(hooks, "OnChargeComputed")
	}
	if v, ok := p.(OnStoreError); ok {
		r.onStoreError = append(r.onStoreError, v)
		hooks = append(hooks, "OnStoreError")
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"hooks", hooks,
	)

	return nil
}

// Get returns a plugin by name, or nil.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins in registration order.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, ledger any) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnInit", p.Name(), func() error {
			return p.OnInit(ctx, ledger)
		})
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnShutdown", p.Name(), func() error {
			return p.OnShutdown(ctx)
		})
	}
}

// EmitSessionOpened emits a session opened event.
func (r *Registry) EmitSessionOpened(ctx context.Context, sessionID id.SessionID, license string, arrival time.Time) {
	r.mu.RLock()
	plugins := r.onSessionOpened
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnSessionOpened", p.Name(), func() error {
			return p.OnSessionOpened(ctx, sessionID, license, arrival)
		})
	}
}

// EmitSessionClosed emits a session closed event. Each plugin gets its own
// copy of the session.
func (r *Registry) EmitSessionClosed(ctx context.Context, sess *session.Session, durationSeconds int64) {
	r.mu.RLock()
	plugins := r.onSessionClosed
	r.mu.RUnlock()

	for _, p := range plugins {
		c := sess.Clone()
		r.dispatch(ctx, "OnSessionClosed", p.Name(), func() error {
			return p.OnSessionClosed(ctx, c, durationSeconds)
		})
	}
}

// EmitOutboundRejected emits an outbound rejected event.
func (r *Registry) EmitOutboundRejected(ctx context.Context, sessionID id.SessionID, cause error) {
	r.mu.RLock()
	plugins := r.onOutboundRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnOutboundRejected", p.Name(), func() error {
			return p.OnOutboundRejected(ctx, sessionID, cause)
		})
	}
}

// EmitChargeComputed emits a charge computed event.
func (r *Registry) EmitChargeComputed(ctx context.Context, durationSeconds int64, amount types.Money) {
	r.mu.RLock()
	plugins := r.onChargeComputed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnChargeComputed", p.Name(), func() error {
			return p.OnChargeComputed(ctx, durationSeconds, amount)
		})
	}
}

// EmitStoreError emits a store error event.
func (r *Registry) EmitStoreError(ctx context.Context, op string, cause error) {
	r.mu.RLock()
	plugins := r.onStoreError
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnStoreError", p.Name(), func() error {
			return p.OnStoreError(ctx, op, cause)
		})
	}
}

func (r *Registry) dispatch(ctx context.Context, hook, pluginName string, fn func() error) {
	if err := r.callWithTimeout(ctx, pluginName, fn); err != nil {
		r.logger.Warn("plugin "+hook+" failed",
			"plugin", pluginName,
			"error", err,
		)
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins must never block a vehicle at the barrier.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
