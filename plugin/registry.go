package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/debtbook/counterparty"
	"github.com/xraph/debtbook/debt"
	"github.com/xraph/debtbook/id"
	"github.com/xraph/debtbook/payment"
)

// DefaultTimeout bounds a single plugin call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// Hook implementations are discovered once at registration time.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit                []OnInit
	onShutdown            []OnShutdown
	onCounterpartyCreated []OnCounterpartyCreated
	onDebtCreated         []OnDebtCreated
	onPaymentRecorded     []OnPaymentRecorded
	onPaymentRejected     []OnPaymentRejected
	onPaymentConflict     []OnPaymentConflict
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-call plugin timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnCounterpartyCreated); ok {
		r.onCounterpartyCreated = append(r.onCounterpartyCreated, v)
	}
	if v, ok := p.(OnDebtCreated); ok {
		r.onDebtCreated = append(r.onDebtCreated, v)
	}
	if v, ok := p.(OnPaymentRecorded); ok {
		r.onPaymentRecorded = append(r.onPaymentRecorded, v)
	}
	if v, ok := p.(OnPaymentRejected); ok {
		r.onPaymentRejected = append(r.onPaymentRejected, v)
	}
	if v, ok := p.(OnPaymentConflict); ok {
		r.onPaymentConflict = append(r.onPaymentConflict, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

// implementedInterfaces returns the hook names implemented by the plugin.
func implementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnCounterpartyCreated)(nil)).Elem(), "OnCounterpartyCreated")
	checkInterface(reflect.TypeOf((*OnDebtCreated)(nil)).Elem(), "OnDebtCreated")
	checkInterface(reflect.TypeOf((*OnPaymentRecorded)(nil)).Elem(), "OnPaymentRecorded")
	checkInterface(reflect.TypeOf((*OnPaymentRejected)(nil)).Elem(), "OnPaymentRejected")
	checkInterface(reflect.TypeOf((*OnPaymentConflict)(nil)).Elem(), "OnPaymentConflict")

	return interfaces
}

// Get returns a plugin by name.
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

// List returns all registered plugins.
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

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// snapshot copies a cached hook slice under the read lock.
func snapshot[T any](r *Registry, hooks *[]T) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, len(*hooks))
	copy(out, *hooks)
	return out
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, l any) {
	for _, p := range snapshot(r, &r.onInit) {
		r.dispatch(ctx, p.Name(), "OnInit", func() error {
			return p.OnInit(ctx, l)
		})
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, p := range snapshot(r, &r.onShutdown) {
		r.dispatch(ctx, p.Name(), "OnShutdown", func() error {
			return p.OnShutdown(ctx)
		})
	}
}

// EmitCounterpartyCreated notifies plugins about a new counterparty.
func (r *Registry) EmitCounterpartyCreated(ctx context.Context, c *counterparty.Counterparty) {
	for _, p := range snapshot(r, &r.onCounterpartyCreated) {
		r.dispatch(ctx, p.Name(), "OnCounterpartyCreated", func() error {
			return p.OnCounterpartyCreated(ctx, c)
		})
	}
}

// EmitDebtCreated notifies plugins about a new debt.
func (r *Registry) EmitDebtCreated(ctx context.Context, d *debt.Debt, c *counterparty.Counterparty) {
	for _, p := range snapshot(r, &r.onDebtCreated) {
		r.dispatch(ctx, p.Name(), "OnDebtCreated", func() error {
			return p.OnDebtCreated(ctx, d, c)
		})
	}
}

// EmitPaymentRecorded notifies plugins about a committed payment.
func (r *Registry) EmitPaymentRecorded(ctx context.Context, d *debt.Debt, pay *payment.Payment) {
	for _, p := range snapshot(r, &r.onPaymentRecorded) {
		r.dispatch(ctx, p.Name(), "OnPaymentRecorded", func() error {
			return p.OnPaymentRecorded(ctx, d, pay)
		})
	}
}

// EmitPaymentRejected notifies plugins about a refused payment.
func (r *Registry) EmitPaymentRejected(ctx context.Context, account string, debtID id.DebtID, amount decimal.Decimal, reason error) {
	for _, p := range snapshot(r, &r.onPaymentRejected) {
		r.dispatch(ctx, p.Name(), "OnPaymentRejected", func() error {
			return p.OnPaymentRejected(ctx, account, debtID, amount, reason)
		})
	}
}

// EmitPaymentConflict notifies plugins about a lost concurrency race.
func (r *Registry) EmitPaymentConflict(ctx context.Context, account string, debtID id.DebtID, attempt int) {
	for _, p := range snapshot(r, &r.onPaymentConflict) {
		r.dispatch(ctx, p.Name(), "OnPaymentConflict", func() error {
			return p.OnPaymentConflict(ctx, account, debtID, attempt)
		})
	}
}

func (r *Registry) dispatch(ctx context.Context, name, hook string, fn func() error) {
	if err := r.callWithTimeout(ctx, name, fn); err != nil {
		r.logger.Warn("plugin "+hook+" failed",
			"plugin", name,
			"error", err,
		)
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the payment path.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- fmt.Errorf("plugin panic: %s: %v", pluginName, rec)
			}
		}()
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
