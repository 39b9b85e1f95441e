package extension

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/debtbook"
	"github.com/xraph/debtbook/plugin"
	"github.com/xraph/debtbook/store"
)

// Option configures the debtbook Forge extension.
type Option func(*Extension)

// WithStore sets the store for the debtbook engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithLedgerOption passes a debtbook.Option through to the underlying engine.
func WithLedgerOption(opt debtbook.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a debtbook plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, debtbook.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithDisableAudit skips the history audit hook.
func WithDisableAudit() Option {
	return func(e *Extension) { e.config.DisableAudit = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithCurrency sets the currency code.
func WithCurrency(code string) Option {
	return func(e *Extension) { e.config.Currency = code }
}

// WithMaxRetries sets the payment retry bound.
func WithMaxRetries(n int) Option {
	return func(e *Extension) { e.config.MaxRetries = n }
}

// WithPluginTimeout sets the per-hook timeout.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.PluginTimeout = d }
}

// WithJWTSecret enables the HTTP API handler.
func WithJWTSecret(secret string) Option {
	return func(e *Extension) { e.config.JWTSecret = secret }
}

// WithMetricsRegisterer sets where metrics are registered. Defaults to the
// Prometheus default registerer.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(e *Extension) { e.registerer = reg }
}
