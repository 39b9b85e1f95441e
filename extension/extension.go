// Package extension provides the Forge extension adapter for debtbook.
//
// It implements the forge.Extension interface to integrate debtbook
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.debtbook" or "debtbook" keys.
package extension

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/debtbook"
	"github.com/xraph/debtbook/api"
	audithook "github.com/xraph/debtbook/audit_hook"
	"github.com/xraph/debtbook/observability"
	"github.com/xraph/debtbook/store"
	"github.com/xraph/debtbook/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "debtbook"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Customer and supplier debt ledger"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts debtbook as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *debtbook.Ledger
	handler    *api.Handler
	store      store.Store
	registerer prometheus.Registerer
	ledgerOpts []debtbook.Option
}

// New creates a new debtbook Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Ledger instance.
// This is nil until Register is called.
func (e *Extension) Engine() *debtbook.Ledger { return e.engine }

// Handler returns the HTTP API handler, or nil when no JWT secret is
// configured. Mount it with Handler().Router().
func (e *Extension) Handler() *api.Handler { return e.handler }

// Register implements [forge.Extension]. It loads configuration,
// initializes the debtbook engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	e.engine = debtbook.New(e.store, e.buildLedgerOpts()...)
	if e.config.JWTSecret != "" {
		e.handler = api.New(e.engine, []byte(e.config.JWTSecret))
	}

	if err := vessel.Provide(fapp.Container(), func() (*debtbook.Ledger, error) {
		return e.engine, nil
	}); err != nil {
		return err
	}
	if e.handler == nil {
		return nil
	}
	return vessel.Provide(fapp.Container(), func() (*api.Handler, error) {
		return e.handler, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("debtbook: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("debtbook: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildLedgerOpts constructs debtbook.Option values from the resolved config.
func (e *Extension) buildLedgerOpts() []debtbook.Option {
	opts := make([]debtbook.Option, 0, len(e.ledgerOpts)+6)

	opts = append(opts,
		debtbook.WithCurrency(e.config.Currency),
		debtbook.WithMaxRetries(e.config.MaxRetries),
		debtbook.WithPluginTimeout(e.config.PluginTimeout),
	)
	if e.config.DisableMigrate {
		opts = append(opts, debtbook.WithoutMigrate())
	}

	if !e.config.DisableAudit {
		opts = append(opts, debtbook.WithPlugin(audithook.New(
			audithook.NewHistoryRecorder(e.store),
			audithook.WithCurrency(e.config.Currency),
		)))
	}
	if !e.config.DisableMetrics {
		opts = append(opts, debtbook.WithPlugin(
			observability.NewMetricsExtension(observability.NewPrometheusFactory(e.registerer)),
		))
	}

	// Append any pass-through debtbook options.
	opts = append(opts, e.ledgerOpts...)

	return opts
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("debtbook: configuration is required but not found in config files; " +
				"ensure 'extensions.debtbook' or 'debtbook' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("debtbook: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("disable_audit", e.config.DisableAudit),
		forge.F("disable_metrics", e.config.DisableMetrics),
		forge.F("currency", e.config.Currency),
		forge.F("max_retries", e.config.MaxRetries),
		forge.F("plugin_timeout", e.config.PluginTimeout),
		forge.F("api_enabled", e.config.JWTSecret != ""),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.debtbook", "debtbook"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("debtbook: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("debtbook: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Currency == "" {
		cfg.Currency = defaults.Currency
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.PluginTimeout == 0 {
		cfg.PluginTimeout = defaults.PluginTimeout
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.DisableAudit {
		yamlConfig.DisableAudit = true
	}
	if programmaticConfig.DisableMetrics {
		yamlConfig.DisableMetrics = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.Currency == "" {
		yamlConfig.Currency = programmaticConfig.Currency
	}
	if yamlConfig.JWTSecret == "" {
		yamlConfig.JWTSecret = programmaticConfig.JWTSecret
	}

	// Numeric fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.MaxRetries == 0 {
		yamlConfig.MaxRetries = programmaticConfig.MaxRetries
	}
	if yamlConfig.PluginTimeout == 0 {
		yamlConfig.PluginTimeout = programmaticConfig.PluginTimeout
	}

	// Fill remaining zeros with defaults.
	return mergeWithDefaults(yamlConfig)
}
