package extension

import "time"

// Config holds the debtbook extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.debtbook" or "debtbook" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// DisableAudit skips the audit hook that writes the history trail.
	DisableAudit bool `json:"disable_audit" mapstructure:"disable_audit" yaml:"disable_audit"`

	// DisableMetrics skips the Prometheus metrics plugin.
	DisableMetrics bool `json:"disable_metrics" mapstructure:"disable_metrics" yaml:"disable_metrics"`

	// Currency is the ISO code amounts are validated and formatted in
	// (default: "inr").
	Currency string `json:"currency" mapstructure:"currency" yaml:"currency"`

	// MaxRetries bounds how often a payment that lost a concurrent update is
	// re-evaluated (default: 3).
	MaxRetries int `json:"max_retries" mapstructure:"max_retries" yaml:"max_retries"`

	// PluginTimeout bounds each plugin hook call (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// JWTSecret enables the HTTP API handler. Tokens must be HS256 signed
	// with this secret and carry the account as their subject.
	JWTSecret string `json:"jwt_secret" mapstructure:"jwt_secret" yaml:"jwt_secret"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Currency:      "inr",
		MaxRetries:    3,
		PluginTimeout: 5 * time.Second,
	}
}
