package audithook

import (
	"log/slog"
	"strings"
	"time"
)

// Option configures an Extension.
type Option func(*Extension)

// WithLogger sets the logger for the extension.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extension) {
		e.logger = logger
	}
}

// WithCurrency sets the currency used to format amounts in event details.
func WithCurrency(code string) Option {
	return func(e *Extension) {
		if code != "" {
			e.currency = strings.ToLower(code)
		}
	}
}

// WithClock sets the time source for event timestamps. Without it the
// extension uses the engine's clock once the engine starts.
func WithClock(now func() time.Time) Option {
	return func(e *Extension) {
		if now != nil {
			e.now = now
			e.clockSet = true
		}
	}
}

// WithEnabledActions sets which actions to audit.
// If not called, all actions are audited.
func WithEnabledActions(actions ...string) Option {
	return func(e *Extension) {
		e.enabled = make(map[string]bool)
		for _, action := range actions {
			e.enabled[action] = true
		}
	}
}

// WithDisabledActions sets which actions to skip.
func WithDisabledActions(actions ...string) Option {
	return func(e *Extension) {
		if e.enabled == nil {
			e.enabled = make(map[string]bool)
			for _, action := range allActions() {
				e.enabled[action] = true
			}
		}
		for _, action := range actions {
			delete(e.enabled, action)
		}
	}
}

// allActions returns all known audit actions.
func allActions() []string {
	return []string{
		ActionCounterpartyCreated,
		ActionDebtCreated,
		ActionPaymentRecorded,
		ActionPaymentRejected,
	}
}
