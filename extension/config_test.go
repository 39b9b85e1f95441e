package extension

import (
	"testing"
	"time"
)

func TestMergeWithDefaults(t *testing.T) {
	got := mergeWithDefaults(Config{Currency: "usd"})
	if got.Currency != "usd" || got.MaxRetries != 3 || got.PluginTimeout != 5*time.Second {
		t.Errorf("merged = %+v", got)
	}
}

func TestMergeConfigurations(t *testing.T) {
	yaml := Config{Currency: "eur", MaxRetries: 7}
	programmatic := Config{
		Currency:       "usd",
		DisableMetrics: true,
		JWTSecret:      "s3cret",
		PluginTimeout:  time.Second,
	}

	got := mergeConfigurations(yaml, programmatic)

	tests := []struct {
		name string
		ok   bool
	}{
		{"yaml currency wins", got.Currency == "eur"},
		{"yaml retries win", got.MaxRetries == 7},
		{"programmatic timeout fills gap", got.PluginTimeout == time.Second},
		{"programmatic secret fills gap", got.JWTSecret == "s3cret"},
		{"programmatic flag sticks", got.DisableMetrics},
		{"unset flag stays off", !got.DisableAudit},
	}
	for _, tt := range tests {
		if !tt.ok {
			t.Errorf("%s: merged = %+v", tt.name, got)
		}
	}
}
