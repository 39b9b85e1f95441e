package extension

import (
	"context"
	"testing"

	"github.com/xraph/debtbook"
	"github.com/xraph/debtbook/store/memory"
)

type migrateCounter struct {
	*memory.Store
	migrations int
}

func (m *migrateCounter) Migrate(ctx context.Context) error {
	m.migrations++
	return m.Store.Migrate(ctx)
}

type initRecorder struct{ inits int }

func (p *initRecorder) Name() string { return "init-recorder" }

func (p *initRecorder) OnInit(context.Context, any) error {
	p.inits++
	return nil
}

func TestStartInitialisesPlugins(t *testing.T) {
	tests := []struct {
		name           string
		disableMigrate bool
		wantMigrations int
	}{
		{"migrate", false, 1},
		{"migrate disabled", true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &migrateCounter{Store: memory.New()}
			p := &initRecorder{}
			e := New(
				WithConfig(Config{DisableMigrate: tt.disableMigrate, DisableMetrics: true}),
				WithStore(s),
				WithPlugin(p),
			)
			e.config = mergeWithDefaults(e.config)
			e.engine = debtbook.New(e.store, e.buildLedgerOpts()...)

			if err := e.Start(context.Background()); err != nil {
				t.Fatalf("Start: %v", err)
			}
			defer func() { _ = e.Stop(context.Background()) }()

			if s.migrations != tt.wantMigrations {
				t.Errorf("migrations = %d, want %d", s.migrations, tt.wantMigrations)
			}
			if p.inits != 1 {
				t.Errorf("OnInit calls = %d, want 1", p.inits)
			}
		})
	}
}

func TestStartBeforeRegister(t *testing.T) {
	if err := New().Start(context.Background()); err == nil {
		t.Fatal("Start without Register succeeded")
	}
}
