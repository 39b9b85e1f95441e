// Command debtbookd serves the debtbook HTTP API.
//
//	debtbookd [-config debtbook.yaml] [-env .env]
//	debtbookd token -account shop-1 [-ttl 24h]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xraph/debtbook"
	"github.com/xraph/debtbook/api"
	audithook "github.com/xraph/debtbook/audit_hook"
	"github.com/xraph/debtbook/observability"
	"github.com/xraph/debtbook/store"
	"github.com/xraph/debtbook/store/memory"
	"github.com/xraph/debtbook/store/mongo"
	"github.com/xraph/debtbook/store/mysql"
	"github.com/xraph/debtbook/store/postgres"
	"github.com/xraph/debtbook/store/sqlite"
	"github.com/xraph/debtbook/store/sqlstore"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "debtbookd:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) > 0 && args[0] == "token" {
		return runToken(args[1:])
	}

	fset := flag.NewFlagSet("debtbookd", flag.ContinueOnError)
	configFile := fset.String("config", "", "path to a YAML config file")
	envFile := fset.String("env", ".env", "path to a dotenv file")
	if err := fset.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*envFile, *configFile)
	if err != nil {
		return err
	}
	return serve(cfg)
}

func runToken(args []string) error {
	fset := flag.NewFlagSet("token", flag.ContinueOnError)
	account := fset.String("account", "", "account the token acts for")
	ttl := fset.Duration("ttl", 24*time.Hour, "token lifetime")
	configFile := fset.String("config", "", "path to a YAML config file")
	envFile := fset.String("env", ".env", "path to a dotenv file")
	if err := fset.Parse(args); err != nil {
		return err
	}
	if *account == "" {
		return errors.New("token: -account is required")
	}

	cfg, err := loadConfig(*envFile, *configFile)
	if err != nil {
		return err
	}
	token, err := api.IssueToken([]byte(cfg.Auth.JWTSecret), *account, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func serve(cfg *Config) error {
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	l := debtbook.New(s,
		debtbook.WithLogger(logger),
		debtbook.WithCurrency(cfg.Currency),
		debtbook.WithMaxRetries(cfg.MaxRetries),
		debtbook.WithPluginTimeout(cfg.PluginTimeout),
		debtbook.WithPlugin(audithook.New(
			audithook.Multi(audithook.NewHistoryRecorder(s), audithook.NewLogRecorder(logger)),
			audithook.WithLogger(logger),
			audithook.WithCurrency(cfg.Currency),
		)),
		debtbook.WithPlugin(observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))),
	)

	if err := l.Start(ctx); err != nil {
		_ = s.Close()
		return err
	}
	defer func() {
		if err := l.Stop(); err != nil {
			logger.Error("stop failed", "error", err)
		}
	}()

	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	api.New(l, []byte(cfg.Auth.JWTSecret), api.WithLogger(logger)).Register(router)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTP.Addr, "store", cfg.Store.Driver, "orm", cfg.Store.ORM)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.logLevel()}
	if cfg.Log.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func openStore(ctx context.Context, cfg *Config) (store.Store, error) {
	useGorm := cfg.Store.ORM == "gorm"
	switch cfg.Store.Driver {
	case "memory":
		return memory.New(), nil
	case "sqlite":
		if useGorm {
			return sqlstore.OpenSQLite(cfg.Store.DSN)
		}
		return sqlite.Open(ctx, cfg.Store.DSN)
	case "postgres":
		if useGorm {
			return sqlstore.OpenPostgres(cfg.Store.DSN)
		}
		return postgres.Open(ctx, cfg.Store.DSN)
	case "mysql":
		return mysql.Open(cfg.Store.DSN)
	case "mongo":
		return mongo.Open(ctx, cfg.Store.DSN, cfg.Store.Database)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
