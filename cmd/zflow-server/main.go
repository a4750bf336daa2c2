// Command zflow-server runs the HTTP façade against a selectable
// storage backend.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "modernc.org/sqlite"

	"github.com/flowzero/zflow/internal/executor"
	"github.com/flowzero/zflow/internal/httpapi"
	"github.com/flowzero/zflow/internal/kv"
	"github.com/flowzero/zflow/internal/registry"
	"github.com/flowzero/zflow/pkg/api"
)

// config is the minimal set of flags the hosting process supplies;
// backend selection and connection info are collaborators spec.md
// leaves out of the core (§1).
type config struct {
	addr       string
	backend    string
	sqlitePath string
}

func parseConfig() config {
	var cfg config
	flag.StringVar(&cfg.addr, "addr", ":8080", "HTTP listen address")
	flag.StringVar(&cfg.backend, "backend", "memory", "storage backend: memory | sqlite")
	flag.StringVar(&cfg.sqlitePath, "sqlite-path", "zflow.db", "SQLite database path when -backend=sqlite")
	flag.Parse()
	return cfg
}

func openStore(cfg config) (api.KVStore, error) {
	switch cfg.backend {
	case "memory":
		return kv.NewMemoryStore(), nil
	case "sqlite":
		db, err := sql.Open("sqlite", cfg.sqlitePath)
		if err != nil {
			return nil, err
		}
		return kv.NewSQLiteStore(db)
	default:
		log.Fatalf("unknown backend %q", cfg.backend)
		return nil, nil
	}
}

func main() {
	cfg := parseConfig()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	store, err := openStore(cfg)
	if err != nil {
		logger.Error("opening storage backend", "backend", cfg.backend, "error", err)
		os.Exit(1)
	}

	observer := api.NewSlogObserver(logger)
	exec := executor.New(store, observer)
	defer exec.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := exec.RestartAll(ctx); err != nil {
		logger.Error("restarting in-flight flows", "error", err)
		os.Exit(1)
	}

	templates := registry.New(store)
	server := httpapi.New(templates, exec, logger)

	httpServer := &http.Server{Addr: cfg.addr, Handler: server}
	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	logger.Info("zflow server listening", "addr", cfg.addr, "backend", cfg.backend)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("http server exited", "error", err)
		os.Exit(1)
	}
}
