package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/notion-graph/pkg/client"
	"github.com/Sternrassler/notion-graph/pkg/graph"
	"github.com/Sternrassler/notion-graph/pkg/logging"
	"github.com/Sternrassler/notion-graph/pkg/metrics"
	"github.com/Sternrassler/notion-graph/pkg/notion"
	"github.com/Sternrassler/notion-graph/pkg/registry"
	"github.com/Sternrassler/notion-graph/pkg/workspace"
)

// FetchCmd implements the fetch command.
type FetchCmd struct {
	Root string `arg:"" help:"Root page or database id"`

	Token       string        `help:"Integration token" env:"NOTION_TOKEN" required:""`
	BaseURL     string        `help:"API root" default:"https://api.notion.com/v1" env:"NOTION_BASE_URL"`
	Timeout     time.Duration `help:"Timeout of one HTTP exchange" default:"32s"`
	Workers     int           `help:"Maximum concurrent item expansions per collection" default:"50"`
	WorkDir     string        `help:"Base directory for run directories (default: system temp)" type:"path"`
	Keep        bool          `help:"Keep the run directory instead of removing it at exit"`
	NoFiles     bool          `name:"skip-attachments" help:"Record attachments without downloading them"`
	NoUsers     bool          `name:"skip-users" help:"Do not load the user directory"`
	Redis       string        `help:"Redis address for a claim registry shared between processes" env:"NOTION_GRAPH_REDIS"`
	RunID       string        `help:"Run id (default: random); processes sharing a Redis run must agree on it"`
	MetricsAddr string        `help:"Serve Prometheus metrics on this address while running"`
	Output      string        `short:"o" help:"Write the summary to this file instead of stdout" type:"path"`
}

// Run executes the command.
func (f *FetchCmd) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	out := io.Writer(os.Stdout)
	if f.Output != "" {
		file, err := os.Create(f.Output)
		if err != nil {
			return fmt.Errorf("create summary file: %w", err)
		}
		defer file.Close()
		out = file
	}
	return f.run(ctx, out)
}

func (f *FetchCmd) run(ctx context.Context, out io.Writer) error {
	runID := f.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := logging.WithRun(logging.NewLogger("cli"), runID)
	start := time.Now()

	if f.MetricsAddr != "" {
		srv := &http.Server{Addr: f.MetricsAddr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Str("addr", f.MetricsAddr).Msg("Metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	cfg := client.DefaultConfig(f.Token)
	cfg.BaseURL = f.BaseURL
	cfg.HTTPTimeout = f.Timeout
	transport, err := client.New(cfg)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	exec := client.NewExecutor(transport, cfg.Retry, nil)
	api := notion.NewAPI(exec)

	reg, closeRegistry, err := f.openRegistry(ctx, runID)
	if err != nil {
		return err
	}
	defer closeRegistry()

	var store graph.Store
	if !f.NoFiles {
		dir, err := workspace.New(f.WorkDir, runID)
		if err != nil {
			return err
		}
		if !f.Keep {
			defer func() {
				if err := dir.Cleanup(); err != nil {
					logger.Warn().Err(err).Msg("Failed to clean up run directory")
				}
			}()
		}
		store = dir
	}

	run, err := graph.NewRun(api, reg, store, graph.Config{
		MaxWorkers:      f.Workers,
		SkipAttachments: f.NoFiles,
		SkipUsers:       f.NoUsers,
	})
	if err != nil {
		return err
	}

	result, err := run.Fetch(ctx, f.Root)
	if err != nil {
		return err
	}

	summary := buildSummary(runID, result, time.Since(start))
	summary.RateLimit = rateLimitSummary(exec.Limiter().State())
	if snap, err := metrics.Snapshot(metrics.Gatherer); err == nil {
		summary.Metrics = snap
	}
	if !f.Keep {
		summary.WorkDir = ""
	}

	logger.Info().
		Int("pages", len(summary.Pages)).
		Int("collections", len(summary.Collections)).
		Int("errors", len(summary.Errors)).
		Msg("Writing run summary")
	return writeSummary(out, summary)
}

// openRegistry returns an in-process registry, or a Redis one when an
// address is configured. The returned func releases it.
func (f *FetchCmd) openRegistry(ctx context.Context, runID string) (registry.Registry, func(), error) {
	if f.Redis == "" {
		reg := registry.NewMemory()
		return reg, func() { _ = reg.Discard(context.Background()) }, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: f.Redis})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("connect to redis %s: %w", f.Redis, err)
	}

	reg, err := registry.NewRedis(rdb, registry.RunKey{RunID: runID})
	if err != nil {
		rdb.Close()
		return nil, nil, err
	}
	release := func() {
		if err := reg.Discard(context.Background()); err != nil {
			logger := logging.NewLogger("cli")
			logger.Warn().Err(err).Msg("Failed to discard claim set")
		}
		rdb.Close()
	}
	return reg, release, nil
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return mux
}
