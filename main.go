package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/analysis"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/config"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/logging"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/store"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/telemetry"
)

// main is the entry point for the archireview CLI. Without a subcommand it
// reviews the given directory and serves the results over MCP on stdio.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// project bundles everything a command needs to review a directory.
type project struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	analyzer *analysis.Analyzer
	shutdown func(context.Context) error
}

// openProject loads the configuration of rootDir and wires the analyzer.
// With persist set, the graph and every review are stored in the project's
// persistence directory.
func openProject(ctx context.Context, rootDir string, persist bool) (*project, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(absRoot)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := logging.New(cfg.Logging.Format, cfg.Logging.Level)

	shutdown, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	p := &project{cfg: cfg, logger: logger, shutdown: shutdown}
	opts := []analysis.Option{analysis.WithLogger(logger)}
	if persist {
		st, err := store.NewStore(cfg.StoreDir(absRoot))
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to init store: %w", err)
		}
		p.store = st
		opts = append(opts, analysis.WithStore(st))
	}

	p.analyzer, err = analysis.NewAnalyzer(absRoot, cfg, opts...)
	if err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func (p *project) Close() error {
	var errs []error
	if p.store != nil {
		errs = append(errs, p.store.Close())
	}
	errs = append(errs, p.shutdown(context.Background()))
	return errors.Join(errs...)
}
