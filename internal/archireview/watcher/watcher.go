package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/analysis"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/review"
)

// Watcher monitors the project for changes and re-reviews touched files.
// It uses fsnotify to detect file creation, modification, and deletion.
type Watcher struct {
	watcher  *fsnotify.Watcher
	analyzer *analysis.Analyzer
	logger   *slog.Logger

	// OnReport, when set, receives every report produced by the watcher.
	OnReport func(*review.Report)
	// OnRemove, when set, receives the relative path of every forgotten file.
	OnRemove func(string)
}

// NewWatcher watches the analyzer's root recursively, skipping excluded
// directories.
func NewWatcher(analyzer *analysis.Analyzer, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	w := &Watcher{
		watcher:  fw,
		analyzer: analyzer,
		logger:   logger,
	}

	if err := w.addRecursive(analyzer.Root()); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// Start runs the event loop in a separate goroutine until ctx is done or
// the watcher is closed.
func (w *Watcher) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				w.handleEvent(ctx, event)
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("watcher error", slog.String("error", err.Error()))
			}
		}
	}()
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if w.shouldIgnore(event.Name) {
		return
	}

	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Stat(event.Name)
		if err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("watch directory", slog.String("dir", event.Name), slog.String("error", err.Error()))
			}
			return
		}
		w.reviewFile(ctx, event.Name)
	case event.Has(fsnotify.Write):
		w.reviewFile(ctx, event.Name)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if !analysis.Reviewable(event.Name) {
			return
		}
		w.analyzer.Forget(event.Name)
		if rel, err := w.analyzer.Rel(event.Name); err == nil {
			w.logger.Info("forgot file", slog.String("file", rel))
			if w.OnRemove != nil {
				w.OnRemove(rel)
			}
		}
	}
}

func (w *Watcher) reviewFile(ctx context.Context, path string) {
	if !analysis.Reviewable(path) {
		return
	}
	report, err := w.analyzer.ReviewFile(ctx, path)
	if err != nil {
		w.logger.Warn("review failed", slog.String("file", path), slog.String("error", err.Error()))
		return
	}
	w.logger.Info("reviewed file",
		slog.String("file", report.File),
		slog.Int("results", len(report.Results)),
		slog.String("worst", report.Worst().String()))
	if w.OnReport != nil {
		w.OnReport(report)
	}
}

func (w *Watcher) addRecursive(path string) error {
	return filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != w.analyzer.Root() && w.shouldIgnore(p) {
				return filepath.SkipDir
			}
			return w.watcher.Add(p)
		}
		return nil
	})
}

func (w *Watcher) shouldIgnore(path string) bool {
	cfg := w.analyzer.Config()
	rel, err := w.analyzer.Rel(path)
	if err != nil {
		return true
	}
	persist := filepath.ToSlash(filepath.Clean(cfg.PersistenceDir))
	if rel == persist || strings.HasPrefix(rel, persist+"/") {
		return true
	}
	for _, part := range strings.Split(rel, "/") {
		if cfg.Excluded(part) {
			return true
		}
	}
	return false
}
