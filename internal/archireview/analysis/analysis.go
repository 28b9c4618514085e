package analysis

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/config"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/domain"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/graph"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/resource"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/review"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/rules"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/semantic"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/store"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/syntax"
)

// ErrNotReviewable is returned for files outside the root or in a language
// without a grammar.
var ErrNotReviewable = errors.New("file is not reviewable")

// Analyzer reviews a project directory. It owns the shared resources, the
// rule registry and the reviewer, and keeps the latest report per file.
type Analyzer struct {
	root   string
	cfg    *config.Config
	store  *store.Store
	logger *slog.Logger

	graph     *graph.Graph
	solution  *semantic.Solution
	spelling  *resource.Dictionary
	catalogue *resource.TypeCatalogue
	registry  *rules.Registry
	reviewer  *review.Reviewer

	mu      sync.RWMutex
	reports map[string]*review.Report
}

type options struct {
	store      *store.Store
	logger     *slog.Logger
	typeSource resource.TypeSource
}

type Option func(*options)

// WithStore persists the graph and every review to st.
func WithStore(st *store.Store) Option {
	return func(o *options) { o.store = st }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTypeSource replaces the go/packages backed type source.
func WithTypeSource(src resource.TypeSource) Option {
	return func(o *options) { o.typeSource = src }
}

// NewAnalyzer wires the resources, rules and reviewer described by cfg.
func NewAnalyzer(root string, cfg *config.Config, opts ...Option) (*Analyzer, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if cfg == nil {
		d := config.DefaultConfig()
		cfg = &d
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	dictOpts := []resource.DictionaryOption{
		resource.WithWords(cfg.Spelling.Words...),
		resource.WithExemptPatterns(cfg.Spelling.ExemptPatterns...),
		resource.WithDictionaryLogger(o.logger),
	}
	if cfg.Spelling.WordFile != "" {
		dictOpts = append(dictOpts, resource.WithWordFile(filepath.Join(absRoot, cfg.Spelling.WordFile)))
	}
	dict, err := resource.NewDictionary(dictOpts...)
	if err != nil {
		return nil, err
	}

	src := o.typeSource
	if src == nil {
		src = defaultTypeSource(absRoot, cfg, o.logger)
	}
	catalogue := resource.NewTypeCatalogue(src, o.logger)

	registry := rules.NewRegistry(rules.Dependencies{
		Spelling: dict,
		Types:    catalogue,
		Settings: cfg.Rules,
	})
	syn, sem, err := registry.Without(cfg.DisabledRules...)
	if err != nil {
		return nil, err
	}

	g := graph.NewGraph(o.store)
	a := &Analyzer{
		root:      absRoot,
		cfg:       cfg,
		store:     o.store,
		logger:    o.logger,
		graph:     g,
		solution:  semantic.NewSolution(cfg.Project, g, o.logger),
		spelling:  dict,
		catalogue: catalogue,
		registry:  registry,
		reviewer: review.NewReviewer(syn, sem,
			review.WithConcurrency(cfg.Concurrency),
			review.WithLogger(o.logger)),
		reports: make(map[string]*review.Report),
	}
	return a, nil
}

func defaultTypeSource(root string, cfg *config.Config, logger *slog.Logger) resource.TypeSource {
	known := resource.StaticSource{Name: "config", Names: cfg.Types.Known}
	if cfg.Types.SkipPackages {
		return known
	}
	var pkgs resource.TypeSource = resource.PackagesSource{Patterns: cfg.Types.Packages, Dir: root}
	if !cfg.Types.NoCache {
		cache, err := resource.OpenDiskCache("archireview")
		if err != nil {
			logger.Warn("type catalogue cache disabled", slog.String("error", err.Error()))
		} else {
			pkgs = resource.CachedSource{Inner: pkgs, Cache: cache}
		}
	}
	return resource.MultiSource{known, pkgs}
}

func (a *Analyzer) Root() string                 { return a.root }
func (a *Analyzer) Config() *config.Config       { return a.cfg }
func (a *Analyzer) Graph() *graph.Graph          { return a.graph }
func (a *Analyzer) Solution() *semantic.Solution { return a.solution }
func (a *Analyzer) Registry() *rules.Registry    { return a.registry }

// ResetCaches drops every memoized shared resource, including the type
// catalogue snapshot kept on disk.
func (a *Analyzer) ResetCaches() {
	for _, r := range []resource.Resettable{a.spelling, a.catalogue, a.solution} {
		r.Reset()
	}
}

// Rel converts a path to the slash separated form used in reports.
func (a *Analyzer) Rel(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(a.root, path)
	}
	rel, err := filepath.Rel(a.root, path)
	if err != nil || rel == ".." || filepath.IsAbs(rel) || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator) {
		return "", fmt.Errorf("%s: %w", path, ErrNotReviewable)
	}
	return filepath.ToSlash(rel), nil
}

// Reviewable reports whether a path has a supported language.
func Reviewable(path string) bool {
	return syntax.Supported(syntax.DetectLanguage(path))
}

// Scan lists the reviewable files under the root, sorted.
func (a *Analyzer) Scan(ctx context.Context) ([]string, error) {
	var files []string
	err := filepath.WalkDir(a.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != a.root && (a.cfg.Excluded(d.Name()) || d.Name() == filepath.Base(a.cfg.PersistenceDir)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !Reviewable(path) {
			return nil
		}
		rel, err := a.Rel(path)
		if err != nil {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	sort.Strings(files)
	return files, err
}

type parsed struct {
	file  string
	tree  *syntax.Tree
	model *semantic.Model
}

func (a *Analyzer) parse(ctx context.Context, rel string) (*parsed, error) {
	content, err := os.ReadFile(filepath.Join(a.root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, err
	}
	tree, err := syntax.Parse(ctx, content, rel)
	if err != nil {
		return nil, err
	}
	model, err := semantic.NewModel(tree)
	if err != nil {
		tree.Close()
		return nil, err
	}
	return &parsed{file: rel, tree: tree, model: model}, nil
}

func (a *Analyzer) concurrency() int {
	if a.cfg.Concurrency > 0 {
		return a.cfg.Concurrency
	}
	return -1
}

// Run reviews the whole project and returns one report per file, ordered
// by path. Files that fail to parse are logged and skipped.
func (a *Analyzer) Run(ctx context.Context) ([]*review.Report, error) {
	files, err := a.Scan(ctx)
	if err != nil {
		return nil, err
	}

	slots := make([]*parsed, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency())
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			p, err := a.parse(gctx, f)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				a.logger.Warn("skipping file", slog.String("file", f), slog.String("error", err.Error()))
				return nil
			}
			slots[i] = p
			return nil
		})
	}
	err = g.Wait()
	defer func() {
		for _, p := range slots {
			if p != nil {
				p.tree.Close()
			}
		}
	}()
	if err != nil {
		return nil, err
	}

	a.forgetMissing(files)
	for _, p := range slots {
		if p != nil {
			a.solution.Index(p.model)
		}
	}
	a.solution.Link()

	reports := make([]*review.Report, len(slots))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency())
	for i, p := range slots {
		if p == nil {
			continue
		}
		i, p := i, p
		g.Go(func() error {
			r, err := a.review(gctx, p)
			if err != nil {
				return err
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*review.Report, 0, len(reports))
	for _, r := range reports {
		if r != nil {
			out = append(out, r)
		}
	}
	if err := a.record(ctx, out...); err != nil {
		return out, err
	}
	s := review.Summarize(out)
	a.logger.Info("review complete",
		slog.Int("files", s.Files),
		slog.Int("results", s.Results),
		slog.Int("faults", s.Faults))
	return out, nil
}

// forgetMissing drops files restored from the store that no longer exist.
func (a *Analyzer) forgetMissing(files []string) {
	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f] = true
	}
	for _, n := range a.graph.NodesOfKind(domain.NodeKindFile) {
		if path := n.String(domain.PropPath); !present[path] {
			a.logger.Debug("dropping stale file", slog.String("file", path))
			a.solution.Remove(path)
		}
	}
}

func (a *Analyzer) review(ctx context.Context, p *parsed) (*review.Report, error) {
	return a.reviewer.Review(ctx, review.Request{
		Project:  a.cfg.Project,
		File:     p.file,
		Root:     p.tree.Root(),
		Model:    p.model,
		Solution: a.solution,
	})
}

// ReviewFile re-parses and re-reviews one file and refreshes its place in
// the project graph.
func (a *Analyzer) ReviewFile(ctx context.Context, path string) (*review.Report, error) {
	rel, err := a.Rel(path)
	if err != nil {
		return nil, err
	}
	if !Reviewable(rel) {
		return nil, fmt.Errorf("%s: %w", rel, ErrNotReviewable)
	}
	p, err := a.parse(ctx, rel)
	if err != nil {
		return nil, err
	}
	defer p.tree.Close()

	a.solution.Index(p.model)
	a.solution.Link()

	report, err := a.review(ctx, p)
	if err != nil {
		return nil, err
	}
	return report, a.record(ctx, report)
}

// Forget drops a deleted file from the graph and the latest reports.
func (a *Analyzer) Forget(path string) {
	rel, err := a.Rel(path)
	if err != nil {
		return
	}
	a.solution.Remove(rel)
	a.solution.Link()
	a.mu.Lock()
	delete(a.reports, rel)
	a.mu.Unlock()
}

func (a *Analyzer) record(ctx context.Context, reports ...*review.Report) error {
	a.mu.Lock()
	for _, r := range reports {
		a.reports[r.File] = r
	}
	a.mu.Unlock()

	if a.store == nil {
		return nil
	}
	for _, r := range reports {
		if _, err := a.store.SaveReport(ctx, r); err != nil {
			return fmt.Errorf("save report %s: %w", r.File, err)
		}
	}
	return nil
}

// Reports returns the latest report of every reviewed file, ordered by path.
func (a *Analyzer) Reports() []*review.Report {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*review.Report, 0, len(a.reports))
	for _, r := range a.reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out
}

// Report returns the latest report of one file.
func (a *Analyzer) Report(path string) (*review.Report, bool) {
	rel, err := a.Rel(path)
	if err != nil {
		return nil, false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	r, ok := a.reports[rel]
	return r, ok
}

// Impacted returns the files that import path directly or transitively.
func (a *Analyzer) Impacted(path string) ([]string, error) {
	rel, err := a.Rel(path)
	if err != nil {
		return nil, err
	}
	ids := a.graph.Impacted(domain.FileID(rel))
	files := make([]string, len(ids))
	for i, id := range ids {
		files[i] = strings.TrimPrefix(id, domain.FileID(""))
	}
	return files, nil
}
