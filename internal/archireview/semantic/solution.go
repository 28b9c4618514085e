package semantic

import (
	"context"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/domain"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/graph"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/metrics"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/resource"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/review"
)

// Solution is the project-wide semantic context. Declarations live in the
// project graph; member size statistics are derived lazily and memoized
// until Reset.
type Solution struct {
	name   string
	graph  *graph.Graph
	stats  *resource.Lazy[metrics.Stats]
	logger *slog.Logger
}

var (
	_ review.Solution     = (*Solution)(nil)
	_ resource.Resettable = (*Solution)(nil)
)

// NewSolution wraps g. A nil logger means slog.Default().
func NewSolution(name string, g *graph.Graph, logger *slog.Logger) *Solution {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Solution{name: name, graph: g, logger: logger}
	s.stats = resource.NewLazy(s.computeStats)
	return s
}

func (s *Solution) Name() string        { return s.name }
func (s *Solution) Graph() *graph.Graph { return s.graph }

// Reset drops the memoized statistics. Call it after the graph changed.
func (s *Solution) Reset() { s.stats.Reset() }

// Index replaces everything known about m's file with m's declarations.
// Import edges are rebuilt by Link.
func (s *Solution) Index(m *Model) {
	fileID := domain.FileID(m.Path())
	s.graph.RemoveFile(fileID)

	s.graph.AddNode(&domain.Node{
		ID:   fileID,
		Kind: domain.NodeKindFile,
		Properties: map[string]interface{}{
			domain.PropPath:     m.Path(),
			domain.PropLanguage: m.Language(),
			domain.PropImports:  m.Imports(),
		},
	})

	for _, t := range m.Types() {
		id := domain.TypeID(m.Path(), t.Name)
		s.graph.AddNode(&domain.Node{
			ID:   id,
			Kind: domain.NodeKindType,
			Properties: map[string]interface{}{
				domain.PropName: t.Name,
				domain.PropPath: m.Path(),
				domain.PropLine: t.Span.StartLine,
			},
		})
		s.graph.AddEdge(fileID, id, domain.EdgeTypeDeclares)
	}

	for _, mem := range m.Members() {
		id := domain.MemberID(m.Path(), mem.Owner, mem.Name, mem.Span.StartLine)
		s.graph.AddNode(&domain.Node{
			ID:   id,
			Kind: domain.NodeKindMember,
			Properties: map[string]interface{}{
				domain.PropName:  mem.Name,
				domain.PropOwner: mem.Owner,
				domain.PropPath:  m.Path(),
				domain.PropLine:  mem.Span.StartLine,
				domain.PropLOC:   mem.Metrics.LinesOfCode,
				domain.PropCC:    mem.Metrics.Cyclomatic,
				domain.PropMI:    mem.Metrics.MaintainabilityIndex,
			},
		})
		parent := fileID
		if mem.Owner != "" {
			if _, ok := s.graph.GetNode(domain.TypeID(m.Path(), mem.Owner)); ok {
				parent = domain.TypeID(m.Path(), mem.Owner)
			}
		}
		s.graph.AddEdge(parent, id, domain.EdgeTypeDeclares)
	}
	s.Reset()
}

// Remove forgets a file and its declarations.
func (s *Solution) Remove(filePath string) {
	s.graph.RemoveFile(domain.FileID(filePath))
	s.Reset()
}

// Link rebuilds the import edges of every file. Imports that resolve to
// a project file point at that file; the rest point at a module node.
func (s *Solution) Link() {
	files := s.graph.NodesOfKind(domain.NodeKindFile)
	known := make(map[string]bool, len(files))
	for _, f := range files {
		known[f.String(domain.PropPath)] = true
	}

	for _, f := range files {
		s.graph.RemoveEdgesFrom(f.ID, domain.EdgeTypeImports)
		from := f.String(domain.PropPath)
		for _, imp := range f.Strings(domain.PropImports) {
			targets := resolve(from, f.String(domain.PropLanguage), imp, known)
			if len(targets) == 0 {
				mod := domain.ModuleID(imp)
				if _, ok := s.graph.GetNode(mod); !ok {
					s.graph.AddNode(&domain.Node{
						ID:         mod,
						Kind:       domain.NodeKindModule,
						Properties: map[string]interface{}{domain.PropName: imp},
					})
				}
				s.graph.AddEdge(f.ID, mod, domain.EdgeTypeImports)
				continue
			}
			for _, t := range targets {
				if t != from {
					s.graph.AddEdge(f.ID, domain.FileID(t), domain.EdgeTypeImports)
				}
			}
		}
	}
	s.logger.Debug("linked imports", slog.Int("files", len(files)))
}

// resolve maps an import to project files. Paths are slash separated and
// relative to the project root.
func resolve(from, language, imp string, known map[string]bool) []string {
	dir := path.Dir(from)
	switch language {
	case "typescript", "javascript":
		if !strings.HasPrefix(imp, ".") {
			return nil
		}
		base := path.Join(dir, imp)
		for _, cand := range []string{base, base + ".ts", base + ".tsx", base + ".js", base + ".jsx",
			base + "/index.ts", base + "/index.js"} {
			if known[cand] {
				return []string{cand}
			}
		}
	case "python":
		rel := strings.ReplaceAll(strings.TrimLeft(imp, "."), ".", "/")
		for _, cand := range []string{rel + ".py", rel + "/__init__.py", path.Join(dir, rel) + ".py"} {
			if known[cand] {
				return []string{cand}
			}
		}
	case "go":
		// Go imports name a package directory; match it by path suffix.
		var out []string
		for p := range known {
			d := path.Dir(p)
			if strings.HasSuffix(p, ".go") && d != "." && (imp == d || strings.HasSuffix(imp, "/"+d)) {
				out = append(out, p)
			}
		}
		sort.Strings(out)
		return out
	}
	return nil
}

// MemberStats returns the lines-of-code statistics of every member in
// the solution.
func (s *Solution) MemberStats() (metrics.Stats, error) {
	return s.stats.Get()
}

func (s *Solution) computeStats() (metrics.Stats, error) {
	members := s.graph.NodesOfKind(domain.NodeKindMember)
	sizes := make([]int, 0, len(members))
	for _, m := range members {
		sizes = append(sizes, m.Int(domain.PropLOC))
	}
	return metrics.Describe(sizes), nil
}

// DeclaredTypes lists the type names declared anywhere in the solution.
func (s *Solution) DeclaredTypes(ctx context.Context) ([]string, error) {
	types := s.graph.NodesOfKind(domain.NodeKindType)
	names := make([]string, 0, len(types))
	for _, t := range types {
		if err := ctx.Err(); err != nil {
			return names, err
		}
		names = append(names, t.String(domain.PropName))
	}
	return names, nil
}
