package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/analysis"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/domain"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/review"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/store"
)

// Resource URIs served by the review server.
const (
	StatusURI  = "archireview://status"
	ReportsURI = "archireview://reports"
	RulesURI   = "archireview://rules"
)

// ReviewServer exposes the analyzer through MCP tools and resources.
type ReviewServer struct {
	Analyzer *analysis.Analyzer // Reviews files and owns the project graph.
	Store    *store.Store       // Review history; may be nil.
	Logger   *slog.Logger
}

// NewServer returns an MCP server backed by the analyzer. The caller is
// expected to have run the initial project review.
func NewServer(an *analysis.Analyzer, st *store.Store, logger *slog.Logger) *mcp.Server {
	if logger == nil {
		logger = slog.Default()
	}
	rs := &ReviewServer{Analyzer: an, Store: st, Logger: logger}

	s := mcp.NewServer(&mcp.Implementation{
		Name:    "archireview",
		Version: "0.1.0",
	}, &mcp.ServerOptions{})

	mcp.AddTool(s, &mcp.Tool{
		Name:        "review_file",
		Description: "Review one file and return its report",
	}, rs.reviewFile)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "review_project",
		Description: "Review every file of the project and return a summary",
	}, rs.reviewProject)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_rules",
		Description: "List the registered review rules",
	}, rs.listRules)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "impacted_files",
		Description: "List files that import a file directly or transitively",
	}, rs.impactedFiles)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "file_history",
		Description: "List past reviews of a file, newest first",
	}, rs.fileHistory)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "reset_caches",
		Description: "Drop cached dictionaries, type catalogues and solution statistics",
	}, rs.resetCaches)

	s.AddResource(&mcp.Resource{
		Name:     "status",
		URI:      StatusURI,
		MIMEType: "application/json",
	}, rs.handleStatus)

	s.AddResource(&mcp.Resource{
		Name:     "reports",
		URI:      ReportsURI,
		MIMEType: "application/json",
	}, rs.handleReports)

	s.AddResource(&mcp.Resource{
		Name:     "rules",
		URI:      RulesURI,
		MIMEType: "application/json",
	}, rs.handleRules)

	return s
}

// Tool Inputs

// FileInput names a file relative to the project root.
type FileInput struct {
	Path string `json:"path" jsonschema:"file path relative to the project root"`
}

// HistoryInput defines the input parameters for the file_history tool.
type HistoryInput struct {
	Path  string `json:"path" jsonschema:"file path relative to the project root"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of runs, 20 when unset"`
}

// EmptyInput defines an empty input structure for tools that require no parameters.
type EmptyInput struct{}

// RuleInfo is one entry of the rule listing.
type RuleInfo struct {
	review.Metadata
	Enabled bool `json:"enabled"`
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(b)}},
	}, nil, nil
}

func errorResult(format string, args ...any) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
	}, nil, nil
}

// Tool Handlers

func (rs *ReviewServer) reviewFile(ctx context.Context, req *mcp.CallToolRequest, input FileInput) (*mcp.CallToolResult, any, error) {
	if input.Path == "" {
		return errorResult("path required")
	}
	report, err := rs.Analyzer.ReviewFile(ctx, input.Path)
	if err != nil {
		return errorResult("review %s: %v", input.Path, err)
	}
	return jsonResult(report)
}

type fileSummary struct {
	File    string         `json:"file"`
	Worst   review.Quality `json:"worst"`
	Results int            `json:"results"`
	Faults  int            `json:"faults"`
}

func (rs *ReviewServer) reviewProject(ctx context.Context, req *mcp.CallToolRequest, input EmptyInput) (*mcp.CallToolResult, any, error) {
	reports, err := rs.Analyzer.Run(ctx)
	if err != nil {
		return errorResult("review project: %v", err)
	}
	files := make([]fileSummary, 0, len(reports))
	for _, r := range reports {
		files = append(files, fileSummary{File: r.File, Worst: r.Worst(), Results: len(r.Results), Faults: len(r.Faults)})
	}
	return jsonResult(map[string]any{
		"summary": review.Summarize(reports),
		"files":   files,
	})
}

func (rs *ReviewServer) rules() ([]RuleInfo, error) {
	catalogue, err := rs.Analyzer.Registry().Catalogue()
	if err != nil {
		return nil, err
	}
	cfg := rs.Analyzer.Config()
	disabled := make(map[string]bool, len(cfg.DisabledRules))
	for _, id := range cfg.DisabledRules {
		disabled[id] = true
	}
	infos := make([]RuleInfo, len(catalogue))
	for i, md := range catalogue {
		infos[i] = RuleInfo{Metadata: md, Enabled: !disabled[md.ID]}
	}
	return infos, nil
}

func (rs *ReviewServer) listRules(ctx context.Context, req *mcp.CallToolRequest, input EmptyInput) (*mcp.CallToolResult, any, error) {
	infos, err := rs.rules()
	if err != nil {
		return errorResult("list rules: %v", err)
	}
	return jsonResult(infos)
}

func (rs *ReviewServer) impactedFiles(ctx context.Context, req *mcp.CallToolRequest, input FileInput) (*mcp.CallToolResult, any, error) {
	files, err := rs.Analyzer.Impacted(input.Path)
	if err != nil {
		return errorResult("impacted files of %s: %v", input.Path, err)
	}
	if files == nil {
		files = []string{}
	}
	return jsonResult(map[string]any{
		"file":     input.Path,
		"impacted": files,
	})
}

func (rs *ReviewServer) fileHistory(ctx context.Context, req *mcp.CallToolRequest, input HistoryInput) (*mcp.CallToolResult, any, error) {
	if rs.Store == nil {
		return errorResult("review history is not persisted")
	}
	rel, err := rs.Analyzer.Rel(input.Path)
	if err != nil {
		return errorResult("%v", err)
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	runs, err := rs.Store.History(ctx, rel, limit)
	if err != nil {
		return errorResult("history of %s: %v", rel, err)
	}
	return jsonResult(runs)
}

func (rs *ReviewServer) resetCaches(ctx context.Context, req *mcp.CallToolRequest, input EmptyInput) (*mcp.CallToolResult, any, error) {
	rs.Analyzer.ResetCaches()
	rs.Logger.Info("caches reset")
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "Caches reset"}},
	}, nil, nil
}

// Resource Handlers

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: uri, MIMEType: "application/json", Text: string(b)},
		},
	}, nil
}

func (rs *ReviewServer) handleStatus(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	g := rs.Analyzer.Graph()
	types, err := rs.Analyzer.Solution().DeclaredTypes(ctx)
	if err != nil {
		return nil, err
	}
	status := map[string]any{
		"project":        rs.Analyzer.Config().Project,
		"root":           rs.Analyzer.Root(),
		"files":          len(g.NodesOfKind(domain.NodeKindFile)),
		"declared_types": len(types),
		"members":        len(g.NodesOfKind(domain.NodeKindMember)),
		"summary":        review.Summarize(rs.Analyzer.Reports()),
		"persisted":      rs.Store != nil,
	}
	return jsonResource(req.Params.URI, status)
}

func (rs *ReviewServer) handleReports(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	reports := rs.Analyzer.Reports()
	if len(reports) == 0 && rs.Store != nil {
		var err error
		if reports, err = rs.Store.LatestReports(ctx); err != nil {
			return nil, err
		}
	}
	return jsonResource(req.Params.URI, reports)
}

func (rs *ReviewServer) handleRules(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	infos, err := rs.rules()
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, infos)
}
