package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/domain"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/graph"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/review"
)

func sampleReports() []*review.Report {
	return []*review.Report{
		{Project: "demo", File: "a.go"},
		{Project: "demo", File: "b.go", Results: []review.Result{{
			Rule: review.Metadata{ID: "too-many-parameters", Quality: review.QualityNeedsRefactoring},
		}}},
		{Project: "demo", File: "c.go"},
	}
}

func TestBuildExcalidraw(t *testing.T) {
	g := graph.NewGraph(nil)
	for _, f := range []string{"a.go", "b.go", "c.go"} {
		g.AddNode(&domain.Node{ID: domain.FileID(f), Kind: domain.NodeKindFile})
	}
	g.AddEdge(domain.FileID("a.go"), domain.FileID("b.go"), domain.EdgeTypeImports)
	g.AddEdge(domain.FileID("a.go"), domain.ModuleID("fmt"), domain.EdgeTypeImports)

	scene := BuildExcalidraw(sampleReports(), g)
	assert.Equal(t, "archireview", scene.Source)

	var rects, arrows []ExcalidrawElement
	for _, el := range scene.Elements {
		switch el.Type {
		case "rectangle":
			rects = append(rects, el)
		case "arrow":
			arrows = append(arrows, el)
		}
	}
	require.Len(t, rects, 3)
	// Worst row comes first.
	assert.Equal(t, domain.FileID("b.go"), rects[0].ID)
	assert.Equal(t, qualityColors[review.QualityNeedsRefactoring][0], rects[0].BackgroundColor)
	assert.Equal(t, rects[1].Y, rects[2].Y)
	assert.Greater(t, rects[1].Y, rects[0].Y)

	require.Len(t, arrows, 1)
	assert.Equal(t, domain.FileID("b.go"), arrows[0].EndBinding.ElementID)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, "demo", sampleReports()))

	var doc Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "demo", doc.Project)
	assert.Equal(t, 3, doc.Summary.Files)
	assert.Equal(t, 1, doc.Summary.ByQuality[review.QualityNeedsRefactoring])
	assert.Len(t, doc.Reports, 3)
}

func TestWriteFormats(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "board.excalidraw")
	require.NoError(t, Write(FormatExcalidraw, out, "demo", sampleReports(), nil))
	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"type": "excalidraw"`)

	assert.Error(t, Write("svg", filepath.Join(dir, "x.svg"), "demo", nil, nil))
}
