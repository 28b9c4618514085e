package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/export"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/review"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func findings(doc export.Document) map[string][]string {
	byFile := make(map[string][]string)
	for _, r := range doc.Reports {
		byFile[r.File] = nil
		for _, res := range r.Results {
			byFile[r.File] = append(byFile[r.File], res.Rule.ID)
		}
	}
	return byFile
}

// TestReviewTestdata runs an end to end review of the sample project. It
// verifies that excluded directories are skipped, that rules fire in each
// supported language, and that only the project's own interfaces are
// flagged by the public interface rule.
func TestReviewTestdata(t *testing.T) {
	t.Setenv("ARCHIREVIEW_LOG_LEVEL", "error")

	out, err := execute(t, "review", "testdata", "--format", "json", "--no-persist")
	require.NoError(t, err)

	var doc export.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "sample", doc.Project)

	byFile := findings(doc)
	assert.NotContains(t, byFile, "node_modules/left-pad/index.js")
	require.Contains(t, byFile, "billing/invoice.go")

	assert.Contains(t, byFile["billing/invoice.go"], "too-many-parameters")
	assert.Contains(t, byFile["billing/invoice.go"], "goto-statement")
	assert.Contains(t, byFile["app/main.py"], "method-name-spelling")
	assert.Contains(t, byFile["app/main.py"], "single-line-comment-language")

	var flagged []string
	for _, r := range doc.Reports {
		for _, res := range r.Results {
			if res.Rule.ID == "public-interface-implementation" {
				flagged = append(flagged, res.Snippet)
			}
		}
	}
	require.Len(t, flagged, 1)
	assert.Contains(t, flagged[0], "class Circle")

	var files []string
	for _, r := range doc.Reports {
		files = append(files, r.File)
	}
	assert.IsIncreasing(t, files)
}

func TestReviewFailOn(t *testing.T) {
	t.Setenv("ARCHIREVIEW_LOG_LEVEL", "error")

	_, err := execute(t, "review", "testdata", "--no-persist", "--fail-on", review.QualityNeedsReEngineering.String())
	assert.ErrorContains(t, err, "billing/invoice.go")

	_, err = execute(t, "review", "testdata", "--no-persist", "--fail-on", "Terrible")
	assert.Error(t, err)
}

func TestReviewPersistsHistory(t *testing.T) {
	t.Setenv("ARCHIREVIEW_LOG_LEVEL", "error")
	t.Setenv("ARCHIREVIEW_PERSISTENCE_DIR", t.TempDir())

	_, err := execute(t, "review", "testdata")
	require.NoError(t, err)
	_, err = execute(t, "review", "testdata")
	require.NoError(t, err)

	out, err := execute(t, "history", "billing/invoice.go", "--root", "testdata")
	require.NoError(t, err)
	var runs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	assert.Len(t, runs, 2)
}

func TestRulesAndExport(t *testing.T) {
	t.Setenv("ARCHIREVIEW_LOG_LEVEL", "error")

	out, err := execute(t, "rules", "testdata")
	require.NoError(t, err)
	assert.Contains(t, out, "method-name-spelling")
	assert.Contains(t, out, "member-size-outlier")

	board := filepath.Join(t.TempDir(), "board.excalidraw")
	_, err = execute(t, "export", "testdata", "--format", "excalidraw", "--out", board)
	require.NoError(t, err)
	content, err := os.ReadFile(board)
	require.NoError(t, err)
	assert.Contains(t, string(content), "file:billing/invoice.go")
}
