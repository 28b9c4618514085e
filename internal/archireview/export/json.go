package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/graph"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/review"
)

// Formats accepted by Write.
const (
	FormatJSON       = "json"
	FormatExcalidraw = "excalidraw"
)

// Document is the JSON export of a project review.
type Document struct {
	Project string           `json:"project"`
	Summary review.Summary   `json:"summary"`
	Reports []*review.Report `json:"reports"`
}

func WriteJSON(w io.Writer, project string, reports []*review.Report) error {
	if reports == nil {
		reports = []*review.Report{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(Document{
		Project: project,
		Summary: review.Summarize(reports),
		Reports: reports,
	})
}

// Write exports reports to outputPath in the given format.
func Write(format, outputPath, project string, reports []*review.Report, g *graph.Graph) error {
	var write func(io.Writer) error
	switch format {
	case FormatJSON:
		write = func(w io.Writer) error { return WriteJSON(w, project, reports) }
	case FormatExcalidraw:
		write = func(w io.Writer) error { return WriteExcalidraw(w, reports, g) }
	default:
		return fmt.Errorf("unknown export format %q", format)
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
