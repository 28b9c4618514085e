package export

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/domain"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/graph"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/review"
)

// ExcalidrawBinding represents the connection of an arrow to an element.
type ExcalidrawBinding struct {
	ElementID string  `json:"elementId"`
	Focus     float64 `json:"focus"`
	Gap       float64 `json:"gap"`
}

// ExcalidrawElement represents a single element in the Excalidraw scene.
type ExcalidrawElement struct {
	Type            string             `json:"type"`
	Version         int                `json:"version"`
	VersionNonce    int                `json:"versionNonce"`
	IsDeleted       bool               `json:"isDeleted"`
	ID              string             `json:"id"`
	FillStyle       string             `json:"fillStyle"`
	StrokeWidth     int                `json:"strokeWidth"`
	StrokeStyle     string             `json:"strokeStyle"`
	Roughness       int                `json:"roughness"`
	Opacity         int                `json:"opacity"`
	Angle           int                `json:"angle"`
	X               float64            `json:"x"`
	Y               float64            `json:"y"`
	StrokeColor     string             `json:"strokeColor"`
	BackgroundColor string             `json:"backgroundColor"`
	Width           float64            `json:"width"`
	Height          float64            `json:"height"`
	Seed            int                `json:"seed"`
	GroupIds        []string           `json:"groupIds"`
	Roundness       any                `json:"roundness"`
	BoundElements   []any              `json:"boundElements"`
	Updated         int64              `json:"updated"`
	Link            any                `json:"link"`
	Locked          bool               `json:"locked"`
	Text            string             `json:"text,omitempty"`
	FontSize        int                `json:"fontSize,omitempty"`
	FontFamily      int                `json:"fontFamily,omitempty"`
	TextAlign       string             `json:"textAlign,omitempty"`
	VerticalAlign   string             `json:"verticalAlign,omitempty"`
	StartBinding    *ExcalidrawBinding `json:"startBinding,omitempty"`
	EndBinding      *ExcalidrawBinding `json:"endBinding,omitempty"`
	Points          [][]float64        `json:"points,omitempty"`
	StartArrowhead  string             `json:"startArrowhead,omitempty"`
	EndArrowhead    string             `json:"endArrowhead,omitempty"`
}

// ExcalidrawScene represents the full file format.
type ExcalidrawScene struct {
	Type     string              `json:"type"`
	Version  int                 `json:"version"`
	Source   string              `json:"source"`
	Elements []ExcalidrawElement `json:"elements"`
	AppState map[string]any      `json:"appState"`
	Files    map[string]any      `json:"files"`
}

// qualityColors maps a quality to its background and stroke colors.
var qualityColors = map[review.Quality][2]string{
	review.QualityBroken:             {"#ffccc7", "#a8071a"},
	review.QualityNeedsReEngineering: {"#ffd8bf", "#d4380d"},
	review.QualityNeedsRefactoring:   {"#fff1b8", "#d48806"},
	review.QualityNeedsCleanup:       {"#fcffe6", "#7cb305"},
	review.QualityNeedsReview:        {"#e6f7ff", "#1890ff"},
	review.QualityGood:               {"#f6ffed", "#52c41a"},
}

func element(typ, id string, x, y, w, h float64) ExcalidrawElement {
	return ExcalidrawElement{
		Type:            typ,
		Version:         1,
		ID:              id,
		FillStyle:       "solid",
		StrokeWidth:     1,
		StrokeStyle:     "solid",
		Roughness:       1,
		Opacity:         100,
		X:               x,
		Y:               y,
		StrokeColor:     "#000000",
		BackgroundColor: "transparent",
		Width:           w,
		Height:          h,
		Seed:            1,
		GroupIds:        []string{},
	}
}

// BuildExcalidraw lays out one box per reviewed file, one row per worst
// quality (worst row first), with arrows for imports between files. g may
// be nil, in which case no arrows are drawn.
func BuildExcalidraw(reports []*review.Report, g *graph.Graph) ExcalidrawScene {
	const (
		nodeWidth  = 240.0
		nodeHeight = 100.0
		paddingX   = 50.0
		rowGap     = 200.0
	)

	rows := make(map[review.Quality][]*review.Report)
	for _, r := range reports {
		if r != nil {
			rows[r.Worst()] = append(rows[r.Worst()], r)
		}
	}

	elements := []ExcalidrawElement{}
	boxes := make(map[string]ExcalidrawElement) // file ID -> rectangle
	currentY := 0.0

	for _, q := range review.Qualities() {
		row := rows[q]
		if len(row) == 0 {
			continue
		}
		sort.Slice(row, func(i, j int) bool { return row[i].File < row[j].File })
		colors := qualityColors[q]

		currentX := 0.0
		for _, r := range row {
			id := domain.FileID(r.File)
			rect := element("rectangle", id, currentX, currentY, nodeWidth, nodeHeight)
			rect.BackgroundColor = colors[0]
			rect.StrokeColor = colors[1]
			rect.Roundness = map[string]int{"type": 3}
			elements = append(elements, rect)
			boxes[id] = rect

			text := element("text", id+"-text", currentX+10, currentY+10, nodeWidth-20, nodeHeight-20)
			text.Text = fmt.Sprintf("%s\n%s (%d results)", r.File, q, len(r.Results))
			text.FontSize = 16
			text.FontFamily = 1
			text.TextAlign = "left"
			text.VerticalAlign = "top"
			elements = append(elements, text)

			currentX += nodeWidth + paddingX
		}
		currentY += nodeHeight + rowGap
	}

	if g != nil {
		ids := make([]string, 0, len(boxes))
		for id := range boxes {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			source := boxes[id]
			for _, e := range g.GetEdgesFrom(id) {
				target, ok := boxes[e.TargetID]
				if e.Type != domain.EdgeTypeImports || !ok {
					continue
				}
				startX := source.X + nodeWidth/2
				startY := source.Y + nodeHeight
				endX := target.X + nodeWidth/2
				endY := target.Y

				arrow := element("arrow", fmt.Sprintf("%s-%s", id, e.TargetID), startX, startY, endX-startX, endY-startY)
				arrow.Points = [][]float64{{0, 0}, {endX - startX, endY - startY}}
				arrow.StartBinding = &ExcalidrawBinding{ElementID: source.ID, Focus: 0.1, Gap: 1}
				arrow.EndBinding = &ExcalidrawBinding{ElementID: target.ID, Focus: 0.1, Gap: 1}
				arrow.EndArrowhead = "arrow"
				elements = append(elements, arrow)
			}
		}
	}

	return ExcalidrawScene{
		Type:     "excalidraw",
		Version:  2,
		Source:   "archireview",
		Elements: elements,
		AppState: map[string]any{"viewBackgroundColor": "#ffffff"},
		Files:    map[string]any{},
	}
}

// WriteExcalidraw encodes the board built by BuildExcalidraw to w.
func WriteExcalidraw(w io.Writer, reports []*review.Report, g *graph.Graph) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(BuildExcalidraw(reports, g))
}
