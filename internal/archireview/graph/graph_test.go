package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/domain"
)

func file(g *Graph, path string) string {
	id := domain.FileID(path)
	g.AddNode(&domain.Node{ID: id, Kind: domain.NodeKindFile})
	return id
}

func TestImpactedFollowsImportsTransitively(t *testing.T) {
	g := NewGraph(nil)
	a, b, c, d := file(g, "a.go"), file(g, "b.go"), file(g, "c.go"), file(g, "d.go")
	g.AddNode(&domain.Node{ID: domain.ModuleID("fmt"), Kind: domain.NodeKindModule})

	// c imports b, b imports a, d is unrelated; a cycle back to a must terminate.
	g.AddEdge(b, a, domain.EdgeTypeImports)
	g.AddEdge(c, b, domain.EdgeTypeImports)
	g.AddEdge(a, c, domain.EdgeTypeImports)
	g.AddEdge(d, domain.ModuleID("fmt"), domain.EdgeTypeImports)

	assert.Equal(t, []string{b, c}, g.Impacted(a))
	assert.Empty(t, g.Impacted(d))
	assert.Equal(t, []string{d}, g.Impacted(domain.ModuleID("fmt")))
}

func TestRemoveFileDropsDeclarations(t *testing.T) {
	g := NewGraph(nil)
	f := file(g, "a.go")
	typ := domain.TypeID("a.go", "T")
	mem := domain.MemberID("a.go", "T", "Run", 3)
	g.AddNode(&domain.Node{ID: typ, Kind: domain.NodeKindType})
	g.AddNode(&domain.Node{ID: mem, Kind: domain.NodeKindMember})
	g.AddEdge(f, typ, domain.EdgeTypeDeclares)
	g.AddEdge(typ, mem, domain.EdgeTypeDeclares)

	other := file(g, "b.go")
	g.AddEdge(other, f, domain.EdgeTypeImports)

	g.RemoveFile(f)

	for _, id := range []string{f, typ, mem} {
		_, ok := g.GetNode(id)
		assert.False(t, ok, id)
	}
	assert.Empty(t, g.GetEdgesFrom(other))
	assert.Len(t, g.GetAllNodes(), 1)
}

func TestRemoveEdgesFromKeepsOtherTypes(t *testing.T) {
	g := NewGraph(nil)
	a, b := file(g, "a.go"), file(g, "b.go")
	g.AddEdge(a, b, domain.EdgeTypeImports)
	g.AddEdge(a, b, domain.EdgeTypeDeclares)
	g.AddEdge(a, b, domain.EdgeTypeImports)
	assert.Len(t, g.GetEdgesFrom(a), 2)

	g.RemoveEdgesFrom(a, domain.EdgeTypeImports)
	edges := g.GetEdgesFrom(a)
	assert.Len(t, edges, 1)
	assert.Equal(t, domain.EdgeTypeDeclares, edges[0].Type)
	assert.Len(t, g.GetEdgesTo(b), 1)
	assert.Len(t, g.NodesOfKind(domain.NodeKindFile), 2)
}
