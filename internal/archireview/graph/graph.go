package graph

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/domain"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/store"
)

// Graph is the in-memory project graph of files, types and members.
// It mirrors every change to the persistent store when one is configured.
type Graph struct {
	mu           sync.RWMutex
	nodes        map[string]*domain.Node
	edges        map[string][]*domain.Edge // SourceID -> Edges
	reverseEdges map[string][]*domain.Edge // TargetID -> Edges
	store        *store.Store
}

// NewGraph creates a new Graph instance.
// If a store is provided, it loads the initial state from the store.
func NewGraph(s *store.Store) *Graph {
	g := &Graph{
		nodes:        make(map[string]*domain.Node),
		edges:        make(map[string][]*domain.Edge),
		reverseEdges: make(map[string][]*domain.Edge),
		store:        s,
	}
	if s != nil {
		if err := g.loadFromStore(); err != nil {
			slog.Default().Warn("failed to load graph from store", slog.String("error", err.Error()))
		}
	}
	return g
}

func (g *Graph) loadFromStore() error {
	nodes, edges, err := g.store.LoadAll()
	if err != nil {
		return err
	}
	for _, n := range nodes {
		g.nodes[n.ID] = n
	}
	for _, e := range edges {
		g.addEdgeInternal(e)
	}
	return nil
}

func (g *Graph) persist(op string, err error) {
	if err != nil {
		slog.Default().Warn("graph persistence failed", slog.String("op", op), slog.String("error", err.Error()))
	}
}

// AddNode adds a node to the graph, replacing any node with the same ID.
func (g *Graph) AddNode(node *domain.Node) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[node.ID] = node
	if g.store != nil {
		g.persist("save node", g.store.SaveNode(node))
	}
}

// RemoveNode removes a node and all connected edges from the graph.
func (g *Graph) RemoveNode(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeNodeLocked(id)
}

func (g *Graph) removeNodeLocked(id string) {
	if _, exists := g.nodes[id]; !exists {
		return
	}
	delete(g.nodes, id)

	if outgoing, ok := g.edges[id]; ok {
		for _, edge := range outgoing {
			g.removeReverseEdge(edge.TargetID, id, "")
		}
		delete(g.edges, id)
	}
	if incoming, ok := g.reverseEdges[id]; ok {
		for _, edge := range incoming {
			g.removeForwardEdge(edge.SourceID, id, "")
		}
		delete(g.reverseEdges, id)
	}

	if g.store != nil {
		g.persist("delete node", g.store.DeleteNode(id))
	}
}

// RemoveFile removes a file node together with every node it declares.
func (g *Graph) RemoveFile(fileID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var declared []string
	queue := []string{fileID}
	seen := map[string]bool{fileID: true}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, e := range g.edges[id] {
			if e.Type == domain.EdgeTypeDeclares && !seen[e.TargetID] {
				seen[e.TargetID] = true
				declared = append(declared, e.TargetID)
				queue = append(queue, e.TargetID)
			}
		}
	}
	for _, id := range declared {
		g.removeNodeLocked(id)
	}
	g.removeNodeLocked(fileID)
}

// removeForwardEdge drops edges source->target, of any type when typ is "".
func (g *Graph) removeForwardEdge(sourceID, targetID string, typ domain.EdgeType) {
	edges := g.edges[sourceID]
	newEdges := edges[:0]
	for _, e := range edges {
		if e.TargetID != targetID || (typ != "" && e.Type != typ) {
			newEdges = append(newEdges, e)
		}
	}
	if len(newEdges) == 0 {
		delete(g.edges, sourceID)
	} else {
		g.edges[sourceID] = newEdges
	}
}

func (g *Graph) removeReverseEdge(targetID, sourceID string, typ domain.EdgeType) {
	edges := g.reverseEdges[targetID]
	newEdges := edges[:0]
	for _, e := range edges {
		if e.SourceID != sourceID || (typ != "" && e.Type != typ) {
			newEdges = append(newEdges, e)
		}
	}
	if len(newEdges) == 0 {
		delete(g.reverseEdges, targetID)
	} else {
		g.reverseEdges[targetID] = newEdges
	}
}

// GetNode retrieves a node by its ID.
func (g *Graph) GetNode(id string) (*domain.Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// GetAllNodes returns all nodes ordered by ID.
func (g *Graph) GetAllNodes() []*domain.Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	nodes := make([]*domain.Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// NodesOfKind returns the nodes of one kind ordered by ID.
func (g *Graph) NodesOfKind(kind domain.NodeKind) []*domain.Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var nodes []*domain.Node
	for _, n := range g.nodes {
		if n.Kind == kind {
			nodes = append(nodes, n)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// AddEdge adds a directed edge between two nodes.
func (g *Graph) AddEdge(sourceID, targetID string, edgeType domain.EdgeType) {
	g.mu.Lock()
	defer g.mu.Unlock()

	edge := &domain.Edge{
		SourceID: sourceID,
		TargetID: targetID,
		Type:     edgeType,
	}

	if g.addEdgeInternal(edge) && g.store != nil {
		g.persist("save edge", g.store.SaveEdge(edge))
	}
}

// RemoveEdgesFrom removes every outgoing edge of the given type.
func (g *Graph) RemoveEdgesFrom(sourceID string, edgeType domain.EdgeType) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, e := range append([]*domain.Edge(nil), g.edges[sourceID]...) {
		if e.Type != edgeType {
			continue
		}
		g.removeForwardEdge(sourceID, e.TargetID, edgeType)
		g.removeReverseEdge(e.TargetID, sourceID, edgeType)
		if g.store != nil {
			g.persist("delete edge", g.store.DeleteEdge(e))
		}
	}
}

// addEdgeInternal reports whether the edge was new.
func (g *Graph) addEdgeInternal(edge *domain.Edge) bool {
	for _, e := range g.edges[edge.SourceID] {
		if e.TargetID == edge.TargetID && e.Type == edge.Type {
			return false
		}
	}

	g.edges[edge.SourceID] = append(g.edges[edge.SourceID], edge)
	g.reverseEdges[edge.TargetID] = append(g.reverseEdges[edge.TargetID], edge)
	return true
}

// GetEdgesFrom returns all edges originating from the given source ID.
func (g *Graph) GetEdgesFrom(sourceID string) []*domain.Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	edges := g.edges[sourceID]
	result := make([]*domain.Edge, len(edges))
	copy(result, edges)
	return result
}

// GetEdgesTo returns all edges pointing to the given target ID.
func (g *Graph) GetEdgesTo(targetID string) []*domain.Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	edges := g.reverseEdges[targetID]
	result := make([]*domain.Edge, len(edges))
	copy(result, edges)
	return result
}

// Impacted returns the files that import fileID directly or transitively,
// ordered by ID. The file itself is not included.
func (g *Graph) Impacted(fileID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := map[string]bool{fileID: true}
	queue := []string{fileID}
	var impacted []string

	for len(queue) > 0 {
		currentID := queue[0]
		queue = queue[1:]

		for _, edge := range g.reverseEdges[currentID] {
			if edge.Type != domain.EdgeTypeImports || visited[edge.SourceID] {
				continue
			}
			source, exists := g.nodes[edge.SourceID]
			if !exists || source.Kind != domain.NodeKindFile {
				continue
			}
			visited[edge.SourceID] = true
			queue = append(queue, edge.SourceID)
			impacted = append(impacted, edge.SourceID)
		}
	}

	sort.Strings(impacted)
	return impacted
}

// Clear removes all nodes and edges from the in-memory graph.
// It does not touch the persistent store.
func (g *Graph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes = make(map[string]*domain.Node)
	g.edges = make(map[string][]*domain.Edge)
	g.reverseEdges = make(map[string][]*domain.Edge)
}
