// Package graph builds role-annotated graphs over the class inheritance
// forest: what-if impact graphs for class removal, plain hierarchy graphs
// for visualization, and archive-level dependency rollups.
package graph

// NodeType classifies a graph node's role in an impact analysis.
// Classification order is Removed, then Orphaned, then Affected; a node
// inserted under an earlier role keeps it.
type NodeType string

const (
	// NodeNormal is a bystander node included for context
	NodeNormal NodeType = "normal"
	// NodeRemoved is a class in the removal set
	NodeRemoved NodeType = "removed"
	// NodeOrphaned is a direct child of a removed class
	NodeOrphaned NodeType = "orphaned"
	// NodeAffected is a recursive descendant of an orphan
	NodeAffected NodeType = "affected"
)

// Node is a visualization/impact unit
type Node struct {
	ID                   string   `json:"id"`
	NodeType             NodeType `json:"nodeType"`
	SourceFileIndex      *int64   `json:"sourceFileIndex,omitempty"`
	ParentID             *string  `json:"parentId,omitempty"`
	ContainerClass       *string  `json:"containerClass,omitempty"`
	SourcePath           string   `json:"sourcePath,omitempty"`
	IsForwardDeclaration bool     `json:"isForwardDeclaration,omitempty"`
}

// Edge is a directed parent-to-child link. Weight is 1.0 for class edges
// and a dependency count when edges are aggregated to archive level.
type Edge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
}

// Data holds the nodes and edges of a built graph
type Data struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`

	seen map[string]struct{}
}

// NewData creates an empty graph
func NewData() *Data {
	return &Data{seen: make(map[string]struct{})}
}

// AddNode inserts a node unless its id is already present. The first
// insertion wins, which is what gives earlier classification steps
// precedence over later ones.
func (d *Data) AddNode(node Node) bool {
	if d.seen == nil {
		d.seen = make(map[string]struct{}, len(d.Nodes))
		for _, n := range d.Nodes {
			d.seen[n.ID] = struct{}{}
		}
	}
	if _, ok := d.seen[node.ID]; ok {
		return false
	}
	d.seen[node.ID] = struct{}{}
	d.Nodes = append(d.Nodes, node)
	return true
}

// HasNode reports whether a node id is already in the graph
func (d *Data) HasNode(id string) bool {
	if d.seen == nil {
		return false
	}
	_, ok := d.seen[id]
	return ok
}

// AddEdge appends a directed edge
func (d *Data) AddEdge(source, target string, weight float64) {
	d.Edges = append(d.Edges, Edge{Source: source, Target: target, Weight: weight})
}

// ImpactAnalysisResult is the outcome of a removal what-if query.
// OrphanedClasses and AffectedClasses are deduplicated and sorted but NOT
// filtered against RemovedClasses; callers that need that correction apply
// it themselves (the trim workflow does, direct visualization does not).
type ImpactAnalysisResult struct {
	RemovedClasses  []string `json:"removedClasses"`
	OrphanedClasses []string `json:"orphanedClasses"`
	AffectedClasses []string `json:"affectedClasses"`
	GraphData       *Data    `json:"graphData"`
}
