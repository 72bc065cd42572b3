package export

import (
	"path/filepath"
	"testing"

	"cfgdb/internal/graph"
)

func sampleGraph() *graph.Data {
	data := graph.NewData()
	data.AddNode(graph.Node{ID: "Base", NodeType: graph.NodeNormal})
	data.AddNode(graph.Node{ID: "Child", NodeType: graph.NodeNormal})
	data.AddEdge("Base", "Child", 1.0)
	return data
}

func TestWriteAndReadGraphJSON(t *testing.T) {
	for _, name := range []string{"graph.json", "graph.json.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			if err := WriteGraphJSON(path, sampleGraph()); err != nil {
				t.Fatalf("write failed: %v", err)
			}

			got, err := ReadGraphJSON(path)
			if err != nil {
				t.Fatalf("read failed: %v", err)
			}
			if len(got.Nodes) != 2 {
				t.Errorf("nodes = %d, want 2", len(got.Nodes))
			}
			if len(got.Edges) != 1 {
				t.Errorf("edges = %d, want 1", len(got.Edges))
			}
			if got.Edges[0].Source != "Base" || got.Edges[0].Target != "Child" {
				t.Errorf("edge = %+v", got.Edges[0])
			}
		})
	}
}

func TestReadGraphJSONMissingFile(t *testing.T) {
	if _, err := ReadGraphJSON(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
