package graph

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"cfgdb/internal/logging"
	"cfgdb/internal/storage"
)

// impactDepth bounds the affected-descendant walk during impact analysis
const impactDepth = 10

// Engine answers graph-shaped questions against the class store
type Engine struct {
	db      *storage.DB
	classes *storage.ClassRepository
	files   *storage.FileIndexRepository
	logger  *logging.Logger
}

// NewEngine creates a graph engine over an open database
func NewEngine(db *storage.DB, logger *logging.Logger) *Engine {
	return &Engine{
		db:      db,
		classes: storage.NewClassRepository(db),
		files:   storage.NewFileIndexRepository(db),
		logger:  logger,
	}
}

// Classes exposes the underlying class repository
func (e *Engine) Classes() *storage.ClassRepository {
	return e.classes
}

// Files exposes the underlying file index repository
func (e *Engine) Files() *storage.FileIndexRepository {
	return e.files
}

// sourcePathOf resolves a record's source path, tolerating unmapped indices
func (e *Engine) sourcePathOf(index *int64) string {
	if index == nil {
		return ""
	}
	path, err := e.files.GetSourcePath(*index)
	if err != nil {
		e.logger.Warn("Failed to resolve source path", map[string]interface{}{
			"fileIndex": *index,
			"error":     err.Error(),
		})
		return ""
	}
	return path
}

// ImpactAnalysis computes the blast radius of removing the given classes:
// their direct children become orphans, the orphans' recursive descendants
// are affected, and the whole picture is assembled into a role-annotated
// graph. An empty input yields an all-empty result.
func (e *Engine) ImpactAnalysis(classesToRemove []string) (*ImpactAnalysisResult, error) {
	if len(classesToRemove) == 0 {
		return &ImpactAnalysisResult{
			RemovedClasses:  []string{},
			OrphanedClasses: []string{},
			AffectedClasses: []string{},
			GraphData:       NewData(),
		}, nil
	}

	orphans, err := e.classes.FindOrphanedByParentRemoval(classesToRemove)
	if err != nil {
		return nil, err
	}
	orphanIDs := sortedIDs(orphans)

	affected, err := e.classes.FindAffectedChildren(orphanIDs, impactDepth)
	if err != nil {
		return nil, err
	}
	affectedIDs := sortedIDs(affected)

	e.logger.Debug("Impact analysis computed", map[string]interface{}{
		"removed":  len(classesToRemove),
		"orphaned": len(orphanIDs),
		"affected": len(affectedIDs),
	})

	removedSet := toSet(classesToRemove)
	orphanSet := toSet(orphanIDs)
	affectedSet := toSet(affectedIDs)

	data := NewData()

	// Removed classes first; their parents come along as context unless the
	// parent is itself being removed.
	for _, id := range classesToRemove {
		record, err := e.classes.Get(id)
		if err != nil {
			return nil, err
		}
		if record == nil {
			continue
		}

		data.AddNode(e.nodeFor(record, NodeRemoved))

		if record.ParentID == nil {
			continue
		}
		parentID := *record.ParentID
		if _, removed := removedSet[parentID]; removed {
			continue
		}
		if !data.HasNode(parentID) {
			parent, err := e.classes.Get(parentID)
			if err != nil {
				return nil, err
			}
			if parent != nil {
				data.AddNode(e.nodeFor(parent, NodeNormal))
			}
		}
		data.AddEdge(parentID, record.ID, 1.0)
	}

	// Orphans hang off their removed parents
	for _, record := range orphans {
		data.AddNode(e.nodeFor(record, NodeOrphaned))
		if record.ParentID != nil {
			data.AddEdge(*record.ParentID, record.ID, 1.0)
		}
	}

	// Affected descendants, pulling in parents not yet present
	for _, record := range affected {
		data.AddNode(e.nodeFor(record, NodeAffected))
		if record.ParentID == nil {
			continue
		}
		parentID := *record.ParentID
		if !data.HasNode(parentID) {
			parent, err := e.classes.Get(parentID)
			if err != nil {
				return nil, err
			}
			if parent != nil {
				role := NodeNormal
				if _, ok := orphanSet[parentID]; ok {
					role = NodeOrphaned
				} else if _, ok := affectedSet[parentID]; ok {
					role = NodeAffected
				}
				data.AddNode(e.nodeFor(parent, role))
			}
		}
		data.AddEdge(parentID, record.ID, 1.0)
	}

	return &ImpactAnalysisResult{
		RemovedClasses:  classesToRemove,
		OrphanedClasses: orphanIDs,
		AffectedClasses: affectedIDs,
		GraphData:       data,
	}, nil
}

// BuildClassHierarchyGraph walks the hierarchy from rootID (or every root
// when rootID is empty) and returns it as a graph of Normal nodes.
// Nodes whose id or resolved source path contains any exclude pattern as a
// case-insensitive substring are dropped; edges pointing at an excluded
// parent are kept dangling.
func (e *Engine) BuildClassHierarchyGraph(rootID string, maxDepth int, excludePatterns []string) (*Data, error) {
	var nodes []*storage.HierarchyNode
	var err error
	if rootID != "" {
		nodes, err = e.classes.GetHierarchy(rootID, maxDepth)
	} else {
		nodes, err = e.classes.GetFullHierarchy(maxDepth)
	}
	if err != nil {
		return nil, err
	}

	e.logger.Debug("Hierarchy fetched", map[string]interface{}{
		"nodes":    len(nodes),
		"root":     rootID,
		"maxDepth": maxDepth,
	})

	// Lowercase patterns once; matching is per-node after that
	patterns := make([]string, len(excludePatterns))
	for i, p := range excludePatterns {
		patterns[i] = strings.ToLower(p)
	}

	// Resolve every distinct source index up front so the filter workers
	// never touch the database.
	sourcePaths := make(map[int64]string)
	for _, node := range nodes {
		if node.SourceFileIndex == nil {
			continue
		}
		idx := *node.SourceFileIndex
		if _, done := sourcePaths[idx]; done {
			continue
		}
		path, err := e.files.GetSourcePath(idx)
		if err != nil {
			return nil, err
		}
		sourcePaths[idx] = path
	}

	keep := make([]bool, len(nodes))
	if len(patterns) == 0 {
		for i := range keep {
			keep[i] = true
		}
	} else {
		// Pure read-only filtering, fanned out across workers
		var g errgroup.Group
		workers := runtime.NumCPU()
		chunk := (len(nodes) + workers - 1) / workers
		for start := 0; start < len(nodes); start += chunk {
			end := start + chunk
			if end > len(nodes) {
				end = len(nodes)
			}
			start, end := start, end
			g.Go(func() error {
				for i := start; i < end; i++ {
					keep[i] = !matchesAny(nodes[i], patterns, sourcePaths)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	data := NewData()
	excluded := 0
	for i, node := range nodes {
		if !keep[i] {
			excluded++
			continue
		}
		graphNode := e.nodeFor(&node.ClassRecord, NodeNormal)
		if node.SourceFileIndex != nil {
			graphNode.SourcePath = sourcePaths[*node.SourceFileIndex]
		}
		data.AddNode(graphNode)
		if node.ParentID != nil {
			data.AddEdge(*node.ParentID, node.ID, 1.0)
		}
	}

	if excluded > 0 {
		e.logger.Debug("Excluded classes by pattern", map[string]interface{}{
			"excluded": excluded,
			"total":    len(nodes),
		})
	}

	return data, nil
}

// matchesAny reports whether a node's id or resolved source path contains
// any of the lowercased patterns
func matchesAny(node *storage.HierarchyNode, patterns []string, sourcePaths map[int64]string) bool {
	id := strings.ToLower(node.ID)
	path := ""
	if node.SourceFileIndex != nil {
		path = strings.ToLower(sourcePaths[*node.SourceFileIndex])
	}
	for _, pattern := range patterns {
		if strings.Contains(id, pattern) {
			return true
		}
		if path != "" && strings.Contains(path, pattern) {
			return true
		}
	}
	return false
}

// BuildPBODependencyGraph aggregates class parent->child edges up to the
// archive level. Self-loops and pairs sharing a source file are skipped;
// edge weight is the number of class dependencies between the archives.
func (e *Engine) BuildPBODependencyGraph() (*Data, error) {
	rows, err := e.db.Query(`
		WITH source_indices AS (
			SELECT c.id AS class_id, c.parent_id, c.source_file_index
			FROM classes c
			WHERE c.source_file_index IS NOT NULL
		),
		index_to_pbo AS (
			SELECT file_index,
			       COALESCE(pbo_id, normalized_path) AS pbo_id
			FROM file_index_mapping
		)
		SELECT parent_idx.pbo_id AS parent_pbo_id,
		       child_idx.pbo_id AS child_pbo_id,
		       COUNT(*) AS dependency_count
		FROM source_indices child
		JOIN source_indices parent ON child.parent_id = parent.class_id
		JOIN index_to_pbo parent_idx ON parent.source_file_index = parent_idx.file_index
		JOIN index_to_pbo child_idx ON child.source_file_index = child_idx.file_index
		WHERE child.source_file_index != parent.source_file_index
		  AND parent_idx.pbo_id != child_idx.pbo_id
		GROUP BY parent_pbo_id, child_pbo_id
		ORDER BY dependency_count DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query archive dependencies: %w", err)
	}
	defer rows.Close()

	data := NewData()
	var archives []string
	seen := make(map[string]struct{})

	for rows.Next() {
		var parentPbo, childPbo string
		var count int64
		if err := rows.Scan(&parentPbo, &childPbo, &count); err != nil {
			return nil, fmt.Errorf("failed to scan archive dependency: %w", err)
		}
		for _, id := range []string{parentPbo, childPbo} {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				archives = append(archives, id)
			}
		}
		data.AddEdge(parentPbo, childPbo, float64(count))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating archive dependencies: %w", err)
	}

	for _, id := range archives {
		data.AddNode(Node{ID: id, NodeType: NodeNormal})
	}

	return data, nil
}

// nodeFor builds a graph node from a class record, resolving provenance
func (e *Engine) nodeFor(record *storage.ClassRecord, role NodeType) Node {
	return Node{
		ID:                   record.ID,
		NodeType:             role,
		SourceFileIndex:      record.SourceFileIndex,
		ParentID:             record.ParentID,
		ContainerClass:       record.ContainerClass,
		SourcePath:           e.sourcePathOf(record.SourceFileIndex),
		IsForwardDeclaration: record.IsForwardDeclaration,
	}
}

// sortedIDs extracts deduplicated, sorted ids from records
func sortedIDs(records []*storage.ClassRecord) []string {
	set := make(map[string]struct{}, len(records))
	for _, record := range records {
		set[record.ID] = struct{}{}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
