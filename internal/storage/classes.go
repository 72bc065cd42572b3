package storage

import (
	"database/sql"
	"fmt"

	"cfgdb/internal/cfgerr"
)

// maxHierarchyDepth bounds every recursive traversal. Depth is the only
// cycle-safety mechanism in this store: parent references may dangle or
// cycle, so an unbounded walk would never terminate.
const maxHierarchyDepth = 50

// ClassRecord is a node in the inheritance forest.
// ParentID may be absent (root) or dangling (no matching row); dangling
// references represent forward declarations or not-yet-imported parents.
type ClassRecord struct {
	ID                   string  `json:"id"`
	ParentID             *string `json:"parentId,omitempty"`
	ContainerClass       *string `json:"containerClass,omitempty"`
	SourceFileIndex      *int64  `json:"sourceFileIndex,omitempty"`
	IsForwardDeclaration bool    `json:"isForwardDeclaration"`
}

// HierarchyNode is a ClassRecord annotated with its traversal depth.
// Produced only by traversal queries, never persisted.
type HierarchyNode struct {
	ClassRecord
	Depth int `json:"depth"`
}

// ClassRepository provides CRUD and traversal operations for the classes table
type ClassRepository struct {
	db *DB
}

// NewClassRepository creates a new class repository
func NewClassRepository(db *DB) *ClassRepository {
	return &ClassRepository{db: db}
}

const classColumns = "id, parent_id, container_class, source_file_index, is_forward_declaration"

// Create inserts or replaces a class record. Re-importing an existing id
// updates it in place and never errors on duplicates.
func (r *ClassRepository) Create(record *ClassRecord) error {
	if record == nil || record.ID == "" {
		return cfgerr.New(cfgerr.InvalidData, "class record requires a non-empty id")
	}

	_, err := r.db.Exec(`
		INSERT OR REPLACE INTO classes (`+classColumns+`)
		VALUES (?, ?, ?, ?, ?)
	`,
		record.ID,
		record.ParentID,
		record.ContainerClass,
		record.SourceFileIndex,
		record.IsForwardDeclaration,
	)

	if err != nil {
		return fmt.Errorf("failed to create class: %w", err)
	}

	return nil
}

// Get retrieves a class by id, returning (nil, nil) when absent
func (r *ClassRepository) Get(id string) (*ClassRecord, error) {
	var record ClassRecord

	err := r.db.QueryRow(`
		SELECT `+classColumns+`
		FROM classes
		WHERE id = ?
	`, id).Scan(
		&record.ID,
		&record.ParentID,
		&record.ContainerClass,
		&record.SourceFileIndex,
		&record.IsForwardDeclaration,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get class: %w", err)
	}

	return &record, nil
}

// Update updates an existing class record
func (r *ClassRepository) Update(record *ClassRecord) error {
	if record == nil || record.ID == "" {
		return cfgerr.New(cfgerr.InvalidData, "class record requires a non-empty id")
	}

	result, err := r.db.Exec(`
		UPDATE classes
		SET parent_id = ?,
		    container_class = ?,
		    source_file_index = ?,
		    is_forward_declaration = ?
		WHERE id = ?
	`,
		record.ParentID,
		record.ContainerClass,
		record.SourceFileIndex,
		record.IsForwardDeclaration,
		record.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update class: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return cfgerr.Newf(cfgerr.NotFound, "class not found: %s", record.ID)
	}

	return nil
}

// Delete removes a class record
func (r *ClassRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM classes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete class: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return cfgerr.Newf(cfgerr.NotFound, "class not found: %s", id)
	}

	return nil
}

// GetAll returns every class ordered by id
func (r *ClassRepository) GetAll() ([]*ClassRecord, error) {
	rows, err := r.db.Query(`
		SELECT ` + classColumns + `
		FROM classes
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}
	defer rows.Close()

	return scanClassRecords(rows)
}

// FindByParent returns the direct children of parentID
func (r *ClassRepository) FindByParent(parentID string) ([]*ClassRecord, error) {
	rows, err := r.db.Query(`
		SELECT `+classColumns+`
		FROM classes
		WHERE parent_id = ?
		ORDER BY id
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to find classes by parent: %w", err)
	}
	defer rows.Close()

	return scanClassRecords(rows)
}

// GetChildren is a depth-1 convenience over FindByParent
func (r *ClassRepository) GetChildren(parentID string) ([]*ClassRecord, error) {
	return r.FindByParent(parentID)
}

// GetRootClasses returns records with no parent
func (r *ClassRepository) GetRootClasses() ([]*ClassRecord, error) {
	rows, err := r.db.Query(`
		SELECT ` + classColumns + `
		FROM classes
		WHERE parent_id IS NULL
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get root classes: %w", err)
	}
	defer rows.Close()

	return scanClassRecords(rows)
}

// validateDepth rejects traversal depths outside the supported bound
func validateDepth(maxDepth int) error {
	if maxDepth < 0 || maxDepth > maxHierarchyDepth {
		return cfgerr.Newf(cfgerr.InvalidData,
			"max depth %d out of range [0, %d]", maxDepth, maxHierarchyDepth)
	}
	return nil
}

// GetHierarchy walks descendants of rootID through parent_id edges up to
// and including maxDepth, returning nodes sorted by (depth, id). A record
// whose parent cycles back to an ancestor is revisited per depth level
// rather than detected; the depth bound is what guarantees termination.
func (r *ClassRepository) GetHierarchy(rootID string, maxDepth int) ([]*HierarchyNode, error) {
	if err := validateDepth(maxDepth); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(`
		WITH RECURSIVE hierarchy(id, parent_id, container_class, source_file_index, is_forward_declaration, depth) AS (
			SELECT `+classColumns+`, 0
			FROM classes
			WHERE id = ?

			UNION ALL

			SELECT c.id, c.parent_id, c.container_class, c.source_file_index, c.is_forward_declaration, h.depth + 1
			FROM classes c
			JOIN hierarchy h ON c.parent_id = h.id
			WHERE h.depth < ?
		)
		SELECT id, parent_id, container_class, source_file_index, is_forward_declaration, depth
		FROM hierarchy
		ORDER BY depth, id
	`, rootID, maxDepth)
	if err != nil {
		return nil, fmt.Errorf("failed to query hierarchy: %w", err)
	}
	defer rows.Close()

	return scanHierarchyNodes(rows)
}

// GetFullHierarchy runs the same traversal from every root simultaneously,
// producing a single merged (depth, id)-sorted sequence. No roots yields
// an empty result.
func (r *ClassRepository) GetFullHierarchy(maxDepth int) ([]*HierarchyNode, error) {
	if err := validateDepth(maxDepth); err != nil {
		return nil, err
	}

	roots, err := r.GetRootClasses()
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return nil, nil
	}

	rootIDs := make([]string, len(roots))
	for i, root := range roots {
		rootIDs[i] = root.ID
	}

	query := fmt.Sprintf(`
		WITH RECURSIVE hierarchy(id, parent_id, container_class, source_file_index, is_forward_declaration, depth) AS (
			SELECT %s, 0
			FROM classes
			WHERE id IN (%s)

			UNION ALL

			SELECT c.id, c.parent_id, c.container_class, c.source_file_index, c.is_forward_declaration, h.depth + 1
			FROM classes c
			JOIN hierarchy h ON c.parent_id = h.id
			WHERE h.depth < ?
		)
		SELECT id, parent_id, container_class, source_file_index, is_forward_declaration, depth
		FROM hierarchy
		ORDER BY depth, id
	`, classColumns, placeholders(len(rootIDs)))

	args := append(stringArgs(rootIDs), maxDepth)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query full hierarchy: %w", err)
	}
	defer rows.Close()

	return scanHierarchyNodes(rows)
}

// FindOrphanedByParentRemoval returns the records whose parent_id is in
// parentIDs, i.e. the direct children that would lose their parent.
// Empty input yields empty output, not all records.
func (r *ClassRepository) FindOrphanedByParentRemoval(parentIDs []string) ([]*ClassRecord, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}

	var orphans []*ClassRecord
	for _, chunk := range ChunkIDs(parentIDs, maxBatchParams) {
		query := fmt.Sprintf(`
			SELECT %s
			FROM classes
			WHERE parent_id IN (%s)
			ORDER BY id
		`, classColumns, placeholders(len(chunk)))

		rows, err := r.db.Query(query, stringArgs(chunk)...)
		if err != nil {
			return nil, fmt.Errorf("failed to find orphaned classes: %w", err)
		}

		records, err := scanClassRecords(rows)
		rows.Close()
		if err != nil {
			return nil, err
		}
		orphans = append(orphans, records...)
	}

	return orphans, nil
}

// FindAffectedChildren returns the recursive descendants of classIDs,
// excluding classIDs themselves, bounded by maxDepth.
func (r *ClassRepository) FindAffectedChildren(classIDs []string, maxDepth int) ([]*ClassRecord, error) {
	if len(classIDs) == 0 {
		return nil, nil
	}
	if err := validateDepth(maxDepth); err != nil {
		return nil, err
	}

	// A starting id can be reachable at depth > 0 from another starting id
	// (sibling orphan chains, cycles), so the depth filter alone does not
	// exclude the inputs.
	inputs := make(map[string]struct{}, len(classIDs))
	for _, id := range classIDs {
		inputs[id] = struct{}{}
	}

	var affected []*ClassRecord
	for _, chunk := range ChunkIDs(classIDs, maxBatchParams) {
		query := fmt.Sprintf(`
			WITH RECURSIVE affected(id, parent_id, container_class, source_file_index, is_forward_declaration, depth) AS (
				SELECT %s, 0
				FROM classes
				WHERE id IN (%s)

				UNION ALL

				SELECT c.id, c.parent_id, c.container_class, c.source_file_index, c.is_forward_declaration, a.depth + 1
				FROM classes c
				JOIN affected a ON c.parent_id = a.id
				WHERE a.depth < ?
			)
			SELECT id, parent_id, container_class, source_file_index, is_forward_declaration
			FROM affected
			WHERE depth > 0
			ORDER BY id
		`, classColumns, placeholders(len(chunk)))

		args := append(stringArgs(chunk), maxDepth)

		rows, err := r.db.Query(query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to find affected children: %w", err)
		}

		records, err := scanClassRecords(rows)
		rows.Close()
		if err != nil {
			return nil, err
		}
		for _, record := range records {
			if _, isInput := inputs[record.ID]; isInput {
				continue
			}
			affected = append(affected, record)
		}
	}

	return affected, nil
}

// BulkImport inserts or replaces records inside a single transaction.
// An empty slice is a successful no-op.
func (r *ClassRepository) BulkImport(records []*ClassRecord) error {
	if len(records) == 0 {
		return nil
	}

	r.db.logger.Debug("Bulk importing classes", map[string]interface{}{
		"count": len(records),
	})

	return r.db.WithTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT OR REPLACE INTO classes (` + classColumns + `)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare bulk import: %w", err)
		}
		defer stmt.Close()

		for _, record := range records {
			if record == nil || record.ID == "" {
				return cfgerr.New(cfgerr.InvalidData, "class record requires a non-empty id")
			}
			if _, err := stmt.Exec(
				record.ID,
				record.ParentID,
				record.ContainerClass,
				record.SourceFileIndex,
				record.IsForwardDeclaration,
			); err != nil {
				return fmt.Errorf("failed to import class %s: %w", record.ID, err)
			}
		}

		return nil
	})
}

// ClearAll removes every class record
func (r *ClassRepository) ClearAll() error {
	if _, err := r.db.Exec("DELETE FROM classes"); err != nil {
		return fmt.Errorf("failed to clear classes: %w", err)
	}
	return nil
}

// scanClassRecords scans rows into ClassRecord structs
func scanClassRecords(rows *sql.Rows) ([]*ClassRecord, error) {
	var records []*ClassRecord

	for rows.Next() {
		var record ClassRecord
		if err := rows.Scan(
			&record.ID,
			&record.ParentID,
			&record.ContainerClass,
			&record.SourceFileIndex,
			&record.IsForwardDeclaration,
		); err != nil {
			return nil, fmt.Errorf("failed to scan class: %w", err)
		}
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating classes: %w", err)
	}

	return records, nil
}

// scanHierarchyNodes scans rows into HierarchyNode structs
func scanHierarchyNodes(rows *sql.Rows) ([]*HierarchyNode, error) {
	var nodes []*HierarchyNode

	for rows.Next() {
		var node HierarchyNode
		if err := rows.Scan(
			&node.ID,
			&node.ParentID,
			&node.ContainerClass,
			&node.SourceFileIndex,
			&node.IsForwardDeclaration,
			&node.Depth,
		); err != nil {
			return nil, fmt.Errorf("failed to scan hierarchy node: %w", err)
		}
		nodes = append(nodes, &node)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hierarchy nodes: %w", err)
	}

	return nodes, nil
}
