package trim

import (
	"fmt"
	"sort"

	"cfgdb/internal/storage"
)

// ArchiveAnalyzer determines which archives would end up with no surviving
// classes after a removal. An archive is empty when every class it defines
// is in the removed or orphaned set.
type ArchiveAnalyzer interface {
	AnalyzeArchiveImpact(removedIDs, orphanedIDs []string) ([]string, error)
}

// SQLiteArchiveAnalyzer answers archive emptiness from the class store's
// file index catalog
type SQLiteArchiveAnalyzer struct {
	db *storage.DB
}

// NewSQLiteArchiveAnalyzer creates an analyzer over an open database
func NewSQLiteArchiveAnalyzer(db *storage.DB) *SQLiteArchiveAnalyzer {
	return &SQLiteArchiveAnalyzer{db: db}
}

// AnalyzeArchiveImpact returns the sorted list of archives whose entire
// class set falls inside removedIDs union orphanedIDs
func (a *SQLiteArchiveAnalyzer) AnalyzeArchiveImpact(removedIDs, orphanedIDs []string) ([]string, error) {
	rows, err := a.db.Query(`
		SELECT DISTINCT COALESCE(m.pbo_id, m.normalized_path) AS archive_id, c.id
		FROM classes c
		JOIN file_index_mapping m ON c.source_file_index = m.file_index
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query archive contents: %w", err)
	}
	defer rows.Close()

	archiveClasses := make(map[string][]string)
	for rows.Next() {
		var archiveID, classID string
		if err := rows.Scan(&archiveID, &classID); err != nil {
			return nil, fmt.Errorf("failed to scan archive content row: %w", err)
		}
		archiveClasses[archiveID] = append(archiveClasses[archiveID], classID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating archive contents: %w", err)
	}

	gone := make(map[string]struct{}, len(removedIDs)+len(orphanedIDs))
	for _, id := range removedIDs {
		gone[id] = struct{}{}
	}
	for _, id := range orphanedIDs {
		gone[id] = struct{}{}
	}

	var empty []string
	for archiveID, classIDs := range archiveClasses {
		surviving := false
		for _, id := range classIDs {
			if _, ok := gone[id]; !ok {
				surviving = true
				break
			}
		}
		if !surviving {
			empty = append(empty, archiveID)
		}
	}
	sort.Strings(empty)

	return empty, nil
}
