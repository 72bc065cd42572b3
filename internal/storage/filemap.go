package storage

import (
	"database/sql"
	"fmt"
)

// FileIndexMapping maps an opaque source-file index to a display path and
// owning archive. One index may have several rows; the non-forward-
// declaration row wins on lookup.
type FileIndexMapping struct {
	FileIndex            int64   `json:"fileIndex"`
	FilePath             string  `json:"filePath"`
	NormalizedPath       string  `json:"normalizedPath"`
	PboID                *string `json:"pboId,omitempty"`
	IsForwardDeclaration bool    `json:"isForwardDeclaration"`
}

// FileIndexRepository resolves source-file indices to paths and archives
type FileIndexRepository struct {
	db *DB
}

// NewFileIndexRepository creates a new file index repository
func NewFileIndexRepository(db *DB) *FileIndexRepository {
	return &FileIndexRepository{db: db}
}

// GetSourcePath resolves a file index to a display path or archive id,
// preferring rows from real definitions over forward declarations.
// Returns ("", nil) when the index is unmapped.
func (r *FileIndexRepository) GetSourcePath(fileIndex int64) (string, error) {
	var sourcePath string

	err := r.db.QueryRow(`
		SELECT COALESCE(pbo_id, normalized_path)
		FROM file_index_mapping
		WHERE file_index = ?
		ORDER BY is_forward_declaration ASC
		LIMIT 1
	`, fileIndex).Scan(&sourcePath)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve source path: %w", err)
	}

	return sourcePath, nil
}

// ImportMappings inserts or replaces catalog rows in a single transaction.
// An empty slice is a successful no-op.
func (r *FileIndexRepository) ImportMappings(mappings []*FileIndexMapping) error {
	if len(mappings) == 0 {
		return nil
	}

	r.db.logger.Debug("Importing file index mappings", map[string]interface{}{
		"count": len(mappings),
	})

	return r.db.WithTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO file_index_mapping (file_index, file_path, normalized_path, pbo_id, is_forward_declaration)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare mapping import: %w", err)
		}
		defer stmt.Close()

		for _, mapping := range mappings {
			if _, err := stmt.Exec(
				mapping.FileIndex,
				mapping.FilePath,
				mapping.NormalizedPath,
				mapping.PboID,
				mapping.IsForwardDeclaration,
			); err != nil {
				return fmt.Errorf("failed to import mapping for index %d: %w", mapping.FileIndex, err)
			}
		}

		return nil
	})
}

// ClearAll removes every catalog row
func (r *FileIndexRepository) ClearAll() error {
	if _, err := r.db.Exec("DELETE FROM file_index_mapping"); err != nil {
		return fmt.Errorf("failed to clear file index mappings: %w", err)
	}
	return nil
}
