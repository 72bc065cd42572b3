package storage

import (
	"database/sql"
	"fmt"
)

// Schema version tracking
const currentSchemaVersion = 1

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}

		if err := createClassesTable(tx); err != nil {
			return err
		}
		if err := createFileIndexMappingTable(tx); err != nil {
			return err
		}

		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("Database schema initialized", map[string]interface{}{
			"version": currentSchemaVersion,
		})

		return nil
	})
}

// runMigrations runs any pending schema migrations
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		db.logger.Debug("Database schema is up to date", map[string]interface{}{
			"version": version,
		})
		return nil
	}

	if version == 0 {
		// Database created by an external ingester without version
		// tracking. Tables are created idempotently.
		return db.initializeSchema()
	}

	db.logger.Info("Running database migrations", map[string]interface{}{
		"from_version": version,
		"to_version":   currentSchemaVersion,
	})

	// Add migration functions here as the schema evolves

	return nil
}

// getSchemaVersion gets the current schema version
func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setSchemaVersion sets the schema version
func setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("DELETE FROM schema_version")
	if err != nil {
		return err
	}
	_, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

// createSchemaVersionTable creates the schema_version tracking table
func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// createClassesTable creates the classes table.
// parent_id carries no foreign key: dangling references are valid data
// (forward declarations and not-yet-imported parents).
func createClassesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS classes (
			id TEXT PRIMARY KEY,
			parent_id TEXT,
			container_class TEXT,
			source_file_index INTEGER,
			is_forward_declaration INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create classes table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_classes_parent_id ON classes(parent_id)",
		"CREATE INDEX IF NOT EXISTS idx_classes_source_file_index ON classes(source_file_index)",
	}

	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// createFileIndexMappingTable creates the file_index_mapping table.
// One file index may map to several catalog rows (a forward declaration
// and a real definition), so file_index is indexed but not unique.
func createFileIndexMappingTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS file_index_mapping (
			file_index INTEGER NOT NULL,
			file_path TEXT,
			normalized_path TEXT,
			pbo_id TEXT,
			is_forward_declaration INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create file_index_mapping table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_file_index_mapping_index ON file_index_mapping(file_index)",
		"CREATE INDEX IF NOT EXISTS idx_file_index_mapping_pbo ON file_index_mapping(pbo_id)",
	}

	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}
