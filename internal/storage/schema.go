package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Schema version tracking
const currentSchemaVersion = 2

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(context.Background(), func(tx *sql.Tx) error {
		// Create schema_version table first
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}

		creators := []func(*sql.Tx) error{
			createNamespacesTable,
			createScopesTable,
			createKnowledgeTables,
			createConflictTables,
			createAPIKeysTable,
			bootstrapGlobalScope,
		}
		for _, create := range creators {
			if err := create(tx); err != nil {
				return err
			}
		}

		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("Database schema initialized", "version", currentSchemaVersion)
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
		db.logger.Debug("Database schema is up to date", "version", version)
		return nil
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	db.logger.Info("Running database migrations",
		"from_version", version,
		"to_version", currentSchemaVersion,
	)

	return db.WithTx(context.Background(), func(tx *sql.Tx) error {
		if version < 2 {
			// v2 introduced API tokens
			if err := createAPIKeysTable(tx); err != nil {
				return err
			}
		}
		return setSchemaVersion(tx, currentSchemaVersion)
	})
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

func createNamespacesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS namespaces (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create namespaces table: %w", err)
	}
	return nil
}

// createScopesTable creates scopes and the scope_parents edge set
func createScopesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS scopes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			namespace_id INTEGER NOT NULL REFERENCES namespaces(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			tier TEXT NOT NULL CHECK(tier IN ('GENERAL', 'PRODUCT', 'GROUP', 'PROJECT')),
			description TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE(namespace_id, name)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create scopes table: %w", err)
	}

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS scope_parents (
			child_id INTEGER NOT NULL REFERENCES scopes(id) ON DELETE CASCADE,
			parent_id INTEGER NOT NULL REFERENCES scopes(id) ON DELETE CASCADE,
			PRIMARY KEY (child_id, parent_id),
			CHECK(child_id != parent_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create scope_parents table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_scopes_namespace ON scopes(namespace_id)",
		"CREATE INDEX IF NOT EXISTS idx_scope_parents_parent ON scope_parents(parent_id)",
	}
	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// createKnowledgeTables creates the entry table and its FTS5 index
func createKnowledgeTables(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS knowledge (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			scope_id INTEGER NOT NULL REFERENCES scopes(id) ON DELETE CASCADE,
			content TEXT NOT NULL,
			context TEXT NOT NULL,
			task_size TEXT CHECK(task_size IS NULL OR task_size IN ('XS', 'S', 'M', 'L', 'XL')),
			metaknowledge TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create knowledge table: %w", err)
	}

	if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_knowledge_scope ON knowledge(scope_id)"); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return createKnowledgeFTS(tx)
}

// createConflictTables creates conflict records and their suppressed sets
func createConflictTables(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS conflicts (
			id TEXT PRIMARY KEY,
			active_id TEXT NOT NULL REFERENCES knowledge(id) ON DELETE CASCADE,
			created_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create conflicts table: %w", err)
	}

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS conflict_suppressed (
			conflict_id TEXT NOT NULL REFERENCES conflicts(id) ON DELETE CASCADE,
			entry_id TEXT NOT NULL REFERENCES knowledge(id) ON DELETE CASCADE,
			PRIMARY KEY (conflict_id, entry_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create conflict_suppressed table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_conflicts_active ON conflicts(active_id)",
		"CREATE INDEX IF NOT EXISTS idx_conflict_suppressed_entry ON conflict_suppressed(entry_id)",
	}
	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// createAPIKeysTable creates the api_keys table
func createAPIKeysTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS api_keys (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			token_hash TEXT NOT NULL,
			token_prefix TEXT NOT NULL,
			permissions TEXT NOT NULL,
			rate_limit INTEGER,
			created_at TEXT NOT NULL,
			last_used_at TEXT,
			revoked_at TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create api_keys table: %w", err)
	}
	if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_api_keys_prefix ON api_keys(token_prefix)"); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

// bootstrapGlobalScope creates the global namespace and its root scope
func bootstrapGlobalScope(tx *sql.Tx) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := tx.Exec(
		"INSERT INTO namespaces (name, description, created_at, updated_at) VALUES (?, ?, ?, ?)",
		"global", "Knowledge shared by every project", now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create global namespace: %w", err)
	}
	nsID, err := res.LastInsertId()
	if err != nil {
		return err
	}
	_, err = tx.Exec(`
		INSERT INTO scopes (namespace_id, name, tier, description, created_at, updated_at)
		VALUES (?, 'default', 'GENERAL', ?, ?, ?)
	`, nsID, "Universal best practices", now, now)
	if err != nil {
		return fmt.Errorf("failed to create global scope: %w", err)
	}
	return nil
}
