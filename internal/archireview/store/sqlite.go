package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/domain"
)

// Store persists the project graph and review history using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore initializes a new Store in the specified storage directory.
// It creates the directory if it doesn't exist and opens/creates 'archireview.db'.
func NewStore(storageDir string) (*Store, error) {
	if err := os.MkdirAll(storageDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}

	dbPath := filepath.Join(storageDir, "archireview.db")
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS nodes (
			id TEXT PRIMARY KEY,
			kind TEXT,
			properties TEXT,
			metadata TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS edges (
			source_id TEXT,
			target_id TEXT,
			type TEXT,
			PRIMARY KEY (source_id, target_id, type)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id);`,
		`CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id);`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			project TEXT,
			file TEXT,
			created_at INTEGER,
			worst INTEGER,
			result_count INTEGER,
			fault_count INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_file ON runs(file);`,
		`CREATE TABLE IF NOT EXISTS results (
			run_id TEXT,
			seq INTEGER,
			rule_id TEXT,
			metadata TEXT,
			snippet TEXT,
			span TEXT,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS faults (
			run_id TEXT,
			seq INTEGER,
			rule_id TEXT,
			kind TEXT,
			span TEXT,
			message TEXT,
			PRIMARY KEY (run_id, seq)
		);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec schema query: %w", err)
		}
	}
	return nil
}

// SaveNode persists a node to the database.
// It performs an UPSERT (insert or update on conflict) operation.
func (s *Store) SaveNode(node *domain.Node) error {
	props, err := json.Marshal(node.Properties)
	if err != nil {
		return err
	}
	meta, err := json.Marshal(node.Metadata)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO nodes (id, kind, properties, metadata)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind=excluded.kind,
			properties=excluded.properties,
			metadata=excluded.metadata;
	`, node.ID, node.Kind, string(props), string(meta))
	return err
}

// DeleteNode removes a node and all its connected edges from the database.
func (s *Store) DeleteNode(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM nodes WHERE id = ?", id); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM edges WHERE source_id = ? OR target_id = ?", id, id); err != nil {
		return err
	}

	return tx.Commit()
}

// SaveEdge persists an edge to the database.
// It ignores the operation if the edge already exists.
func (s *Store) SaveEdge(edge *domain.Edge) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO edges (source_id, target_id, type)
		VALUES (?, ?, ?)
	`, edge.SourceID, edge.TargetID, edge.Type)
	return err
}

// DeleteEdge removes a single edge.
func (s *Store) DeleteEdge(edge *domain.Edge) error {
	_, err := s.db.Exec(`DELETE FROM edges WHERE source_id = ? AND target_id = ? AND type = ?`,
		edge.SourceID, edge.TargetID, edge.Type)
	return err
}

// LoadAll retrieves all nodes and edges from the database.
func (s *Store) LoadAll() ([]*domain.Node, []*domain.Edge, error) {
	rows, err := s.db.Query("SELECT id, kind, properties, metadata FROM nodes")
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var nodes []*domain.Node
	for rows.Next() {
		var id, kind, propsStr, metaStr string
		if err := rows.Scan(&id, &kind, &propsStr, &metaStr); err != nil {
			return nil, nil, err
		}

		node := &domain.Node{
			ID:   id,
			Kind: domain.NodeKind(kind),
		}
		if propsStr != "" && propsStr != "null" {
			if err := json.Unmarshal([]byte(propsStr), &node.Properties); err != nil {
				return nil, nil, fmt.Errorf("node %s properties: %w", id, err)
			}
		}
		if metaStr != "" && metaStr != "null" {
			if err := json.Unmarshal([]byte(metaStr), &node.Metadata); err != nil {
				return nil, nil, fmt.Errorf("node %s metadata: %w", id, err)
			}
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	edgeRows, err := s.db.Query("SELECT source_id, target_id, type FROM edges")
	if err != nil {
		return nil, nil, err
	}
	defer edgeRows.Close()

	var edges []*domain.Edge
	for edgeRows.Next() {
		var src, tgt, typ string
		if err := edgeRows.Scan(&src, &tgt, &typ); err != nil {
			return nil, nil, err
		}
		edges = append(edges, &domain.Edge{
			SourceID: src,
			TargetID: tgt,
			Type:     domain.EdgeType(typ),
		})
	}

	return nodes, edges, edgeRows.Err()
}
