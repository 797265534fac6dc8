package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/loomterm/loom/internal/layout"
)

// WorkspaceNotFoundError is returned when loading or deleting a workspace
// that was never saved.
type WorkspaceNotFoundError struct {
	Name string
}

func (e *WorkspaceNotFoundError) Error() string {
	return fmt.Sprintf("workspace %q not found", e.Name)
}

// WorkspaceRecord is a saved workspace: its tab layouts in display order.
type WorkspaceRecord struct {
	Name      string
	Tabs      []layout.Node
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WorkspaceSummary describes a saved workspace without loading its layouts.
type WorkspaceSummary struct {
	Name      string
	TabCount  int
	UpdatedAt time.Time
}

// WorkspaceRepository stores workspaces in sqlite.
type WorkspaceRepository struct {
	db *sql.DB
}

// NewWorkspaceRepository creates a repository over an open database.
func NewWorkspaceRepository(db *sql.DB) *WorkspaceRepository {
	return &WorkspaceRepository{db: db}
}

// Save persists a workspace under name, replacing any previous save with the
// same name. The whole write is one transaction.
func (r *WorkspaceRepository) Save(name string, tabs []layout.Node) error {
	if name == "" {
		return fmt.Errorf("workspace name is required")
	}

	encoded := make([]string, 0, len(tabs))
	for i, root := range tabs {
		data, err := encodeLayout(root)
		if err != nil {
			return fmt.Errorf("tab %d: %w", i, err)
		}
		encoded = append(encoded, data)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().Unix()
	res, err := tx.Exec(
		`UPDATE workspaces SET updated_at = ? WHERE name = ?`,
		now, name,
	)
	if err != nil {
		return fmt.Errorf("updating workspace: %w", err)
	}

	var workspaceID int64
	if n, _ := res.RowsAffected(); n == 0 {
		inserted, err := tx.Exec(
			`INSERT INTO workspaces (name, created_at, updated_at) VALUES (?, ?, ?)`,
			name, now, now,
		)
		if err != nil {
			return fmt.Errorf("inserting workspace: %w", err)
		}
		workspaceID, err = inserted.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading workspace id: %w", err)
		}
	} else {
		if err := tx.QueryRow(`SELECT id FROM workspaces WHERE name = ?`, name).Scan(&workspaceID); err != nil {
			return fmt.Errorf("reading workspace id: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM tabs WHERE workspace_id = ?`, workspaceID); err != nil {
			return fmt.Errorf("clearing previous tabs: %w", err)
		}
	}

	for i, data := range encoded {
		if _, err := tx.Exec(
			`INSERT INTO tabs (workspace_id, position, layout) VALUES (?, ?, ?)`,
			workspaceID, i, data,
		); err != nil {
			return fmt.Errorf("inserting tab %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Load retrieves a saved workspace. Pane ids in the returned trees are
// freshly minted.
func (r *WorkspaceRepository) Load(name string) (*WorkspaceRecord, error) {
	var (
		id        int64
		createdAt int64
		updatedAt int64
	)
	err := r.db.QueryRow(
		`SELECT id, created_at, updated_at FROM workspaces WHERE name = ?`, name,
	).Scan(&id, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &WorkspaceNotFoundError{Name: name}
	}
	if err != nil {
		return nil, fmt.Errorf("loading workspace: %w", err)
	}

	rows, err := r.db.Query(
		`SELECT layout FROM tabs WHERE workspace_id = ? ORDER BY position`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("loading tabs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tabs []layout.Node
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning tab: %w", err)
		}
		root, err := decodeLayout(data)
		if err != nil {
			return nil, fmt.Errorf("tab %d: %w", len(tabs), err)
		}
		tabs = append(tabs, root)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tabs: %w", err)
	}

	return &WorkspaceRecord{
		Name:      name,
		Tabs:      tabs,
		CreatedAt: time.Unix(createdAt, 0),
		UpdatedAt: time.Unix(updatedAt, 0),
	}, nil
}

// List returns summaries of every saved workspace, most recently updated
// first.
func (r *WorkspaceRepository) List() ([]WorkspaceSummary, error) {
	rows, err := r.db.Query(
		`SELECT w.name, COUNT(t.id), w.updated_at
		 FROM workspaces w LEFT JOIN tabs t ON t.workspace_id = w.id
		 GROUP BY w.id ORDER BY w.updated_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing workspaces: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var summaries []WorkspaceSummary
	for rows.Next() {
		var (
			s         WorkspaceSummary
			updatedAt int64
		)
		if err := rows.Scan(&s.Name, &s.TabCount, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning workspace: %w", err)
		}
		s.UpdatedAt = time.Unix(updatedAt, 0)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating workspaces: %w", err)
	}
	return summaries, nil
}

// Delete removes a saved workspace and its tabs.
func (r *WorkspaceRepository) Delete(name string) error {
	res, err := r.db.Exec(`DELETE FROM workspaces WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("deleting workspace: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &WorkspaceNotFoundError{Name: name}
	}
	return nil
}
