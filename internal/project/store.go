package project

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"fabula/internal/services"
)

// timeLayout keeps a fixed-width fraction so lexicographic comparison in SQL
// matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages project persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS projects (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL DEFAULT '',
    idea TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    scene_count INTEGER NOT NULL DEFAULT 0,
    current_stage TEXT NOT NULL DEFAULT '',
    completed_stages TEXT NOT NULL DEFAULT '[]',
    total_cost REAL NOT NULL DEFAULT 0,
    artifacts TEXT NOT NULL DEFAULT '{}',
    error_message TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status);
`

// Open initializes or connects to the project database in the state
// directory.
func Open(stateDir string) (*Store, error) {
	dbPath := filepath.Join(stateDir, "projects.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open project store: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply project schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Create inserts a new pending project for the given idea and returns it
// with a fresh id.
func (s *Store) Create(ctx context.Context, title, idea string, sceneCount int) (*Project, error) {
	now := time.Now().UTC()
	proj := &Project{
		ID:         uuid.NewString(),
		Title:      strings.TrimSpace(title),
		Idea:       strings.TrimSpace(idea),
		Status:     StatusPending,
		SceneCount: sceneCount,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	stages, artifacts, err := encodeJSONFields(proj)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO projects (
            id, title, idea, status, scene_count, current_stage,
            completed_stages, total_cost, artifacts, error_message,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		proj.ID, proj.Title, proj.Idea, string(proj.Status), proj.SceneCount,
		proj.CurrentStage, stages, proj.TotalCost, artifacts, proj.ErrorMessage,
		now.Format(timeLayout), now.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	return proj, nil
}

// Update persists the mutable fields of an existing project.
func (s *Store) Update(ctx context.Context, proj *Project) error {
	proj.UpdatedAt = time.Now().UTC()

	stages, artifacts, err := encodeJSONFields(proj)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE projects SET
            title = ?, idea = ?, status = ?, scene_count = ?, current_stage = ?,
            completed_stages = ?, total_cost = ?, artifacts = ?,
            error_message = ?, updated_at = ?
        WHERE id = ?`,
		proj.Title, proj.Idea, string(proj.Status), proj.SceneCount,
		proj.CurrentStage, stages, proj.TotalCost, artifacts, proj.ErrorMessage,
		proj.UpdatedAt.Format(timeLayout), proj.ID,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "", "update", fmt.Sprintf("project %s", proj.ID), nil)
	}
	return nil
}

// Get loads one project by id.
func (s *Store) Get(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	proj, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "", "get", fmt.Sprintf("project %s", id), nil)
	}
	return proj, err
}

// List returns projects filtered by status, newest first. An empty status
// returns everything.
func (s *Store) List(ctx context.Context, status Status) ([]*Project, error) {
	query := selectColumns
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		proj, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, proj)
	}
	return projects, rows.Err()
}

// Resumable returns paused and partial projects, newest first.
func (s *Store) Resumable(ctx context.Context) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx,
		selectColumns+` WHERE status IN (?, ?) ORDER BY created_at DESC`,
		string(StatusPaused), string(StatusPartial),
	)
	if err != nil {
		return nil, fmt.Errorf("list resumable projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		proj, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, proj)
	}
	return projects, rows.Err()
}

// Delete removes one project by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, title, idea, status, scene_count, current_stage,
    completed_stages, total_cost, artifacts, error_message, created_at, updated_at
    FROM projects`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*Project, error) {
	var (
		proj       Project
		status     string
		stagesRaw  string
		artsRaw    string
		createdRaw string
		updatedRaw string
	)
	if err := row.Scan(
		&proj.ID, &proj.Title, &proj.Idea, &status, &proj.SceneCount,
		&proj.CurrentStage, &stagesRaw, &proj.TotalCost, &artsRaw,
		&proj.ErrorMessage, &createdRaw, &updatedRaw,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan project: %w", err)
	}

	proj.Status = Status(status)
	if err := json.Unmarshal([]byte(stagesRaw), &proj.CompletedStages); err != nil {
		return nil, fmt.Errorf("decode completed stages: %w", err)
	}
	if err := json.Unmarshal([]byte(artsRaw), &proj.Artifacts); err != nil {
		return nil, fmt.Errorf("decode artifacts: %w", err)
	}
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		proj.CreatedAt = created
	}
	if updated, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		proj.UpdatedAt = updated
	}
	return &proj, nil
}

func encodeJSONFields(proj *Project) (stages string, artifacts string, err error) {
	completed := proj.CompletedStages
	if completed == nil {
		completed = []string{}
	}
	stagesRaw, err := json.Marshal(completed)
	if err != nil {
		return "", "", fmt.Errorf("encode completed stages: %w", err)
	}

	arts := proj.Artifacts
	if arts == nil {
		arts = map[string]string{}
	}
	artsRaw, err := json.Marshal(arts)
	if err != nil {
		return "", "", fmt.Errorf("encode artifacts: %w", err)
	}
	return string(stagesRaw), string(artsRaw), nil
}
