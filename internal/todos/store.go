// Package todos implements the Simple Todos API served by the bundled binary:
// a sqlite-backed store and the fiber routes that expose it.
package todos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// MemoryPath keeps the database in process memory.
const MemoryPath = ":memory:"

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when no todo has the requested id.
var ErrNotFound = errors.New("todo not found")

// Todo is a single item of the list.
type Todo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Patch carries the fields of a partial update; nil fields are left unchanged.
type Patch struct {
	Title     *string
	Completed *bool
}

// Store persists todos in a sqlite database.
type Store struct {
	conn   *sql.DB
	logger logrus.FieldLogger
	path   string
	now    func() time.Time
}

// OpenStore opens or creates the database at path. MemoryPath (or an empty
// path) yields a private in-memory database.
func OpenStore(path string, logger logrus.FieldLogger) (*Store, error) {
	if logger == nil {
		return nil, errors.New("todos: logger is required")
	}
	path = strings.TrimSpace(path)
	if path == "" {
		path = MemoryPath
	}

	memory := path == MemoryPath
	if !memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open todos database: %w", err)
	}
	if memory {
		// every pooled connection would otherwise see its own empty database
		conn.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	if !memory {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL", "PRAGMA synchronous=NORMAL")
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	store := &Store{conn: conn, logger: logger, path: path, now: time.Now}
	if err := store.initializeSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("initialize todos schema: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"action": "todos_store",
		"path":   path,
	}).Info("todos store ready")
	return store, nil
}

func (s *Store) initializeSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS todos (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			completed INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_todos_created_at ON todos(created_at);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// List returns every todo, oldest first.
func (s *Store) List(ctx context.Context) ([]Todo, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, title, completed, created_at, updated_at
		FROM todos
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	todos := make([]Todo, 0)
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("list todos: %w", err)
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return todos, nil
}

// Get returns the todo with id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Todo, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, title, completed, created_at, updated_at
		FROM todos
		WHERE id = ?
	`, id)
	todo, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Todo{}, ErrNotFound
	}
	if err != nil {
		return Todo{}, fmt.Errorf("get todo %s: %w", id, err)
	}
	return todo, nil
}

// Create inserts a new, not yet completed todo.
func (s *Store) Create(ctx context.Context, title string) (Todo, error) {
	now := s.now().UTC()
	todo := Todo{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO todos (id, title, completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, todo.ID, todo.Title, boolToInt(todo.Completed), formatTime(now), formatTime(now))
	if err != nil {
		return Todo{}, fmt.Errorf("create todo: %w", err)
	}
	return todo, nil
}

// Replace overwrites title and completion of an existing todo.
func (s *Store) Replace(ctx context.Context, id, title string, completed bool) (Todo, error) {
	return s.Update(ctx, id, Patch{Title: &title, Completed: &completed})
}

// Update applies patch to an existing todo and returns the stored result.
func (s *Store) Update(ctx context.Context, id string, patch Patch) (Todo, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return Todo{}, fmt.Errorf("update todo %s: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT id, title, completed, created_at, updated_at
		FROM todos
		WHERE id = ?
	`, id)
	todo, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Todo{}, ErrNotFound
	}
	if err != nil {
		return Todo{}, fmt.Errorf("update todo %s: %w", id, err)
	}

	if patch.Title != nil {
		todo.Title = *patch.Title
	}
	if patch.Completed != nil {
		todo.Completed = *patch.Completed
	}
	todo.UpdatedAt = s.now().UTC()

	if _, err := tx.ExecContext(ctx, `
		UPDATE todos SET title = ?, completed = ?, updated_at = ?
		WHERE id = ?
	`, todo.Title, boolToInt(todo.Completed), formatTime(todo.UpdatedAt), id); err != nil {
		return Todo{}, fmt.Errorf("update todo %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return Todo{}, fmt.Errorf("update todo %s: %w", id, err)
	}
	return todo, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTodo(row scanner) (Todo, error) {
	var (
		todo             Todo
		completed        int
		created, updated string
	)
	if err := row.Scan(&todo.ID, &todo.Title, &completed, &created, &updated); err != nil {
		return Todo{}, err
	}
	todo.Completed = completed != 0

	var err error
	if todo.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return Todo{}, fmt.Errorf("parse created_at: %w", err)
	}
	if todo.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return Todo{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return todo, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
