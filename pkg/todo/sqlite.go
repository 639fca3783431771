package todo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store and CategoryStore on a local SQLite
// file, for single-binary deployments without a Postgres server. The
// semantics match PgStore; dates are the same TEXT YYYY-MM-DD strings.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, err
	}
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// EnsureTables creates the todos and categories tables if they don't exist.
func (s *SQLiteStore) EnsureTables(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS todos (
	id            TEXT PRIMARY KEY,
	content       TEXT NOT NULL,
	notes         TEXT NOT NULL DEFAULT '',
	category_id   TEXT,
	due_date      TEXT,
	planned_date  TEXT,
	completed     INTEGER NOT NULL DEFAULT 0,
	completed_at  TEXT,
	deleted       INTEGER NOT NULL DEFAULT 0,
	recurring     INTEGER NOT NULL DEFAULT 0,
	recurring_day INTEGER,
	owner_id      TEXT NOT NULL,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_todos_owner ON todos(owner_id);
CREATE TABLE IF NOT EXISTS categories (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	owner_id   TEXT NOT NULL,
	created_at TEXT NOT NULL
);`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{Scheme: "file", Path: path}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}

func scanSQLiteTodo(row scanner) (*Todo, error) {
	var t Todo
	var completed, deleted, recurring int
	var categoryID, dueDate, plannedDate, completedAt sql.NullString
	var recurringDay sql.NullInt64
	var createdAt string
	err := row.Scan(&t.ID, &t.Content, &t.Notes, &categoryID, &dueDate, &plannedDate,
		&completed, &completedAt, &deleted, &recurring, &recurringDay, &t.OwnerID, &createdAt)
	if err != nil {
		return nil, err
	}
	t.Completed = completed == 1
	t.Deleted = deleted == 1
	t.Recurring = recurring == 1
	t.CategoryID = categoryID.String
	t.DueDate = dueDate.String
	t.PlannedDate = plannedDate.String
	t.RecurringDay = int(recurringDay.Int64)
	if completedAt.Valid {
		if parsed, err := time.Parse(time.RFC3339, completedAt.String); err == nil {
			t.CompletedAt = &parsed
		}
	}
	if parsed, err := time.Parse(time.RFC3339, createdAt); err == nil {
		t.CreatedAt = parsed
	}
	return &t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func sqliteInsertArgs(t *Todo) []any {
	var completedAt sql.NullString
	if t.CompletedAt != nil {
		completedAt = sql.NullString{String: t.CompletedAt.UTC().Format(time.RFC3339), Valid: true}
	}
	return []any{
		t.ID, t.Content, t.Notes,
		sql.NullString{String: t.CategoryID, Valid: t.CategoryID != ""},
		sql.NullString{String: t.DueDate, Valid: t.DueDate != ""},
		sql.NullString{String: t.PlannedDate, Valid: t.PlannedDate != ""},
		boolInt(t.Completed), completedAt, boolInt(t.Deleted), boolInt(t.Recurring),
		sql.NullInt64{Int64: int64(t.RecurringDay), Valid: t.RecurringDay != 0},
		t.OwnerID, t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

const sqliteInsert = `INSERT INTO todos (` + todoColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// FetchAll returns every todo for the owner, soft-deleted included,
// newest first.
func (s *SQLiteStore) FetchAll(ctx context.Context, ownerID string) ([]Todo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+todoColumns+` FROM todos WHERE owner_id = ? ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("fetch todos: %w", err)
	}
	defer rows.Close()

	var todos []Todo
	for rows.Next() {
		t, err := scanSQLiteTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return todos, nil
}

// Get retrieves a single todo by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Todo, error) {
	t, err := scanSQLiteTodo(s.db.QueryRowContext(ctx, `
		SELECT `+todoColumns+` FROM todos WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("get todo %s: %w", id, err)
	}
	return t, nil
}

// Create inserts a new todo.
func (s *SQLiteStore) Create(ctx context.Context, t *Todo) (*Todo, error) {
	t.ID = uuid.Must(uuid.NewV7()).String()
	t.CreatedAt = time.Now().Truncate(time.Second)
	if _, err := s.db.ExecContext(ctx, sqliteInsert, sqliteInsertArgs(t)...); err != nil {
		return nil, fmt.Errorf("create todo: %w", err)
	}
	return t, nil
}

// CreateBatch inserts todos in a single transaction, all-or-nothing.
func (s *SQLiteStore) CreateBatch(ctx context.Context, ts []Todo) ([]Todo, error) {
	if len(ts) == 0 {
		return nil, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Truncate(time.Second)
	created := make([]Todo, len(ts))
	for i, t := range ts {
		t.ID = uuid.Must(uuid.NewV7()).String()
		t.CreatedAt = now
		if _, err := tx.ExecContext(ctx, sqliteInsert, sqliteInsertArgs(&t)...); err != nil {
			return nil, fmt.Errorf("batch create todo %d: %w", i, err)
		}
		created[i] = t
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}
	return created, nil
}

// Update modifies todo fields. Same keys as PgStore.Update.
func (s *SQLiteStore) Update(ctx context.Context, id string, updates map[string]any) (*Todo, error) {
	setClauses := ""
	var args []any

	set := func(clause string, v any) {
		if setClauses != "" {
			setClauses += ", "
		}
		setClauses += clause
		args = append(args, v)
	}

	for k, v := range updates {
		switch k {
		case "content":
			set("content = ?", v)
		case "notes":
			set("notes = ?", v)
		case "category_id":
			sv, _ := v.(string)
			set("category_id = ?", sql.NullString{String: sv, Valid: sv != ""})
		case "due_date":
			sv, _ := v.(string)
			set("due_date = ?", sql.NullString{String: sv, Valid: sv != ""})
		case "planned_date":
			sv, _ := v.(string)
			set("planned_date = ?", sql.NullString{String: sv, Valid: sv != ""})
		case "recurring":
			b, _ := v.(bool)
			set("recurring = ?", boolInt(b))
		case "recurring_day":
			switch n := v.(type) {
			case int:
				set("recurring_day = ?", sql.NullInt64{Int64: int64(n), Valid: n != 0})
			case float64:
				set("recurring_day = ?", sql.NullInt64{Int64: int64(n), Valid: n != 0})
			}
		}
	}
	if setClauses == "" {
		return s.Get(ctx, id)
	}

	args = append(args, id)
	if _, err := s.db.ExecContext(ctx, "UPDATE todos SET "+setClauses+" WHERE id = ?", args...); err != nil {
		return nil, fmt.Errorf("update todo %s: %w", id, err)
	}
	return s.Get(ctx, id)
}

// SetCompleted flips the completed flag, stamping completed_at on the
// false-to-true transition and clearing it on the way back.
func (s *SQLiteStore) SetCompleted(ctx context.Context, id string, completed bool) (*Todo, error) {
	var completedAt sql.NullString
	if completed {
		completedAt = sql.NullString{String: time.Now().UTC().Format(time.RFC3339), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `UPDATE todos SET completed = ?, completed_at = ? WHERE id = ?`,
		boolInt(completed), completedAt, id)
	if err != nil {
		return nil, fmt.Errorf("set completed %s: %w", id, err)
	}
	return s.Get(ctx, id)
}

// SetPlannedDate sets or clears (empty date) the planned date.
func (s *SQLiteStore) SetPlannedDate(ctx context.Context, id, date string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE todos SET planned_date = ? WHERE id = ?`,
		sql.NullString{String: date, Valid: date != ""}, id)
	if err != nil {
		return fmt.Errorf("set planned date %s: %w", id, err)
	}
	return nil
}

// SetDeleted soft-deletes (trash) or restores a todo.
func (s *SQLiteStore) SetDeleted(ctx context.Context, id string, deleted bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE todos SET deleted = ? WHERE id = ?`, boolInt(deleted), id)
	if err != nil {
		return fmt.Errorf("set deleted %s: %w", id, err)
	}
	return nil
}

// Delete removes a todo permanently.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete todo %s: %w", id, err)
	}
	return nil
}

// EmptyTrash permanently removes every soft-deleted todo for the owner.
func (s *SQLiteStore) EmptyTrash(ctx context.Context, ownerID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM todos WHERE owner_id = ? AND deleted = 1`, ownerID)
	if err != nil {
		return fmt.Errorf("empty trash: %w", err)
	}
	return nil
}

// TrashByCategory soft-deletes every todo in a category and detaches it.
func (s *SQLiteStore) TrashByCategory(ctx context.Context, categoryID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE todos SET deleted = 1, category_id = NULL WHERE category_id = ?`, categoryID)
	if err != nil {
		return fmt.Errorf("trash category %s todos: %w", categoryID, err)
	}
	return nil
}

// DueOn returns incomplete, non-trashed todos due on the given date.
func (s *SQLiteStore) DueOn(ctx context.Context, date string) ([]Todo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+todoColumns+` FROM todos WHERE due_date = ? AND completed = 0 AND deleted = 0`, date)
	if err != nil {
		return nil, fmt.Errorf("todos due on %s: %w", date, err)
	}
	defer rows.Close()

	var todos []Todo
	for rows.Next() {
		t, err := scanSQLiteTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return todos, nil
}

// List returns the owner's categories, oldest first.
func (s *SQLiteStore) List(ctx context.Context, ownerID string) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, owner_id, created_at FROM categories WHERE owner_id = ? ORDER BY created_at ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []Category
	for rows.Next() {
		var c Category
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Name, &c.OwnerID, &createdAt); err != nil {
			return nil, err
		}
		if parsed, err := time.Parse(time.RFC3339, createdAt); err == nil {
			c.CreatedAt = parsed
		}
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return cats, nil
}

// CreateCategory inserts a new category.
func (s *SQLiteStore) CreateCategory(ctx context.Context, c *Category) (*Category, error) {
	c.ID = uuid.Must(uuid.NewV7()).String()
	c.CreatedAt = time.Now().Truncate(time.Second)
	_, err := s.db.ExecContext(ctx, `INSERT INTO categories (id, name, owner_id, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.Name, c.OwnerID, c.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

// Rename updates a category's name.
func (s *SQLiteStore) Rename(ctx context.Context, id, name string) (*Category, error) {
	if _, err := s.db.ExecContext(ctx, `UPDATE categories SET name = ? WHERE id = ?`, name, id); err != nil {
		return nil, fmt.Errorf("rename category %s: %w", id, err)
	}
	var c Category
	var createdAt string
	err := s.db.QueryRowContext(ctx, `SELECT id, name, owner_id, created_at FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.OwnerID, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("rename category %s: %w", id, err)
	}
	if parsed, err := time.Parse(time.RFC3339, createdAt); err == nil {
		c.CreatedAt = parsed
	}
	return &c, nil
}

// DeleteCategory removes a category record.
func (s *SQLiteStore) DeleteCategory(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category %s: %w", id, err)
	}
	return nil
}
