package todo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is a PostgreSQL-backed todo and category store.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureTables creates the todos and categories tables if they don't exist.
//
// Date columns are TEXT on purpose: due and planned dates are exact
// YYYY-MM-DD strings and the recurrence dedup compares them as strings.
func (s *PgStore) EnsureTables(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS todos (
			id            TEXT PRIMARY KEY,
			content       TEXT NOT NULL,
			notes         TEXT NOT NULL DEFAULT '',
			category_id   TEXT,
			due_date      TEXT,
			planned_date  TEXT,
			completed     BOOLEAN NOT NULL DEFAULT FALSE,
			completed_at  TIMESTAMPTZ,
			deleted       BOOLEAN NOT NULL DEFAULT FALSE,
			recurring     BOOLEAN NOT NULL DEFAULT FALSE,
			recurring_day INTEGER,
			owner_id      TEXT NOT NULL,
			created_at    TIMESTAMPTZ DEFAULT NOW()
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_todos_owner ON todos(owner_id)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_todos_due ON todos(due_date) WHERE due_date IS NOT NULL`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS categories (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			owner_id   TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_categories_owner ON categories(owner_id)`)
	return err
}

const todoColumns = `id, content, notes, category_id, due_date, planned_date, completed, completed_at, deleted, recurring, recurring_day, owner_id, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTodo(row scanner) (*Todo, error) {
	var t Todo
	var categoryID, dueDate, plannedDate *string
	var recurringDay *int
	err := row.Scan(&t.ID, &t.Content, &t.Notes, &categoryID, &dueDate, &plannedDate,
		&t.Completed, &t.CompletedAt, &t.Deleted, &t.Recurring, &recurringDay, &t.OwnerID, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	if categoryID != nil {
		t.CategoryID = *categoryID
	}
	if dueDate != nil {
		t.DueDate = *dueDate
	}
	if plannedDate != nil {
		t.PlannedDate = *plannedDate
	}
	if recurringDay != nil {
		t.RecurringDay = *recurringDay
	}
	return &t, nil
}

// nullable maps the in-memory "empty means unset" convention onto SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}

// FetchAll returns every todo for the owner, soft-deleted included,
// newest first.
func (s *PgStore) FetchAll(ctx context.Context, ownerID string) ([]Todo, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+todoColumns+` FROM todos WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("fetch todos: %w", err)
	}
	defer rows.Close()

	var todos []Todo
	for rows.Next() {
		t, err := scanTodo(rows)
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
func (s *PgStore) Get(ctx context.Context, id string) (*Todo, error) {
	t, err := scanTodo(s.pool.QueryRow(ctx, `
		SELECT `+todoColumns+` FROM todos WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get todo %s: %w", id, err)
	}
	return t, nil
}

// Create inserts a new todo.
func (s *PgStore) Create(ctx context.Context, t *Todo) (*Todo, error) {
	t.ID = uuid.Must(uuid.NewV7()).String()
	t.CreatedAt = time.Now().Truncate(time.Microsecond)

	_, err := s.pool.Exec(ctx, `
		INSERT INTO todos (`+todoColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		t.ID, t.Content, t.Notes, nullable(t.CategoryID), nullable(t.DueDate), nullable(t.PlannedDate),
		t.Completed, t.CompletedAt, t.Deleted, t.Recurring, nullableInt(t.RecurringDay), t.OwnerID, t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create todo: %w", err)
	}
	return t, nil
}

// CreateBatch inserts todos in a single transaction. All-or-nothing: on
// error no record was written.
func (s *PgStore) CreateBatch(ctx context.Context, ts []Todo) ([]Todo, error) {
	if len(ts) == 0 {
		return nil, nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().Truncate(time.Microsecond)
	created := make([]Todo, len(ts))
	for i, t := range ts {
		t.ID = uuid.Must(uuid.NewV7()).String()
		t.CreatedAt = now
		_, err := tx.Exec(ctx, `
			INSERT INTO todos (`+todoColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			t.ID, t.Content, t.Notes, nullable(t.CategoryID), nullable(t.DueDate), nullable(t.PlannedDate),
			t.Completed, t.CompletedAt, t.Deleted, t.Recurring, nullableInt(t.RecurringDay), t.OwnerID, t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("batch create todo %d: %w", i, err)
		}
		created[i] = t
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}
	return created, nil
}

// Update modifies todo fields. Supported keys: content, notes,
// category_id, due_date, planned_date, recurring, recurring_day.
func (s *PgStore) Update(ctx context.Context, id string, updates map[string]any) (*Todo, error) {
	setClauses := ""
	var args []any
	argIdx := 1

	set := func(clause string, v any) {
		if setClauses != "" {
			setClauses += ", "
		}
		setClauses += fmt.Sprintf(clause, argIdx)
		args = append(args, v)
		argIdx++
	}

	for k, v := range updates {
		switch k {
		case "content":
			set("content = $%d", v)
		case "notes":
			set("notes = $%d", v)
		case "category_id":
			sv, _ := v.(string)
			set("category_id = $%d", nullable(sv))
		case "due_date":
			sv, _ := v.(string)
			set("due_date = $%d", nullable(sv))
		case "planned_date":
			sv, _ := v.(string)
			set("planned_date = $%d", nullable(sv))
		case "recurring":
			set("recurring = $%d", v)
		case "recurring_day":
			switch n := v.(type) {
			case int:
				set("recurring_day = $%d", nullableInt(n))
			case float64: // JSON numbers decode as float64
				set("recurring_day = $%d", nullableInt(int(n)))
			}
		}
	}
	if setClauses == "" {
		return s.Get(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE todos SET %s WHERE id = $%d RETURNING %s", setClauses, argIdx, todoColumns)
	t, err := scanTodo(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("update todo %s: %w", id, err)
	}
	return t, nil
}

// SetCompleted flips the completed flag, stamping completed_at on the
// false-to-true transition and clearing it on the way back.
func (s *PgStore) SetCompleted(ctx context.Context, id string, completed bool) (*Todo, error) {
	var completedAt *time.Time
	if completed {
		now := time.Now().Truncate(time.Microsecond)
		completedAt = &now
	}
	t, err := scanTodo(s.pool.QueryRow(ctx, `
		UPDATE todos SET completed = $1, completed_at = $2 WHERE id = $3
		RETURNING `+todoColumns, completed, completedAt, id))
	if err != nil {
		return nil, fmt.Errorf("set completed %s: %w", id, err)
	}
	return t, nil
}

// SetPlannedDate sets or clears (empty date) the planned date.
func (s *PgStore) SetPlannedDate(ctx context.Context, id, date string) error {
	_, err := s.pool.Exec(ctx, `UPDATE todos SET planned_date = $1 WHERE id = $2`, nullable(date), id)
	if err != nil {
		return fmt.Errorf("set planned date %s: %w", id, err)
	}
	return nil
}

// SetDeleted soft-deletes (trash) or restores a todo.
func (s *PgStore) SetDeleted(ctx context.Context, id string, deleted bool) error {
	_, err := s.pool.Exec(ctx, `UPDATE todos SET deleted = $1 WHERE id = $2`, deleted, id)
	if err != nil {
		return fmt.Errorf("set deleted %s: %w", id, err)
	}
	return nil
}

// Delete removes a todo permanently.
func (s *PgStore) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM todos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete todo %s: %w", id, err)
	}
	return nil
}

// EmptyTrash permanently removes every soft-deleted todo for the owner.
func (s *PgStore) EmptyTrash(ctx context.Context, ownerID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM todos WHERE owner_id = $1 AND deleted`, ownerID)
	if err != nil {
		return fmt.Errorf("empty trash: %w", err)
	}
	return nil
}

// TrashByCategory soft-deletes every todo in a category and detaches it
// from the category, the way deleting a category moves its todos to the
// trash.
func (s *PgStore) TrashByCategory(ctx context.Context, categoryID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE todos SET deleted = TRUE, category_id = NULL WHERE category_id = $1`, categoryID)
	if err != nil {
		return fmt.Errorf("trash category %s todos: %w", categoryID, err)
	}
	return nil
}

// DueOn returns incomplete, non-trashed todos due on the given date,
// across all owners. Used by the reminder job.
func (s *PgStore) DueOn(ctx context.Context, date string) ([]Todo, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+todoColumns+` FROM todos
		WHERE due_date = $1 AND NOT completed AND NOT deleted`, date)
	if err != nil {
		return nil, fmt.Errorf("todos due on %s: %w", date, err)
	}
	defer rows.Close()

	var todos []Todo
	for rows.Next() {
		t, err := scanTodo(rows)
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
func (s *PgStore) List(ctx context.Context, ownerID string) ([]Category, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, owner_id, created_at FROM categories WHERE owner_id = $1 ORDER BY created_at ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.OwnerID, &c.CreatedAt); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return cats, nil
}

// CreateCategory inserts a new category.
func (s *PgStore) CreateCategory(ctx context.Context, c *Category) (*Category, error) {
	c.ID = uuid.Must(uuid.NewV7()).String()
	c.CreatedAt = time.Now().Truncate(time.Microsecond)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO categories (id, name, owner_id, created_at) VALUES ($1, $2, $3, $4)`,
		c.ID, c.Name, c.OwnerID, c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

// Rename updates a category's name.
func (s *PgStore) Rename(ctx context.Context, id, name string) (*Category, error) {
	var c Category
	err := s.pool.QueryRow(ctx, `
		UPDATE categories SET name = $1 WHERE id = $2 RETURNING id, name, owner_id, created_at`, name, id).
		Scan(&c.ID, &c.Name, &c.OwnerID, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("rename category %s: %w", id, err)
	}
	return &c, nil
}

// DeleteCategory removes a category record. Trashing its todos first is
// the caller's job (see TrashByCategory).
func (s *PgStore) DeleteCategory(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category %s: %w", id, err)
	}
	return nil
}
