package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whattodo/internal/auth"
	"whattodo/pkg/recur"
	"whattodo/pkg/todo"
)

// memStore is an in-memory todo.Store and todo.CategoryStore.
type memStore struct {
	todos []todo.Todo
	cats  []todo.Category
	seq   int
}

func (m *memStore) nextID() string {
	m.seq++
	return fmt.Sprintf("id-%d", m.seq)
}

func (m *memStore) FetchAll(_ context.Context, ownerID string) ([]todo.Todo, error) {
	var out []todo.Todo
	for _, t := range m.todos {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) Get(_ context.Context, id string) (*todo.Todo, error) {
	for i := range m.todos {
		if m.todos[i].ID == id {
			cp := m.todos[i]
			return &cp, nil
		}
	}
	return nil, errors.New("not found")
}

func (m *memStore) Create(_ context.Context, t *todo.Todo) (*todo.Todo, error) {
	t.ID = m.nextID()
	t.CreatedAt = time.Now()
	m.todos = append(m.todos, *t)
	cp := *t
	return &cp, nil
}

func (m *memStore) CreateBatch(_ context.Context, ts []todo.Todo) ([]todo.Todo, error) {
	created := make([]todo.Todo, len(ts))
	for i, t := range ts {
		t.ID = m.nextID()
		t.CreatedAt = time.Now()
		m.todos = append(m.todos, t)
		created[i] = t
	}
	return created, nil
}

func (m *memStore) Update(_ context.Context, id string, updates map[string]any) (*todo.Todo, error) {
	for i := range m.todos {
		if m.todos[i].ID != id {
			continue
		}
		if v, ok := updates["content"].(string); ok {
			m.todos[i].Content = v
		}
		if v, ok := updates["notes"].(string); ok {
			m.todos[i].Notes = v
		}
		if v, ok := updates["due_date"].(string); ok {
			m.todos[i].DueDate = v
		}
		cp := m.todos[i]
		return &cp, nil
	}
	return nil, errors.New("not found")
}

func (m *memStore) SetCompleted(_ context.Context, id string, completed bool) (*todo.Todo, error) {
	for i := range m.todos {
		if m.todos[i].ID == id {
			m.todos[i].Completed = completed
			if completed {
				now := time.Now()
				m.todos[i].CompletedAt = &now
			} else {
				m.todos[i].CompletedAt = nil
			}
			cp := m.todos[i]
			return &cp, nil
		}
	}
	return nil, errors.New("not found")
}

func (m *memStore) SetPlannedDate(_ context.Context, id, date string) error {
	for i := range m.todos {
		if m.todos[i].ID == id {
			m.todos[i].PlannedDate = date
			return nil
		}
	}
	return errors.New("not found")
}

func (m *memStore) SetDeleted(_ context.Context, id string, deleted bool) error {
	for i := range m.todos {
		if m.todos[i].ID == id {
			m.todos[i].Deleted = deleted
			return nil
		}
	}
	return errors.New("not found")
}

func (m *memStore) Delete(_ context.Context, id string) error {
	for i := range m.todos {
		if m.todos[i].ID == id {
			m.todos = append(m.todos[:i], m.todos[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

func (m *memStore) EmptyTrash(_ context.Context, ownerID string) error {
	kept := m.todos[:0]
	for _, t := range m.todos {
		if !(t.OwnerID == ownerID && t.Deleted) {
			kept = append(kept, t)
		}
	}
	m.todos = kept
	return nil
}

func (m *memStore) TrashByCategory(_ context.Context, categoryID string) error {
	for i := range m.todos {
		if m.todos[i].CategoryID == categoryID {
			m.todos[i].Deleted = true
			m.todos[i].CategoryID = ""
		}
	}
	return nil
}

func (m *memStore) DueOn(_ context.Context, date string) ([]todo.Todo, error) {
	var out []todo.Todo
	for _, t := range m.todos {
		if t.DueDate == date && !t.Completed && !t.Deleted {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) EnsureTables(_ context.Context) error { return nil }

func (m *memStore) List(_ context.Context, ownerID string) ([]todo.Category, error) {
	var out []todo.Category
	for _, c := range m.cats {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) CreateCategory(_ context.Context, c *todo.Category) (*todo.Category, error) {
	c.ID = m.nextID()
	c.CreatedAt = time.Now()
	m.cats = append(m.cats, *c)
	cp := *c
	return &cp, nil
}

func (m *memStore) Rename(_ context.Context, id, name string) (*todo.Category, error) {
	for i := range m.cats {
		if m.cats[i].ID == id {
			m.cats[i].Name = name
			cp := m.cats[i]
			return &cp, nil
		}
	}
	return nil, errors.New("not found")
}

func (m *memStore) DeleteCategory(_ context.Context, id string) error {
	for i := range m.cats {
		if m.cats[i].ID == id {
			m.cats = append(m.cats[:i], m.cats[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

// --- Helpers ---

type failingResolver struct{}

func (failingResolver) OwnerID(*http.Request) (string, error) {
	return "", auth.ErrUnauthorized
}

func newTestServer(store *memStore) *Server {
	return New(store, store, recur.NewEngine(store), nil, auth.Static{ID: "u1"})
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

// --- Tests ---

func TestCreateTodoValidation(t *testing.T) {
	s := newTestServer(&memStore{})

	rec := doJSON(t, s, "POST", "/api/todos", map[string]any{"content": ""})
	assert.Equal(t, 400, rec.Code)

	rec = doJSON(t, s, "POST", "/api/todos", map[string]any{
		"content": "bad day", "recurring": true, "recurring_day": 45,
	})
	assert.Equal(t, 400, rec.Code)

	rec = doJSON(t, s, "POST", "/api/todos", map[string]any{
		"content": "bad date", "due_date": "07/15/2024",
	})
	assert.Equal(t, 400, rec.Code)

	rec = doJSON(t, s, "POST", "/api/todos", map[string]any{"content": "fine"})
	assert.Equal(t, 201, rec.Code)
}

func TestCreateRecurringTodoFillsWindow(t *testing.T) {
	store := &memStore{}
	s := newTestServer(store)

	rec := doJSON(t, s, "POST", "/api/todos", map[string]any{
		"content": "Pay rent", "recurring": true, "recurring_day": 1, "due_date": "2100-01-01",
	})
	require.Equal(t, 201, rec.Code)

	// The created todo plus the rest of the four-month window.
	require.Len(t, store.todos, 4)
	var dates []string
	for _, tt := range store.todos {
		dates = append(dates, tt.DueDate)
	}
	assert.ElementsMatch(t, []string{"2100-01-01", "2100-02-01", "2100-03-01", "2100-04-01"}, dates)
}

func TestToggleAdvancesRecurring(t *testing.T) {
	store := &memStore{todos: []todo.Todo{
		{ID: "r1", Content: "Pay rent", Recurring: true, RecurringDay: 15, DueDate: "2100-01-15", OwnerID: "u1"},
	}}
	s := newTestServer(store)

	rec := doJSON(t, s, "POST", "/api/todos/r1/toggle", map[string]any{"completed": true})
	require.Equal(t, 200, rec.Code)

	require.Len(t, store.todos, 2)
	next := store.todos[1]
	assert.Equal(t, "2100-02-15", next.DueDate)
	assert.True(t, next.Recurring)
	assert.False(t, next.Completed)

	// Un-completing must not retract the advancement.
	rec = doJSON(t, s, "POST", "/api/todos/r1/toggle", map[string]any{"completed": false})
	require.Equal(t, 200, rec.Code)
	assert.Len(t, store.todos, 2)

	// Re-completing finds the existing instance: advancement is one-shot.
	rec = doJSON(t, s, "POST", "/api/todos/r1/toggle", map[string]any{"completed": true})
	require.Equal(t, 200, rec.Code)
	assert.Len(t, store.todos, 2)
}

func TestTrashRestoreAndEmpty(t *testing.T) {
	store := &memStore{todos: []todo.Todo{
		{ID: "a", Content: "keep", OwnerID: "u1"},
		{ID: "b", Content: "toss", OwnerID: "u1"},
	}}
	s := newTestServer(store)

	rec := doJSON(t, s, "DELETE", "/api/todos/b", nil)
	require.Equal(t, 200, rec.Code)
	assert.True(t, store.todos[1].Deleted)

	rec = doJSON(t, s, "POST", "/api/todos/b/restore", nil)
	require.Equal(t, 200, rec.Code)
	assert.False(t, store.todos[1].Deleted)

	rec = doJSON(t, s, "DELETE", "/api/todos/b", nil)
	require.Equal(t, 200, rec.Code)
	rec = doJSON(t, s, "DELETE", "/api/trash", nil)
	require.Equal(t, 200, rec.Code)
	require.Len(t, store.todos, 1)
	assert.Equal(t, "keep", store.todos[0].Content)
}

func TestForeignTodoIs404(t *testing.T) {
	store := &memStore{todos: []todo.Todo{
		{ID: "other", Content: "not yours", OwnerID: "u2"},
	}}
	s := newTestServer(store)

	rec := doJSON(t, s, "DELETE", "/api/todos/other", nil)
	assert.Equal(t, 404, rec.Code)
	assert.False(t, store.todos[0].Deleted)
}

func TestUnauthorized(t *testing.T) {
	store := &memStore{}
	s := New(store, store, recur.NewEngine(store), nil, failingResolver{})

	rec := doJSON(t, s, "GET", "/api/todos", nil)
	assert.Equal(t, 401, rec.Code)
}

func TestSyncEndpointWithBase(t *testing.T) {
	store := &memStore{todos: []todo.Todo{
		{ID: "seed", Content: "Pay rent", Recurring: true, RecurringDay: 1, DueDate: "2024-01-01", OwnerID: "u1"},
	}}
	s := newTestServer(store)

	rec := doJSON(t, s, "POST", "/api/sync", map[string]any{"base": "2024-01-01"})
	require.Equal(t, 200, rec.Code)

	var created []todo.Todo
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.Len(t, created, 3)
	assert.Equal(t, "2024-02-01", created[0].DueDate)
	assert.Equal(t, "2024-04-01", created[2].DueDate)

	// Second pass sees the first pass's writes.
	rec = doJSON(t, s, "POST", "/api/sync", map[string]any{"base": "2024-01-01"})
	require.Equal(t, 200, rec.Code)
	created = nil
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Empty(t, created)
}

func TestDeleteCategoryTrashesTodos(t *testing.T) {
	store := &memStore{
		todos: []todo.Todo{
			{ID: "t1", Content: "in cat", CategoryID: "c1", OwnerID: "u1"},
			{ID: "t2", Content: "elsewhere", OwnerID: "u1"},
		},
		cats: []todo.Category{{ID: "c1", Name: "Work", OwnerID: "u1"}},
	}
	s := newTestServer(store)

	rec := doJSON(t, s, "DELETE", "/api/categories/c1", nil)
	require.Equal(t, 200, rec.Code)

	assert.Empty(t, store.cats)
	assert.True(t, store.todos[0].Deleted)
	assert.Empty(t, store.todos[0].CategoryID)
	assert.False(t, store.todos[1].Deleted)
}

func TestCategoryCRUD(t *testing.T) {
	store := &memStore{}
	s := newTestServer(store)

	rec := doJSON(t, s, "POST", "/api/categories", map[string]any{"name": "Home"})
	require.Equal(t, 201, rec.Code)
	var created todo.Category
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))

	rec = doJSON(t, s, "PATCH", "/api/categories/"+created.ID, map[string]any{"name": "House"})
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "House", store.cats[0].Name)
}
