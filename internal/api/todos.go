package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"whattodo/pkg/recur"
	"whattodo/pkg/todo"
)

func (s *Server) handleTodoList(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}

	// ?sync=1 runs a recurrence pass before listing, the way the app
	// syncs right after loading the task list.
	if r.URL.Query().Get("sync") == "1" {
		base := time.Now()
		if b := r.URL.Query().Get("base"); b != "" {
			parsed, err := time.Parse("2006-01-02", b)
			if err != nil {
				writeError(w, 400, "base must be YYYY-MM-DD")
				return
			}
			base = parsed
		}
		if _, err := s.engine.Sync(r.Context(), ownerID, base); err != nil {
			// Sync failure leaves the stored set untouched; listing
			// still works, and the next trigger re-attempts.
			log.Printf("api: sync before list: %v", err)
		}
	}

	todos, err := s.todos.FetchAll(r.Context(), ownerID)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	if todos == nil {
		todos = []todo.Todo{}
	}
	writeJSON(w, 200, todos)
}

func (s *Server) handleTodoCreate(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}

	var t todo.Todo
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return
	}
	if t.Content == "" {
		writeError(w, 400, "content is required")
		return
	}
	if t.DueDate != "" && !validDate(t.DueDate) {
		writeError(w, 400, "due_date must be YYYY-MM-DD")
		return
	}
	if t.PlannedDate != "" && !validDate(t.PlannedDate) {
		writeError(w, 400, "planned_date must be YYYY-MM-DD")
		return
	}
	if t.Recurring && !recur.ValidDay(t.RecurringDay) {
		writeError(w, 400, recur.ErrInvalidDay.Error())
		return
	}

	t.ID = ""
	t.OwnerID = ownerID
	t.Deleted = false
	t.Completed = false
	t.CompletedAt = nil

	created, err := s.todos.Create(r.Context(), &t)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}

	// A new recurring todo seeds a sync pass anchored at its due date
	// so the rolling window fills out immediately.
	if created.Recurring && created.DueDate != "" {
		if base, err := time.Parse("2006-01-02", created.DueDate); err == nil {
			if _, err := s.engine.Sync(r.Context(), ownerID, base); err != nil {
				log.Printf("api: sync after create: %v", err)
			}
		}
	}
	writeJSON(w, 201, created)
}

func (s *Server) handleTodoUpdate(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	t, ok := s.ownedTodo(w, r, ownerID)
	if !ok {
		return
	}

	var updates map[string]any
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return
	}
	for _, key := range []string{"due_date", "planned_date"} {
		if v, ok := updates[key].(string); ok && v != "" && !validDate(v) {
			writeError(w, 400, key+" must be YYYY-MM-DD")
			return
		}
	}
	if v, ok := updates["recurring_day"]; ok {
		day := 0
		switch n := v.(type) {
		case float64:
			day = int(n)
		case int:
			day = n
		}
		if !recur.ValidDay(day) {
			writeError(w, 400, recur.ErrInvalidDay.Error())
			return
		}
	}

	updated, err := s.todos.Update(r.Context(), t.ID, updates)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, updated)
}

func (s *Server) handleTodoToggle(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	t, ok := s.ownedTodo(w, r, ownerID)
	if !ok {
		return
	}

	var body struct {
		Completed bool `json:"completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return
	}

	updated, err := s.todos.SetCompleted(r.Context(), t.ID, body.Completed)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}

	// Completing a recurring todo guarantees next month's instance.
	// One-directional: un-completing retracts nothing.
	if !t.Completed && body.Completed && updated.Recurring {
		if _, err := s.engine.Advance(r.Context(), *updated); err != nil {
			log.Printf("api: advance after toggle: %v", err)
		}
	}
	writeJSON(w, 200, updated)
}

func (s *Server) handleTodoPlanned(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	t, ok := s.ownedTodo(w, r, ownerID)
	if !ok {
		return
	}

	var body struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return
	}
	if body.Date != "" && !validDate(body.Date) {
		writeError(w, 400, "date must be YYYY-MM-DD")
		return
	}
	if err := s.todos.SetPlannedDate(r.Context(), t.ID, body.Date); err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) handleTodoTrash(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	t, ok := s.ownedTodo(w, r, ownerID)
	if !ok {
		return
	}
	if err := s.todos.SetDeleted(r.Context(), t.ID, true); err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]string{"status": "trashed"})
}

func (s *Server) handleTodoRestore(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	t, ok := s.ownedTodo(w, r, ownerID)
	if !ok {
		return
	}
	if err := s.todos.SetDeleted(r.Context(), t.ID, false); err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]string{"status": "restored"})
}

func (s *Server) handleTodoPermanentDelete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	t, ok := s.ownedTodo(w, r, ownerID)
	if !ok {
		return
	}
	if err := s.todos.Delete(r.Context(), t.ID); err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]string{"status": "deleted"})
}

func (s *Server) handleEmptyTrash(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	if err := s.todos.EmptyTrash(r.Context(), ownerID); err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]string{"status": "emptied"})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}

	var body struct {
		Base string `json:"base"`
	}
	// An empty body means "sync from now"; only malformed JSON is an error.
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return
	}
	base := time.Now()
	if body.Base != "" {
		parsed, err := time.Parse("2006-01-02", body.Base)
		if err != nil {
			writeError(w, 400, "base must be YYYY-MM-DD")
			return
		}
		base = parsed
	}

	created, err := s.engine.Sync(r.Context(), ownerID, base)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	if created == nil {
		created = []todo.Todo{}
	}
	writeJSON(w, 200, created)
}
