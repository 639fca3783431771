package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"whattodo/internal/auth"
	"whattodo/pkg/push"
	"whattodo/pkg/recur"
	"whattodo/pkg/todo"
)

// Server is the HTTP API server.
type Server struct {
	todos  todo.Store
	cats   todo.CategoryStore
	engine *recur.Engine
	subs   push.Store // nil when push is not configured
	auth   auth.Resolver
	mux    *http.ServeMux
}

// New creates a new Server.
func New(todos todo.Store, cats todo.CategoryStore, engine *recur.Engine, subs push.Store, resolver auth.Resolver) *Server {
	s := &Server{
		todos:  todos,
		cats:   cats,
		engine: engine,
		subs:   subs,
		auth:   resolver,
		mux:    http.NewServeMux(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	// Todos
	s.mux.HandleFunc("GET /api/todos", s.handleTodoList)
	s.mux.HandleFunc("POST /api/todos", s.handleTodoCreate)
	s.mux.HandleFunc("PATCH /api/todos/{id}", s.handleTodoUpdate)
	s.mux.HandleFunc("POST /api/todos/{id}/toggle", s.handleTodoToggle)
	s.mux.HandleFunc("PUT /api/todos/{id}/planned", s.handleTodoPlanned)
	s.mux.HandleFunc("DELETE /api/todos/{id}", s.handleTodoTrash)
	s.mux.HandleFunc("POST /api/todos/{id}/restore", s.handleTodoRestore)
	s.mux.HandleFunc("DELETE /api/todos/{id}/permanent", s.handleTodoPermanentDelete)
	s.mux.HandleFunc("DELETE /api/trash", s.handleEmptyTrash)

	// Recurrence
	s.mux.HandleFunc("POST /api/sync", s.handleSync)

	// Categories
	s.mux.HandleFunc("GET /api/categories", s.handleCategoryList)
	s.mux.HandleFunc("POST /api/categories", s.handleCategoryCreate)
	s.mux.HandleFunc("PATCH /api/categories/{id}", s.handleCategoryRename)
	s.mux.HandleFunc("DELETE /api/categories/{id}", s.handleCategoryDelete)

	// Push subscriptions
	s.mux.HandleFunc("POST /api/push/subscribe", s.handlePushSubscribe)
	s.mux.HandleFunc("DELETE /api/push/subscribe", s.handlePushUnsubscribe)

	// System
	s.mux.HandleFunc("GET /health", s.handleHealth)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

// owner resolves the request's owner id, writing a 401 on failure.
func (s *Server) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := s.auth.OwnerID(r)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			writeError(w, 401, "unauthorized")
		} else {
			writeError(w, 500, err.Error())
		}
		return "", false
	}
	return id, true
}

// ownedTodo fetches a todo and checks it belongs to the owner; foreign
// records 404 rather than 403 so ids don't leak.
func (s *Server) ownedTodo(w http.ResponseWriter, r *http.Request, ownerID string) (*todo.Todo, bool) {
	t, err := s.todos.Get(r.Context(), r.PathValue("id"))
	if err != nil || t.OwnerID != ownerID {
		writeError(w, 404, "not found")
		return nil, false
	}
	return t, true
}

func validDate(date string) bool {
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
