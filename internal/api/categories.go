package api

import (
	"encoding/json"
	"net/http"

	"whattodo/pkg/todo"
)

func (s *Server) handleCategoryList(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	cats, err := s.cats.List(r.Context(), ownerID)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	if cats == nil {
		cats = []todo.Category{}
	}
	writeJSON(w, 200, cats)
}

func (s *Server) handleCategoryCreate(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return
	}
	if body.Name == "" {
		writeError(w, 400, "name is required")
		return
	}
	created, err := s.cats.CreateCategory(r.Context(), &todo.Category{Name: body.Name, OwnerID: ownerID})
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 201, created)
}

func (s *Server) handleCategoryRename(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	c, ok := s.ownedCategory(w, r, ownerID)
	if !ok {
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return
	}
	if body.Name == "" {
		writeError(w, 400, "name is required")
		return
	}
	renamed, err := s.cats.Rename(r.Context(), c.ID, body.Name)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, renamed)
}

// handleCategoryDelete moves the category's todos to the trash (clearing
// their category reference) and then removes the category itself.
func (s *Server) handleCategoryDelete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	c, ok := s.ownedCategory(w, r, ownerID)
	if !ok {
		return
	}
	if err := s.todos.TrashByCategory(r.Context(), c.ID); err != nil {
		writeError(w, 500, err.Error())
		return
	}
	if err := s.cats.DeleteCategory(r.Context(), c.ID); err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]string{"status": "deleted"})
}

func (s *Server) ownedCategory(w http.ResponseWriter, r *http.Request, ownerID string) (*todo.Category, bool) {
	cats, err := s.cats.List(r.Context(), ownerID)
	if err != nil {
		writeError(w, 500, err.Error())
		return nil, false
	}
	id := r.PathValue("id")
	for i := range cats {
		if cats[i].ID == id {
			return &cats[i], true
		}
	}
	writeError(w, 404, "not found")
	return nil, false
}
