package api

import (
	"net/http"

	"hoteldesk/internal/models"
	"hoteldesk/internal/service"
)

type categoryPatchRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

func (s *HTTPServer) handleListCategories(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Categories.ListCategories(r.Context())
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	if list == nil {
		list = []*models.RoomCategory{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": list})
}

func (s *HTTPServer) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var c models.RoomCategory
	if err := decodeBody(r, &c, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	c.ID = 0
	if err := s.deps.Categories.CreateCategory(r.Context(), &c); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, &c)
}

func (s *HTTPServer) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := s.deps.Categories.GetCategory(r.Context(), id)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *HTTPServer) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req categoryPatchRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	c, err := s.deps.Categories.UpdateCategory(r.Context(), id, service.CategoryPatch(req))
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *HTTPServer) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.deps.Categories.DeleteCategory(r.Context(), id); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
