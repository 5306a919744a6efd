package http

import (
	"log/slog"
	"net/http"

	"budget/internal/core"
)

type categoryPayload struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	IsPredefined bool   `json:"isPredefined"`
	IsActive     bool   `json:"isActive"`
}

func categoryToPayload(c core.ExpenseCategory) categoryPayload {
	return categoryPayload{
		ID:           c.ID,
		Name:         c.Name,
		IsPredefined: c.IsPredefined,
		IsActive:     c.IsActive,
	}
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cats, err := s.storage.ListActiveCategories(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "List categories failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		payload := make([]categoryPayload, 0, len(cats))
		for _, c := range cats {
			payload = append(payload, categoryToPayload(c))
		}
		writeJSON(w, http.StatusOK, payload)

	case http.MethodPost:
		var req categoryPayload
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		id, err := s.ledger.CreateCategory(r.Context(), core.ExpenseCategory{
			Name:         sanitizeInput(req.Name),
			IsPredefined: req.IsPredefined,
			IsActive:     true,
		})
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		cat, err := s.storage.GetCategoryByID(r.Context(), id)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, categoryToPayload(*cat))

	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) handleCategoryByID(w http.ResponseWriter, r *http.Request) {
	id, action, err := pathID(r.URL.Path, "/api/categories/")
	if err != nil || action != "" {
		writeError(w, http.StatusBadRequest, "invalid category path")
		return
	}

	switch r.Method {
	case http.MethodGet:
		cat, err := s.storage.GetCategoryByID(r.Context(), id)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, categoryToPayload(*cat))

	case http.MethodPut:
		var req categoryPayload
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		existing, err := s.storage.GetCategoryByID(r.Context(), id)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		existing.Name = sanitizeInput(req.Name)
		existing.IsActive = req.IsActive
		if err := s.ledger.UpdateCategory(r.Context(), *existing); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, categoryToPayload(*existing))

	case http.MethodDelete:
		if err := s.ledger.DeactivateCategory(r.Context(), id); err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusNoContent, nil)

	default:
		methodNotAllowed(w, "GET, PUT, DELETE")
	}
}
