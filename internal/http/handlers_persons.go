package http

import (
	"errors"
	"log/slog"
	"net/http"

	"budget/internal/core"
	"budget/internal/services"
)

type personPayload struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	IsMerged           bool   `json:"isMerged"`
	MergedIntoPersonID *int64 `json:"mergedIntoPersonId"`
}

func personToPayload(p core.Person) personPayload {
	return personPayload{
		ID:                 p.ID,
		Name:               p.Name,
		IsMerged:           p.IsMerged,
		MergedIntoPersonID: p.MergedIntoPersonID,
	}
}

func (s *Server) handlePersons(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		persons, err := s.storage.ListActivePersons(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "List persons failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		payload := make([]personPayload, 0, len(persons))
		for _, p := range persons {
			payload = append(payload, personToPayload(p))
		}
		writeJSON(w, http.StatusOK, payload)

	case http.MethodPost:
		var req personPayload
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		id, err := s.ledger.CreatePerson(r.Context(), core.Person{Name: sanitizeInput(req.Name)})
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		person, err := s.storage.GetPersonByID(r.Context(), id)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, personToPayload(*person))

	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) handleMergePersons(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	var req struct {
		SourceID int64 `json:"sourceId"`
		TargetID int64 `json:"targetId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	err := s.resolver.MergePersons(r.Context(), req.SourceID, req.TargetID)
	switch {
	case errors.Is(err, services.ErrSamePerson):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		writeStorageError(w, err)
	default:
		slog.InfoContext(r.Context(), "Persons merged", "source_id", req.SourceID, "target_id", req.TargetID)
		writeJSON(w, http.StatusNoContent, nil)
	}
}

func (s *Server) handlePersonByID(w http.ResponseWriter, r *http.Request) {
	id, action, err := pathID(r.URL.Path, "/api/persons/")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid person path")
		return
	}
	if action == "history" {
		s.handlePersonHistory(w, r, id)
		return
	}
	if action != "" {
		writeError(w, http.StatusBadRequest, "invalid person path")
		return
	}

	switch r.Method {
	case http.MethodGet:
		person, err := s.storage.GetPersonByID(r.Context(), id)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, personToPayload(*person))

	case http.MethodPut:
		var req personPayload
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		existing, err := s.storage.GetPersonByID(r.Context(), id)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		existing.Name = sanitizeInput(req.Name)
		if err := s.ledger.UpdatePerson(r.Context(), *existing); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, personToPayload(*existing))

	case http.MethodDelete:
		if err := s.ledger.DeletePerson(r.Context(), id); err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusNoContent, nil)

	default:
		methodNotAllowed(w, "GET, PUT, DELETE")
	}
}

type historyEntryPayload struct {
	Kind        string             `json:"kind"`
	Transaction *borrowLendPayload `json:"transaction,omitempty"`
	Settlement  *settlementPayload `json:"settlement,omitempty"`
	Timestamp   int64              `json:"timestamp"`
}

// handlePersonHistory returns the person's transactions and settlements as
// one list, newest first.
func (s *Server) handlePersonHistory(w http.ResponseWriter, r *http.Request, personID int64) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	if _, err := s.storage.GetPersonByID(r.Context(), personID); err != nil {
		writeStorageError(w, err)
		return
	}
	transactions, err := s.storage.ListBorrowLendTransactionsForPerson(r.Context(), personID)
	if err != nil {
		slog.ErrorContext(r.Context(), "List transactions failed", "error", err, "person_id", personID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	settlements, err := s.storage.ListSettlementsForPerson(r.Context(), personID)
	if err != nil {
		slog.ErrorContext(r.Context(), "List settlements failed", "error", err, "person_id", personID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	history := services.ComposeHistory(personID, transactions, settlements)
	payload := make([]historyEntryPayload, 0, len(history))
	for _, entry := range history {
		item := historyEntryPayload{Kind: string(entry.Kind), Timestamp: entry.Timestamp()}
		if entry.Transaction != nil {
			tx := borrowLendToPayload(*entry.Transaction)
			item.Transaction = &tx
		}
		if entry.Settlement != nil {
			st := settlementToPayload(*entry.Settlement)
			item.Settlement = &st
		}
		payload = append(payload, item)
	}
	writeJSON(w, http.StatusOK, payload)
}
