package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type personBalancePayload struct {
	Person     personPayload `json:"person"`
	NetBalance json.Number   `json:"netBalance"`
}

type totalsPayload struct {
	TotalLent     json.Number `json:"totalLent"`
	TotalBorrowed json.Number `json:"totalBorrowed"`
	Net           json.Number `json:"net"`
}

type monthSummaryPayload struct {
	TotalExpenses json.Number `json:"totalExpenses"`
	TotalIncome   json.Number `json:"totalIncome"`
	NetBalance    json.Number `json:"netBalance"`
}

// handleBalances serves the cached per-person balances maintained by the
// balance engine.
func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	balances := s.balances.Balances()
	payload := make([]personBalancePayload, 0, len(balances))
	for _, b := range balances {
		payload = append(payload, personBalancePayload{
			Person:     personToPayload(b.Person),
			NetBalance: amountNumber(b.NetBalance),
		})
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	totals := s.balances.Totals()
	writeJSON(w, http.StatusOK, totalsPayload{
		TotalLent:     amountNumber(totals.TotalLent),
		TotalBorrowed: amountNumber(totals.TotalBorrowed),
		Net:           amountNumber(totals.Net),
	})
}

func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	summary, err := s.balances.MonthSummary(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Month summary failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, monthSummaryPayload{
		TotalExpenses: amountNumber(summary.TotalExpenses),
		TotalIncome:   amountNumber(summary.TotalIncome),
		NetBalance:    amountNumber(summary.NetBalance),
	})
}
