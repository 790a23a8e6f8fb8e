package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

type createTransactionRequest struct {
	Type       core.TransactionType `json:"type"`
	Amount     core.Money           `json:"amount"`
	UserID     *int64               `json:"userId"`
	CategoryID *int64               `json:"categoryId"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.transactions.List(r.Context(), identity(r).UserID)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Data(txs).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}

	tx, err := s.transactions.Get(r.Context(), identity(r).UserID, id)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(tx).Write(w)
}

// handleCreateTransaction always records the caller as owner. A body naming
// another user is rejected.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in createTransactionRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}

	caller := identity(r)
	if in.UserID != nil && *in.UserID != caller.UserID {
		writeError(w, r, log.OpCreate, core.ErrForbidden)
		return
	}

	tx, err := s.transactions.Create(r.Context(), core.NewTransaction{
		Type:       in.Type,
		Amount:     in.Amount,
		UserID:     caller.UserID,
		CategoryID: in.CategoryID,
	})
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}

	NewJSONResponse().Status(http.StatusCreated).Data(tx).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}

	var patch core.TransactionPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}

	tx, err := s.transactions.Update(r.Context(), identity(r).UserID, id, patch)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Data(tx).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}

	if err := s.transactions.Delete(r.Context(), identity(r).UserID, id); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.aggregation.DashboardSummary(r.Context(), identity(r).UserID)
	if err != nil {
		writeError(w, r, log.OpAggregate, err)
		return
	}
	NewJSONResponse().Data(sum).Write(w)
}

func (s *Server) handleWeekly(w http.ResponseWriter, r *http.Request) {
	week, err := s.aggregation.WeeklySeries(r.Context(), identity(r).UserID)
	if err != nil {
		writeError(w, r, log.OpAggregate, err)
		return
	}
	NewJSONResponse().Data(week).Write(w)
}

func (s *Server) handleYearly(w http.ResponseWriter, r *http.Request) {
	year, err := ParseYear(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, log.OpAggregate, err)
		return
	}

	months, err := s.aggregation.MonthlySeries(r.Context(), identity(r).UserID, year)
	if err != nil {
		writeError(w, r, log.OpAggregate, err)
		return
	}
	NewJSONResponse().Data(months).Write(w)
}

func (s *Server) handleCategoryUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := s.aggregation.CategoryUsagePercent(r.Context(), identity(r).UserID)
	if err != nil {
		writeError(w, r, log.OpAggregate, err)
		return
	}
	NewJSONResponse().Data(usage).Write(w)
}
