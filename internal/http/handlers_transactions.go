package http

import (
	"net/http"
	"strings"

	"finanzas/internal/core"
	applog "finanzas/internal/log"
	"finanzas/internal/services"
)

type transactionList struct {
	Transactions []core.Transaction `json:"transactions"`
	Count        int                `json:"count"`
}

// handleListTransactions returns the profile's transactions newest first,
// optionally filtered by segment and by a YYYY-MM or YYYY date prefix.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.svc.Transactions.List(r.Context(), s.profileID(r))
	if err != nil {
		s.writeServiceError(w, r, applog.OpList, err)
		return
	}

	q := r.URL.Query()
	segment := core.Segment(sanitizeInput(q.Get("segment")))
	period := sanitizeInput(q.Get("period"))
	if segment != "" && !segment.Valid() {
		UnprocessableEntityError("invalid segment: " + string(segment)).Write(w)
		return
	}

	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if segment != "" && tx.Segment != segment {
			continue
		}
		if period != "" && !strings.HasPrefix(core.DatePart(tx.Date), period) {
			continue
		}
		out = append(out, tx)
	}

	NewJSONResponse().Body(transactionList{Transactions: out, Count: len(out)}).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in services.TransactionInput
	if err := DecodeJSON(w, r, &in); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	in.Category = sanitizeInput(in.Category)
	in.Description = sanitizeInput(in.Description)

	tx, err := s.svc.Transactions.Create(r.Context(), s.profileID(r), in)
	if err != nil {
		s.writeServiceError(w, r, applog.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+tx.ID).
		Body(tx).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := PathValue(r, "id")
	var in services.TransactionInput
	if err := DecodeJSON(w, r, &in); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	in.Category = sanitizeInput(in.Category)
	in.Description = sanitizeInput(in.Description)

	tx, err := s.svc.Transactions.Update(r.Context(), s.profileID(r), id, in)
	if err != nil {
		s.writeServiceError(w, r, applog.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(tx).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Transactions.Delete(r.Context(), s.profileID(r), PathValue(r, "id")); err != nil {
		s.writeServiceError(w, r, applog.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if len(req.IDs) == 0 {
		BadRequestError("ids must not be empty").Write(w)
		return
	}

	n, err := s.svc.Transactions.BulkDelete(r.Context(), s.profileID(r), req.IDs)
	if err != nil {
		s.writeServiceError(w, r, applog.OpDelete, err)
		return
	}
	NewJSONResponse().Body(map[string]int{"deleted": n}).Write(w)
}
