package http

import (
	"net/http"

	"finanzas/internal/core"
	applog "finanzas/internal/log"
)

type limitRequest struct {
	Limit float64 `json:"limit"`
}

type targetRequest struct {
	Target float64 `json:"target"`
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req limitRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	category := PathValue(r, "category")
	if err := s.svc.Settings.SetBudget(r.Context(), s.profileID(r), category, req.Limit); err != nil {
		s.writeServiceError(w, r, applog.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(map[string]any{"category": category, "limit": req.Limit}).Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Settings.DeleteBudget(r.Context(), s.profileID(r), PathValue(r, "category")); err != nil {
		s.writeServiceError(w, r, applog.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleSetGoal(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	category := PathValue(r, "category")
	if err := s.svc.Settings.SetGoal(r.Context(), s.profileID(r), category, req.Target); err != nil {
		s.writeServiceError(w, r, applog.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(map[string]any{"category": category, "target": req.Target}).Write(w)
}

func (s *Server) handleGetRates(w http.ResponseWriter, r *http.Request) {
	rates, err := s.svc.Settings.Rates(r.Context())
	if err != nil {
		s.writeServiceError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().Body(rates).Write(w)
}

// handleSetRates stores a new rate snapshot and returns it with the derived
// EUR cross rate filled in.
func (s *Server) handleSetRates(w http.ResponseWriter, r *http.Request) {
	var in core.Rates
	if err := DecodeJSON(w, r, &in); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	saved, err := s.svc.Settings.SetRates(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, applog.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(saved).Write(w)
}
