package http

import (
	"net/http"
	"strings"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/finance"
	applog "finanzas/internal/log"
	"finanzas/internal/services"
)

// handleDashboard returns segment totals for ?view=month|ytd|year with
// optional month and year (current month by default).
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mp, err := ParseMonthParams(q, time.Now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	view := core.ViewMode(strings.ToLower(sanitizeInput(q.Get("view"))))
	if view == "" {
		view = core.ViewMonth
	}

	totals, err := s.svc.Reports.Dashboard(r.Context(), s.profileID(r), view, mp.Month, mp.Year)
	if err != nil {
		s.writeServiceError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().Body(totals).Write(w)
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Reports.Budget(r.Context(), s.profileID(r))
	if err != nil {
		s.writeServiceError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().Body(summary).Write(w)
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.svc.Reports.Goals(r.Context(), s.profileID(r))
	if err != nil {
		s.writeServiceError(w, r, applog.OpRead, err)
		return
	}
	if goals == nil {
		goals = []finance.GoalProgress{}
	}
	NewJSONResponse().Body(goals).Write(w)
}

type reportParams struct {
	Granularity core.Granularity `json:"granularity"`
	Start       string           `json:"start"`
	End         string           `json:"end"`
}

// defaults fills a missing granularity with monthly and a missing range
// with the current calendar year.
func (p *reportParams) defaults(now time.Time) {
	if p.Granularity == "" {
		p.Granularity = core.Monthly
	}
	if p.Start == "" {
		p.Start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC).Format(core.DateLayout)
	}
	if p.End == "" {
		p.End = time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, time.UTC).Format(core.DateLayout)
	}
}

type reportResponse struct {
	finance.ReportMatrix
	Header []string `json:"header"`
	Rows   [][]any  `json:"rows"`
}

// handleReport returns the P&L matrix together with its flattened table.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := reportParams{
		Granularity: core.Granularity(strings.ToLower(sanitizeInput(q.Get("granularity")))),
		Start:       sanitizeInput(q.Get("start")),
		End:         sanitizeInput(q.Get("end")),
	}
	p.defaults(time.Now())

	m, err := s.svc.Reports.Report(r.Context(), s.profileID(r), p.Granularity, p.Start, p.End)
	if err != nil {
		s.writeServiceError(w, r, applog.OpRead, err)
		return
	}
	header, rows := services.ReportTable(m)
	NewJSONResponse().Body(reportResponse{ReportMatrix: m, Header: header, Rows: rows}).Write(w)
}

// handleExportReport writes the report to the configured spreadsheet. The
// body is optional and uses the same fields as the report query.
func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	var p reportParams
	if r.ContentLength != 0 {
		if err := DecodeJSON(w, r, &p); err != nil {
			BadRequestError(err.Error()).Write(w)
			return
		}
	}
	p.defaults(time.Now())

	ref, err := s.svc.Reports.Export(r.Context(), s.profileID(r), p.Granularity, p.Start, p.End)
	if err != nil {
		s.writeServiceError(w, r, applog.OpExport, err)
		return
	}
	NewJSONResponse().Body(map[string]string{"ref": ref}).Write(w)
}
