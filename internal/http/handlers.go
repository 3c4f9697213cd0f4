package http

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/currency"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).String(),
	}).Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	switch {
	case s.svc.Ready == nil:
		checks["storage"] = "not_configured"
	default:
		if err := s.svc.Ready(ctx); err != nil {
			checks["storage"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["storage"] = "ok"
		}
	}

	if s.svc.Reports != nil {
		checks["data_version"] = s.svc.Reports.Version()
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.GetMetrics().ClientCount,
		"status":         "ok",
	}

	NewJSONResponse().Status(httpStatus).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_response_time_us_avg Average response time in microseconds\n")
	fmt.Fprintf(w, "# TYPE http_response_time_us_avg gauge\n")
	fmt.Fprintf(w, "http_response_time_us_avg %d\n\n", traceMetrics.AverageResponseTime)

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitMetrics.TotalHits)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", rateLimitMetrics.ClientCount)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n", securityMetrics.SuspiciousRequests)
	for _, reason := range slices.Sorted(maps.Keys(securityMetrics.ByReason)) {
		fmt.Fprintf(w, "suspicious_requests_total{reason=%q} %d\n", reason, securityMetrics.ByReason[reason])
	}
	fmt.Fprintln(w)

	if s.svc.Reports != nil {
		fmt.Fprintf(w, "# HELP report_data_version Mutations seen by the report caches\n")
		fmt.Fprintf(w, "# TYPE report_data_version counter\n")
		fmt.Fprintf(w, "report_data_version %d\n\n", s.svc.Reports.Version())

		fmt.Fprintf(w, "# HELP report_cache_entries Current report cache entries\n")
		fmt.Fprintf(w, "# TYPE report_cache_entries gauge\n")
		for i, c := range s.svc.Reports.Caches() {
			if sized, ok := c.(interface{ Size() int }); ok {
				fmt.Fprintf(w, "report_cache_entries{cache=\"%d\"} %d\n", i, sized.Size())
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.startedAt).Seconds())
}

type segmentCategories struct {
	Segment    core.Segment         `json:"segment"`
	Type       core.TransactionType `json:"type"`
	Label      string               `json:"label"`
	Color      string               `json:"color"`
	Categories []string             `json:"categories"`
}

// handleCategories lists the segments in display order with their default
// categories.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats := core.DefaultCategories()
	out := make([]segmentCategories, 0, len(cats))
	for _, seg := range core.Segments() {
		info := seg.Info()
		out = append(out, segmentCategories{
			Segment:    seg,
			Type:       info.Type,
			Label:      info.Label,
			Color:      info.Color,
			Categories: cats[seg],
		})
	}
	NewJSONResponse().Body(out).Write(w)
}

type conversionResult struct {
	Amount    float64       `json:"amount"`
	Currency  core.Currency `json:"currency"`
	RateType  core.RateType `json:"rateType"`
	Rate      float64       `json:"rate"`
	AmountUSD float64       `json:"amountUSD"`

	// Equivalents holds the amount expressed in every supported currency.
	Equivalents map[core.Currency]float64 `json:"equivalents"`
}

// handleConvert previews the conversion a transaction would freeze with the
// latest rates.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	amount, err := core.ParseAmount(q.Get("amount"))
	if err != nil {
		UnprocessableEntityError(fmt.Sprintf("amount %q: %v", q.Get("amount"), err)).Write(w)
		return
	}
	c := core.Currency(strings.ToUpper(strings.TrimSpace(q.Get("currency"))))
	if c == "" {
		c = core.CurrencyUSD
	}
	if !c.Valid() {
		UnprocessableEntityError(fmt.Sprintf("%v: %q", core.ErrInvalidCurrency, c)).Write(w)
		return
	}
	rt := core.RateType(strings.ToLower(strings.TrimSpace(q.Get("rateType"))))
	if rt == "" {
		rt = s.cfg.DefaultRateType
	}
	if !rt.Valid() {
		UnprocessableEntityError(fmt.Sprintf("%v: %q", core.ErrInvalidRateType, rt)).Write(w)
		return
	}
	custom, err := ParseFloatParam(q, "customRate", 0)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	rates, err := s.svc.Settings.Rates(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "convert", err)
		return
	}

	rate, usd := currency.Freeze(amount, c, rates, rt, custom)
	if rate == 0 {
		UnprocessableEntityError(fmt.Sprintf("%v for %s", core.ErrRateUnavailable, c)).Write(w)
		return
	}

	eq := map[core.Currency]float64{core.CurrencyUSD: core.Round2(usd)}
	for _, other := range []core.Currency{core.CurrencyLocal, core.CurrencyEUR} {
		if v := currency.FromReferenceUnit(usd, other, rates, rt, custom); v != 0 {
			eq[other] = core.Round2(v)
		}
	}

	NewJSONResponse().Body(conversionResult{
		Amount:      amount,
		Currency:    c,
		RateType:    rt,
		Rate:        rate,
		AmountUSD:   core.Round2(usd),
		Equivalents: eq,
	}).Write(w)
}
