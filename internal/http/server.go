package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finanzas/internal/cache"
	"finanzas/internal/core"
	applog "finanzas/internal/log"
	"finanzas/internal/middleware/ratelimit"
	"finanzas/internal/middleware/security"
	"finanzas/internal/middleware/trace"
	"finanzas/internal/services"
)

// Services groups the application services the API exposes.
type Services struct {
	Transactions *services.TransactionService
	Reports      *services.ReportService
	Settings     *services.SettingsService

	// Ready reports whether the storage backend can serve requests.
	Ready func(ctx context.Context) error
}

type Config struct {
	// ProfileID is used when a request carries no X-Profile-ID header.
	ProfileID          string
	DefaultRateType    core.RateType
	RateLimitPerMinute int
	CacheSweepInterval time.Duration
	Logger             *applog.Logger
}

// Server is the JSON API server.
type Server struct {
	http.Server
	svc    Services
	cfg    Config
	logger *applog.Logger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	cacheManager     *cache.Manager

	startedAt    time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc Services, cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = applog.New(applog.DefaultConfig())
	}
	if cfg.ProfileID == "" {
		cfg.ProfileID = "default"
	}
	if cfg.DefaultRateType == "" {
		cfg.DefaultRateType = core.RateBCV
	}
	if cfg.CacheSweepInterval <= 0 {
		cfg.CacheSweepInterval = 10 * time.Minute
	}
	logger := cfg.Logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		svc:              svc,
		cfg:              cfg,
		logger:           logger,
		securityDetector: security.NewDetector(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RateLimitPerMinute,
			CleanupInterval:   5 * time.Minute,
			Skip:              ratelimit.ReadOnly,
		}),
		cacheManager: cache.NewManager(logger.Logger),
		startedAt:    time.Now(),
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP, logger)

	if svc.Reports != nil {
		for _, c := range svc.Reports.Caches() {
			s.cacheManager.Register(c)
		}
	}
	s.cacheManager.StartCleanup(cfg.CacheSweepInterval)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("POST /api/transactions/bulk-delete", s.handleBulkDelete)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/budget", s.handleBudget)
	mux.HandleFunc("PUT /api/budgets/{category}", s.handleSetBudget)
	mux.HandleFunc("DELETE /api/budgets/{category}", s.handleDeleteBudget)
	mux.HandleFunc("GET /api/goals", s.handleGoals)
	mux.HandleFunc("PUT /api/goals/{category}", s.handleSetGoal)

	mux.HandleFunc("GET /api/report", s.handleReport)
	mux.HandleFunc("POST /api/report/export", s.handleExportReport)

	mux.HandleFunc("GET /api/rates", s.handleGetRates)
	mux.HandleFunc("PUT /api/rates", s.handleSetRates)
	mux.HandleFunc("GET /api/convert", s.handleConvert)
	mux.HandleFunc("GET /api/categories", s.handleCategories)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
	})

	var h http.Handler = mux
	h = limit(h)
	h = s.detectSuspicious(h)
	h = headers.Middleware(h)
	h = s.traceMiddleware.Middleware(h)
	return h
}

// detectSuspicious logs requests matching known attack patterns. They are
// still served; the count shows up in /metrics.
func (s *Server) detectSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reason, ok := s.securityDetector.Inspect(r); ok {
			s.logger.WarnContext(r.Context(), "Suspicious request detected",
				"reason", reason,
				applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldUserAgent, r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops the background goroutines and gracefully shuts down the
// HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
