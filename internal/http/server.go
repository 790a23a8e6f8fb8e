package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the routes are served from.
type Deps struct {
	Auth         *services.AuthService
	Transactions *services.TransactionService
	Categories   *services.CategoryService
	Users        *services.UserService
	Aggregation  *services.AggregationService
	Store        Pinger
}

type Options struct {
	Logger            *log.Logger
	RequestsPerMinute int
}

type Server struct {
	http.Server

	auth         *services.AuthService
	transactions *services.TransactionService
	categories   *services.CategoryService
	users        *services.UserService
	aggregation  *services.AggregationService
	store        Pinger

	logger      *log.Logger
	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware
	detector    *security.Detector
	startedAt   time.Time
	now         func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	limits := ratelimit.DefaultConfig()
	if opts.RequestsPerMinute > 0 {
		limits.RequestsPerMinute = opts.RequestsPerMinute
	}

	detector := security.NewDetector()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		auth:         deps.Auth,
		transactions: deps.Transactions,
		categories:   deps.Categories,
		users:        deps.Users,
		aggregation:  deps.Aggregation,
		store:        deps.Store,
		logger:       logger,
		rateLimiter:  ratelimit.NewLimiter(limits),
		tracer:       trace.NewMiddleware(logger, detector.ExtractClientIP),
		detector:     detector,
		startedAt:    time.Now(),
		now:          time.Now,
	}

	s.Handler = s.middleware(s.routes())
	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)

	mux.HandleFunc("GET /transactions", s.requireAuth(s.handleListTransactions))
	mux.HandleFunc("POST /transactions", s.requireAuth(s.handleCreateTransaction))
	mux.HandleFunc("GET /transactions/summary", s.requireAuth(s.handleSummary))
	mux.HandleFunc("GET /transactions/weekly-income-expense", s.requireAuth(s.handleWeekly))
	mux.HandleFunc("GET /transactions/yearly-income-expense", s.requireAuth(s.handleYearly))
	mux.HandleFunc("GET /transactions/category-usage-percent", s.requireAuth(s.handleCategoryUsage))
	mux.HandleFunc("GET /transactions/{id}", s.requireAuth(s.handleGetTransaction))
	mux.HandleFunc("PATCH /transactions/{id}", s.requireAuth(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /transactions/{id}", s.requireAuth(s.handleDeleteTransaction))

	mux.HandleFunc("POST /categories", s.handleCreateCategory)
	mux.HandleFunc("GET /categories", s.handleListCategories)
	mux.HandleFunc("DELETE /categories/{id}", s.requireAdmin(s.handleDeleteCategory))

	mux.HandleFunc("GET /users/me", s.requireAuth(s.handleGetMe))
	mux.HandleFunc("DELETE /users/me", s.requireAuth(s.handleDeleteMe))
	mux.HandleFunc("GET /users", s.requireAdmin(s.handleListUsers))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		NewJSONResponse().Status(http.StatusNotFound).Data(errorBody{Error: "route not found"}).Write(w)
	})

	return mux
}

// middleware wraps h, outermost first: tracing, request logger, security
// headers, scan detection, rate limiting.
func (s *Server) middleware(h http.Handler) http.Handler {
	h = s.rateLimiter.Middleware(s.detector.ExtractClientIP, handleRateLimited)(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = log.Middleware(s.logger, trace.RequestIDFromRequest)(h)
	return s.tracer.Middleware(h)
}

func handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	NewJSONResponse().Status(http.StatusTooManyRequests).
		Data(errorBody{Error: "rate limit exceeded, try again later"}).
		Write(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports 503 until the store answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"database": "ok"}
	status, code := "ready", http.StatusOK
	if s.store == nil {
		checks["database"] = "not configured"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else if err := s.store.Ping(ctx); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		checks["database"] = "unreachable"
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	NewJSONResponse().Status(code).Data(map[string]any{"status": status, "checks": checks}).Write(w)
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics snapshots the middleware counters.
func (s *Server) Metrics() map[string]any {
	return map[string]any{
		"requests":   s.tracer.GetMetrics(),
		"rate_limit": s.rateLimiter.GetMetrics(),
		"security":   s.detector.GetMetrics(),
	}
}
