package http

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// UserIDHeader carries the authenticated user, set by the upstream gateway.
const UserIDHeader = "X-User-ID"

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups the application services the handlers call.
type Services struct {
	Rules         *services.RuleService
	Processor     *services.RecurringProcessor
	Goals         *services.GoalService
	Transactions  *services.TransactionService
	Dashboard     *services.DashboardService
	Notifications *services.NotificationService
}

type Config struct {
	Addr               string
	CronSecret         string
	RateLimitPerMinute int
	Location           *time.Location
}

type Server struct {
	http.Server
	svc         Services
	db          Pinger
	logger      *log.Logger
	metrics     *metrics.Metrics
	rateLimiter *ratelimit.Limiter
	cronSecret  string
	location    *time.Location
	started     time.Time
}

// NewServer wires the chi router, middleware and handlers. m may be nil.
func NewServer(cfg Config, svc Services, db Pinger, logger *log.Logger, m *metrics.Metrics) *Server {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		svc:      svc,
		db:       db,
		logger:   logger.WithComponent(log.ComponentHTTP),
		metrics:  m,
		location: cfg.Location,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RateLimitPerMinute,
		}),
		cronSecret: cfg.CronSecret,
		started:    time.Now(),
	}
	m.ObserveRateLimitClients(s.rateLimiter.ActiveClients)
	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(trace.NewMiddleware(s.logger, s.metrics).Middleware)
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		limit := s.rateLimiter.Middleware(rateLimitKey, s.handleRateLimited)

		// called by a scheduler, authenticated with the cron secret
		r.With(limit).Post("/recurring-transactions/process", s.handleProcessRecurring)

		r.Group(func(r chi.Router) {
			r.Use(requireUser)
			r.Use(limit)

			r.Route("/recurring-transactions", func(r chi.Router) {
				r.Get("/", s.handleListRecurring)
				r.Post("/", s.handleCreateRecurring)
				r.Get("/{id}", s.handleGetRecurring)
				r.Patch("/{id}", s.handleUpdateRecurring)
				r.Delete("/{id}", s.handleDeleteRecurring)
				r.Get("/{id}/pending", s.handlePendingRecurring)
			})

			r.Route("/goals", func(r chi.Router) {
				r.Get("/", s.handleListGoals)
				r.Post("/", s.handleCreateGoal)
				r.Get("/{id}", s.handleGetGoal)
				r.Patch("/{id}", s.handleUpdateGoal)
				r.Delete("/{id}", s.handleDeleteGoal)
				r.Post("/{id}/contribute", s.handleContribute)
				r.Get("/{id}/contributions", s.handleListContributions)
			})

			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", s.handleListTransactions)
				r.Post("/", s.handleCreateTransaction)
				r.Get("/stats", s.handleTransactionStats)
				r.Get("/{id}", s.handleGetTransaction)
				r.Patch("/{id}", s.handleUpdateTransaction)
				r.Delete("/{id}", s.handleDeleteTransaction)
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", s.handleListCategories)
				r.Post("/", s.handleCreateCategory)
				r.Patch("/{id}", s.handleUpdateCategory)
				r.Delete("/{id}", s.handleDeleteCategory)
			})

			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/summary", s.handleDashboardSummary)
				r.Get("/metrics", s.handleDashboardMetrics)
				r.Get("/top-categories", s.handleTopCategories)
				r.Get("/recent-transactions", s.handleRecentTransactions)
			})

			r.Get("/notifications", s.handleListNotifications)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	return r
}

// Shutdown stops background helpers and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.Stop()
	return s.Server.Shutdown(ctx)
}

// rateLimitKey buckets by the user requireUser put in the context, or by
// client host for routes without a user. It never reads the raw header.
func rateLimitKey(r *http.Request) string {
	if id := userID(r); id != "" {
		return "user:" + id
	}
	return "ip:" + clientHost(r.RemoteAddr)
}

// clientHost strips the port so reconnecting does not open a new bucket.
// RealIP may already have replaced the address with a bare IP.
func clientHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.IncrRateLimited()
	TooManyRequestsError("rate limit exceeded, please try again later").Write(w)
}

type userKey struct{}

// requireUser rejects requests without an authenticated user.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := sanitizeInput(r.Header.Get(UserIDHeader))
		if id == "" || len(id) > 128 {
			UnauthorizedError("unauthorized").Write(w)
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, id)
		ctx = log.WithContext(ctx, log.FromContext(ctx).With(log.FieldUserID, id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(userKey{}).(string)
	return id
}
