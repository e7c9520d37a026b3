// Package http serves the bill tracker REST API with chi.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"billtrack/internal/core"
	applog "billtrack/internal/log"
	"billtrack/internal/middleware/ratelimit"
	"billtrack/internal/middleware/security"
	"billtrack/internal/middleware/trace"
	"billtrack/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RowAPI is the service surface the handlers need.
type RowAPI interface {
	ListRows(ctx context.Context) ([]core.Row, error)
	GetRow(ctx context.Context, id string) (core.Row, error)
	CreateRow(ctx context.Context, p core.RowPatch) (core.Row, error)
	UpdateRow(ctx context.Context, id string, p core.RowPatch) (core.Row, error)
	DeleteRow(ctx context.Context, id string) error
	Upload(ctx context.Context, id, fileName string, data []byte) (core.Row, error)
	RunOCR(ctx context.Context, id string) (core.Row, error)
	ListPrices(ctx context.Context, id string) ([]core.PriceEntry, error)
	AddPrice(ctx context.Context, id string, e core.PriceEntry) (core.PriceEntry, error)
	DeletePrice(ctx context.Context, id string, index int) error
	Audit(ctx context.Context) (core.AuditSummary, error)
	Chart(ctx context.Context) (services.ChartData, error)
	Report(ctx context.Context, in services.ReportInput) ([]byte, string, error)
}

// Options configures a Server.
type Options struct {
	// StaticDir is served under /static/; uploads live in its uploads/ child.
	StaticDir   string
	UploadLimit int64
	RateLimit   ratelimit.Config
	Logger      *applog.Logger
}

type Server struct {
	http.Server
	rows    RowAPI
	opts    Options
	logger  *applog.Logger
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer wires the routes and middleware, returning a ready-to-run server.
func NewServer(addr string, rows RowAPI, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.UploadLimit <= 0 {
		opts.UploadLimit = 20 << 20
	}
	logger := opts.Logger.WithComponent(applog.ComponentHTTP)

	detector := security.NewDetector(opts.Logger)
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
		rows:    rows,
		opts:    opts,
		logger:  logger,
		limiter: ratelimit.NewLimiter(opts.RateLimit),
		tracer:  trace.NewMiddleware(opts.Logger, detector.ExtractClientIP),
	}

	r := chi.NewRouter()
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Handler)
	r.Use(s.tracer.Handler)
	r.Use(middleware.Recoverer)
	r.Use(detector.Handler)
	r.Use(s.limiter.Middleware(detector.ExtractClientIP, ratelimit.MutatingOnly, func(w http.ResponseWriter, r *http.Request) {
		logger.WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, detector.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/rows", s.handleListRows)
		r.Post("/rows", s.handleCreateRow)
		r.Route("/rows/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetRow)
			r.Put("/", s.handleUpdateRow)
			r.Delete("/", s.handleDeleteRow)
			r.Post("/ocr", s.handleRunOCR)
			r.Get("/prices", s.handleListPrices)
			r.Post("/prices", s.handleAddPrice)
			r.Delete("/prices/{index}", s.handleDeletePrice)
		})
		r.Post("/upload/{id}", s.handleUpload)

		r.Get("/audit", s.handleAudit)
		r.Get("/chart-data", s.handleChartData)
		r.Get("/report", s.handleReport)
		r.Post("/report", s.handleReport)
	})

	static := http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir)))
	r.With(security.StaticAssetMiddleware(300)).Handle("/static/*", static)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	s.Handler = r
	return s
}

// Shutdown stops the limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// RequestMetrics reports the request counters collected by the tracer.
func (s *Server) RequestMetrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
