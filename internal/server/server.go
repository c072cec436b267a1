// Package server exposes the cleaning pipeline over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/coordclean/internal/cleaner"
	"github.com/sells-group/coordclean/internal/reference"
)

// Planner builds a cleaning plan from test names and a value mode.
type Planner interface {
	PlanFor(tests []string, value string) (cleaner.Plan, error)
}

// Options configures the server.
type Options struct {
	Port         int
	CorsOrigins  []string
	DefaultTests []string
	// MaxBodyBytes caps the request body; zero means 32 MiB.
	MaxBodyBytes int64
	Timeout      time.Duration
}

// Server is the HTTP surface.
type Server struct {
	server  *http.Server
	router  *chi.Mux
	planner Planner
	refs    *reference.Set
	opts    Options
}

// New creates a server that cleans against refs. refs may be nil.
func New(opts Options, planner Planner, refs *reference.Set) *Server {
	if opts.MaxBodyBytes == 0 {
		opts.MaxBodyBytes = 32 << 20
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if len(opts.CorsOrigins) == 0 {
		opts.CorsOrigins = []string{"*"}
	}

	s := &Server{planner: planner, refs: refs, opts: opts}

	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(opts.Timeout))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CorsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)

		r.Route("/v1", func(r chi.Router) {
			r.Get("/tests", s.listTests)
			r.Post("/clean", s.clean)
		})
	})

	s.router = router
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
