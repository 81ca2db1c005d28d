// Package keepalive serves the liveness endpoint pinged by hosting platforms to keep the bot
// process up along with the prometheus metrics endpoint
package keepalive

import (
	"context"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/teamkill/tkscot/slog"
	"net/http"
	"time"
)

const shutdownTimeout = 5 * time.Second

// Server is the keep-alive http server
type Server struct {
	addr   string
	name   string
	router chi.Router
	logger slog.Logger
}

// Option defines an option for a Server
type Option func(*Server)

// OptionLogger sets the logger
func OptionLogger(logger slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// OptionName sets the bot name reported by the liveness endpoint
func OptionName(name string) Option {
	return func(s *Server) {
		s.name = name
	}
}

// New returns a new Server listening on addr. Metrics are gathered from gatherer
func New(addr string, gatherer prometheus.Gatherer, opts ...Option) (s *Server) {
	s = &Server{addr: addr, name: "tkscot", logger: slog.Discard()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", s.alive)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	s.router = r

	return s
}

// Handler returns the http handler of the server
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) alive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(s.name + " is online!"))
}

// Run serves until ctx is done and then shuts the server down gracefully
func (s *Server) Run(ctx context.Context) (err error) {
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}

	errs := make(chan error, 1)
	go func() {
		s.logger.Printf("Keep-alive server listening on [%s]", s.addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err = <-errs:
		return errors.Wrapf(err, "keep-alive server on [%s] stopped", s.addr)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "failed to shut down keep-alive server")
	}

	return nil
}
