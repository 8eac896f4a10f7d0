package app

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Novip1906/todo-api/internal/config"
	"github.com/Novip1906/todo-api/internal/middleware"
	"github.com/Novip1906/todo-api/pkg/logging"
)

// httpServer is the listen/shutdown loop shared by both services.
type httpServer struct {
	srv     *http.Server
	log     *slog.Logger
	timeout time.Duration
	closers []func(context.Context) error
}

func newHTTPServer(addr string, handler http.Handler, sc config.Server, log *slog.Logger) *httpServer {
	return &httpServer{
		srv: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  sc.ReadTimeout,
			WriteTimeout: sc.WriteTimeout,
		},
		log:     log,
		timeout: sc.ShutdownTimeout,
	}
}

func (s *httpServer) onClose(fn func(context.Context) error) {
	s.closers = append(s.closers, fn)
}

// Run serves until ctx is cancelled, then drains in-flight requests and
// releases every registered dependency.
func (s *httpServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err = s.srv.Shutdown(shutdownCtx)
	s.close()
	return err
}

func (s *httpServer) close() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			s.log.Error("close dependency", logging.Err(err))
		}
	}
}

func baseRouter(log *slog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.LoggingMiddleware(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return r
}
