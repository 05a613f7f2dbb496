// Package server serves the note form over HTTP for a browser front end.
// It exposes the settings, composition and submission operations of the
// processor as a JSON API and pushes the AnkiConnect connection state to
// clients over Server-Sent Events.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"codeberg.org/snonux/ankiform/internal/assist"
	"codeberg.org/snonux/ankiform/internal/probe"
	"codeberg.org/snonux/ankiform/internal/processor"
	"codeberg.org/snonux/ankiform/internal/sse"
)

// DefaultAddress is the listen address used when none is configured.
const DefaultAddress = "127.0.0.1:8766"

const shutdownTimeout = 10 * time.Second

// Config wires a Server. Processor and Checker are required.
type Config struct {
	Address   string
	Processor *processor.Processor
	Checker   probe.Checker
	Probe     *probe.Config
	// Generator backs /api/generate; nil disables it.
	Generator *assist.Generator
	// Endpoint is the AnkiConnect URL reported by /api/status.
	Endpoint string
	Logger   *slog.Logger
}

// Server is the HTTP front end.
type Server struct {
	address   string
	proc      *processor.Processor
	checker   probe.Checker
	probeCfg  *probe.Config
	generator *assist.Generator
	endpoint  string
	logger    *slog.Logger

	broker *sse.Broker
	state  atomic.Int32
	router chi.Router
}

// New creates a server and its router.
func New(config Config) *Server {
	s := &Server{
		address:   config.Address,
		proc:      config.Processor,
		checker:   config.Checker,
		probeCfg:  config.Probe,
		generator: config.Generator,
		endpoint:  config.Endpoint,
		logger:    config.Logger,
		broker:    sse.NewBroker(),
	}
	if s.address == "" {
		s.address = DefaultAddress
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health/live", s.live)
	r.Get("/health/ready", s.ready)

	r.Route("/api", func(r chi.Router) {
		r.Get("/settings", s.GetSettings)
		r.Put("/settings", s.PutSettings)
		r.Delete("/settings", s.DeleteSettings)

		r.Get("/decks", s.ListDecks)
		r.Get("/models", s.ListModels)
		r.Get("/models/{model}/fields", s.ListModelFields)

		r.Post("/preview", s.Preview)
		r.Post("/notes", s.AddNote)
		r.Post("/generate/{section}", s.Generate)

		r.Get("/status", s.Status)
		r.Get("/history", s.History)
		r.Get("/events", s.broker.ServeHTTP)
	})
	return r
}

// requestLogger logs one line per request through slog.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// State returns the last probed connection state.
func (s *Server) State() probe.State {
	return probe.State(s.state.Load())
}

// SetState records a connection state and pushes it to SSE clients.
func (s *Server) SetState(st probe.State) {
	s.state.Store(int32(st))
	s.broker.Publish(sse.Event{Type: sse.TypeConnection, Data: map[string]string{
		"state":  st.String(),
		"banner": st.Banner(),
	}})
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln, probing AnkiConnect in the background, until ctx is
// done. It closes the SSE broker on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.broker.Close()

	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		h := probe.New(s.checker, s.probeCfg, s.SetState).Start(gCtx)
		<-gCtx.Done()
		h.Stop()
		return nil
	})

	g.Go(func() error {
		s.logger.Info("Starting HTTP server", slog.String("address", ln.Addr().String()))
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		s.logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		// SSE handlers only return once their subscriber channel closes.
		s.broker.Close()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	s.logger.Info("Server stopped successfully")
	return nil
}
