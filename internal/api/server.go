package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Server is the verification HTTP server.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	log             zerolog.Logger
}

type ServerOptions struct {
	Addr            string
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
	RateLimit       float64
	RateBurst       int
}

func NewServer(key []byte, logger zerolog.Logger, opts ServerOptions) *Server {
	logger = logger.With().Str("component", "api").Logger()
	router := NewRouter(NewHandler(key, logger), logger, RouterOptions{
		RateLimit: opts.RateLimit,
		RateBurst: opts.RateBurst,
	})
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              opts.Addr,
			Handler:           router,
			ReadHeaderTimeout: opts.ReadTimeout,
			ReadTimeout:       opts.ReadTimeout,
		},
		shutdownTimeout: opts.ShutdownTimeout,
		log:             logger,
	}
}

// Serve accepts on ln until Shutdown. A clean shutdown returns nil.
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info().Str("address", ln.Addr().String()).Msg("Starting HTTP server")
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "HTTP server error")
	}
	return nil
}

// Start listens on the configured address and serves.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return errors.Wrap(err, "listen")
	}
	return s.Serve(ln)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}
	return nil
}
