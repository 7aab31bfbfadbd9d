package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"subscription-commerce/internal/config"
	"subscription-commerce/internal/infra/api/apiv1"
	red "subscription-commerce/internal/infra/redis"
)

// Public endpoints that do work on behalf of anonymous callers are
// throttled per client address.
const (
	confirmLimit  = 30
	cancelLimit   = 10
	limiterWindow = time.Minute
)

type RouterDeps struct {
	API     *apiv1.Server
	Limiter *red.RateLimiter // optional
	Ready   func(ctx context.Context) error
}

func NewRouter(cfg config.HTTPConfig, deps RouterDeps, logger *zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(
		TraceID(),
		RequestLog(logger),
		Recover(logger),
		Timeout(cfg.RequestTimeout),
		MaxBody(cfg.MaxBodyBytes),
	)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if deps.Ready != nil {
			if err := deps.Ready(req.Context()); err != nil {
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	apiv1.RegisterAPIV1(r, deps.API, apiv1.RouteGuards{
		Confirm: RateLimit(deps.Limiter, "payments.confirm", confirmLimit, limiterWindow, logger),
		Cancel:  RateLimit(deps.Limiter, "subscriptions.cancel", cancelLimit, limiterWindow, logger),
	})
	return r
}

// Server owns the listening http.Server.
type Server struct {
	srv *http.Server
	cfg config.HTTPConfig
	log *zerolog.Logger
}

func NewServer(cfg config.HTTPConfig, handler http.Handler, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "http").Logger()
	return &Server{
		cfg: cfg,
		log: &l,
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
		},
	}
}

// Start blocks until the server stops. A graceful Shutdown is not an error.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
