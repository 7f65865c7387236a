// Package server assembles the bridge from configuration and runs it until
// its context ends: storage, ledger, chat provider, monitor pool, event hub,
// HTTP transport, and the background maintenance loops.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-superchat-bridge/internal/chat"
	"github.com/tbourn/go-superchat-bridge/internal/config"
	"github.com/tbourn/go-superchat-bridge/internal/events"
	httpapi "github.com/tbourn/go-superchat-bridge/internal/http"
	"github.com/tbourn/go-superchat-bridge/internal/ledger"
	"github.com/tbourn/go-superchat-bridge/internal/monitor"
	"github.com/tbourn/go-superchat-bridge/internal/observability"
	"github.com/tbourn/go-superchat-bridge/internal/repo"
	"github.com/tbourn/go-superchat-bridge/internal/services"
)

// Version is stamped at build time with -ldflags "-X ...server.Version=v1.2.3".
var Version = "dev"

// Server owns every long-lived component of the bridge.
type Server struct {
	cfg      config.Config
	db       *gorm.DB
	provider chat.Provider
	ledger   *ledger.Ledger
	pool     *monitor.Pool
	hub      *events.Broadcaster
	bridge   *services.BridgeService
	engine   *gin.Engine

	sweepEvery    time.Duration
	traceShutdown func(context.Context) error
}

// Option customizes New.
type Option func(*Server)

// WithProvider replaces the provider selected by CHAT_PROVIDER.
func WithProvider(p chat.Provider) Option { return func(s *Server) { s.provider = p } }

// WithSweepInterval sets how often expired links and idempotency records
// are purged. Defaults to one hour.
func WithSweepInterval(d time.Duration) Option { return func(s *Server) { s.sweepEvery = d } }

// New opens storage, rebuilds the ledger index, restores monitor sessions
// that were active at the last shutdown, and mounts the HTTP routes.
func New(ctx context.Context, cfg config.Config, opts ...Option) (_ *Server, err error) {
	s := &Server{cfg: cfg, sweepEvery: time.Hour}
	for _, o := range opts {
		o(s)
	}
	defer func() {
		if err != nil && s.db != nil {
			if sqlDB, derr := s.db.DB(); derr == nil {
				_ = sqlDB.Close()
			}
		}
	}()

	shutdown, err := observability.SetupTracing(ctx, cfg.OTEL, observability.BuildInfo{
		Version:      Version,
		ChatProvider: cfg.ChatProvider,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}
	s.traceShutdown = shutdown

	if s.db, err = repo.OpenSQLite(cfg.DBPath); err != nil {
		return nil, fmt.Errorf("open db %q: %w", cfg.DBPath, err)
	}
	if err := repo.AutoMigrate(s.db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	if s.ledger, err = ledger.Open(ctx, ledger.GormStore{DB: s.db}); err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}

	if s.provider == nil {
		if s.provider, err = newProvider(ctx, cfg); err != nil {
			return nil, err
		}
	}

	s.hub = events.NewBroadcaster(cfg.SSEClientBuffer)

	s.bridge = services.NewBridgeService(s.db, s.provider, s.ledger, s.hub)
	if cfg.Currency != "" {
		s.bridge.Currency = cfg.Currency
	}
	if cfg.MaxMessageRunes > 0 {
		s.bridge.MaxLineRunes = cfg.MaxMessageRunes
	}
	s.bridge.LedgerRetries = cfg.LedgerWriteRetries

	s.pool = monitor.NewPool(s.provider,
		monitor.WithPollInterval(cfg.Monitor.PollInterval),
		monitor.WithRetries(cfg.Monitor.MaxRetries, cfg.Monitor.RetryBackoff),
		monitor.WithRateLimit(cfg.Monitor.ProviderRPS, cfg.Monitor.ProviderBurst),
		monitor.WithObserver(s.bridge.ObserveChat),
		monitor.WithStore(monitor.GormSessionStore{DB: s.db}),
	)
	if n, err := s.pool.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("monitor sessions not restored")
	} else if n > 0 {
		log.Info().Int("sessions", n).Msg("monitor sessions resumed")
	}

	gin.SetMode(cfg.GinMode)
	s.engine = gin.New()
	httpapi.RegisterRoutes(s.engine, httpapi.Deps{
		DB:       s.db,
		Bridge:   s.bridge,
		Monitors: s.pool,
		Events:   s.hub,
		Ledger:   s.ledger,
	}, cfg)

	return s, nil
}

func newProvider(ctx context.Context, cfg config.Config) (chat.Provider, error) {
	switch cfg.ChatProvider {
	case "memory":
		log.Warn().Msg("using in-memory chat provider; nothing reaches a real live chat")
		return chat.NewMemory(), nil
	default:
		return chat.NewYouTube(ctx, cfg.YouTube)
	}
}

// Handler exposes the HTTP routes.
func (s *Server) Handler() http.Handler { return s.engine }

// Ledger exposes the dedup ledger for maintenance commands.
func (s *Server) Ledger() *ledger.Ledger { return s.ledger }

// Run listens on cfg.Port and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+s.cfg.Port)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully: stop
// accepting requests, end event streams, stop monitors (persisting their
// cursors), flush deferred ledger writes, and close the database.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
		MaxHeaderBytes:    s.cfg.MaxHeaderBytes,
	}

	bgCtx, stopBG := context.WithCancel(context.Background())
	var bg sync.WaitGroup
	bg.Add(2)
	go func() {
		defer bg.Done()
		s.ledger.RunFlusher(bgCtx, flushEvery(s.cfg.LedgerFlushEvery))
	}()
	go func() {
		defer bg.Done()
		s.runSweeper(bgCtx)
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Str("version", Version).Msg("listening")
		errCh <- srv.Serve(ln)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		if errors.Is(serveErr, http.ErrServerClosed) {
			serveErr = nil
		}
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	sctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Open event streams never finish on their own; close the hub first so
	// Shutdown does not wait on them.
	s.hub.Close()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	if err := s.pool.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("monitor shutdown")
	}

	stopBG()
	bg.Wait()

	if n := s.ledger.Pending(); n > 0 {
		log.Error().Int("pending", n).Msg("posted superchats still missing from the durable ledger at exit")
	}

	s.close(sctx)
	log.Info().Msg("stopped")
	return serveErr
}

// Close releases everything New acquired, for callers that never Serve.
func (s *Server) Close(ctx context.Context) error {
	_ = s.pool.Shutdown(ctx)
	s.hub.Close()
	return s.close(ctx)
}

func (s *Server) close(ctx context.Context) error {
	var errs []error
	if sqlDB, err := s.db.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	}
	if s.traceShutdown != nil {
		errs = append(errs, s.traceShutdown(ctx))
	}
	return errors.Join(errs...)
}

func (s *Server) runSweeper(ctx context.Context) {
	t := time.NewTicker(s.sweepEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.sweep(ctx)
		}
	}
}

// sweep purges idempotency records and short links past their expiry.
func (s *Server) sweep(ctx context.Context) {
	now := time.Now().UTC()
	if n, err := repo.PurgeExpiredIdempotency(ctx, s.db, now); err != nil {
		log.Warn().Err(err).Msg("purge idempotency")
	} else if n > 0 {
		log.Debug().Int64("rows", n).Msg("purged idempotency records")
	}
	if n, err := repo.DeleteExpiredShortLinks(ctx, s.db, now); err != nil {
		log.Warn().Err(err).Msg("purge links")
	} else if n > 0 {
		log.Debug().Int64("rows", n).Msg("purged expired links")
	}
}

func flushEvery(d time.Duration) time.Duration {
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}
