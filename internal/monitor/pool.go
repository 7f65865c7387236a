// Package monitor runs one live chat polling session per video.
//
// Session state is owned by the Pool and guarded by its mutex; other
// components ask for a session with EnsureSession and read copies with
// Session and Sessions. Each session polls in its own goroutine, advances
// its cursor only after a successful read, and writes a snapshot to the
// SessionStore on every status change and at shutdown.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-superchat-bridge/internal/chat"
	"github.com/tbourn/go-superchat-bridge/internal/domain"
	"github.com/tbourn/go-superchat-bridge/internal/observability"
)

var (
	// ErrPoolClosed is returned by EnsureSession after Shutdown.
	ErrPoolClosed = errors.New("monitor: pool is shut down")
	// ErrInvalidVideoID is returned for an empty video id.
	ErrInvalidVideoID = errors.New("monitor: video id is required")
)

// Observer receives every batch of new chat lines read by a session.
type Observer func(videoID string, msgs []chat.Message)

// Option configures a Pool.
type Option func(*Pool)

// WithPollInterval sets the minimum wait between reads.
func WithPollInterval(d time.Duration) Option { return func(p *Pool) { p.interval = d } }

// WithRetries sets how many consecutive transient failures a session
// tolerates and the base backoff, doubled per attempt.
func WithRetries(max int, backoff time.Duration) Option {
	return func(p *Pool) { p.maxRetries, p.backoff = max, backoff }
}

// WithRateLimit paces provider calls across all sessions.
func WithRateLimit(rps float64, burst int) Option {
	return func(p *Pool) { p.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithObserver registers the chat line consumer.
func WithObserver(o Observer) Option { return func(p *Pool) { p.observer = o } }

// WithStore sets where snapshots are written.
func WithStore(s SessionStore) Option { return func(p *Pool) { p.store = s } }

// Pool is safe for concurrent use.
type Pool struct {
	provider   chat.Provider
	store      SessionStore
	observer   Observer
	limiter    *rate.Limiter
	interval   time.Duration
	maxRetries int
	backoff    time.Duration
	log        zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	sessions map[string]*session
}

type session struct {
	state  domain.MonitorSession
	cancel context.CancelFunc
}

// NewPool returns an idle pool.
func NewPool(provider chat.Provider, opts ...Option) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		provider:   provider,
		store:      nopStore{},
		limiter:    rate.NewLimiter(rate.Inf, 1),
		interval:   5 * time.Second,
		maxRetries: 5,
		backoff:    time.Second,
		log:        log.With().Str("component", "monitor").Logger(),
		ctx:        ctx,
		cancel:     cancel,
		sessions:   make(map[string]*session),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// EnsureSession makes sure a session for videoID is starting or running. It
// reports true only when it created one. Ended and failed sessions are
// replaced by a fresh session with a reset cursor.
func (p *Pool) EnsureSession(ctx context.Context, videoID string) (bool, error) {
	_, span := otel.Tracer("monitor").Start(ctx, "EnsureSession",
		trace.WithAttributes(attribute.String("video.id", videoID)),
	)
	defer span.End()

	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return false, ErrInvalidVideoID
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false, ErrPoolClosed
	}
	if s, ok := p.sessions[videoID]; ok && s.state.Status.Active() {
		p.mu.Unlock()
		return false, nil
	}
	now := time.Now().UTC()
	s := p.startLocked(domain.MonitorSession{
		VideoID:   videoID,
		Status:    domain.SessionStarting,
		StartedAt: now,
		UpdatedAt: now,
	})
	snap := s.state
	p.refreshGaugesLocked()
	p.mu.Unlock()

	span.SetAttributes(attribute.Bool("session.created", true))
	p.persist(snap)
	p.log.Info().Str("video_id", videoID).Msg("monitor session started")
	return true, nil
}

// Restore loads persisted snapshots. Sessions that were still active when
// the previous process stopped are resumed from their stored cursor; the
// rest are kept for inspection.
func (p *Pool) Restore(ctx context.Context) (resumed int, err error) {
	snaps, err := p.store.LoadSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("monitor: load sessions: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrPoolClosed
	}
	for _, snap := range snaps {
		if _, ok := p.sessions[snap.VideoID]; ok {
			continue
		}
		if snap.Status.Active() {
			snap.Status = domain.SessionStarting
			p.startLocked(snap)
			resumed++
			continue
		}
		p.sessions[snap.VideoID] = &session{state: snap}
	}
	p.refreshGaugesLocked()
	return resumed, nil
}

// Session returns a copy of the session for videoID.
func (p *Pool) Session(videoID string) (domain.MonitorSession, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[videoID]
	if !ok {
		return domain.MonitorSession{}, false
	}
	return s.state, true
}

// Sessions returns copies of all sessions ordered by video id.
func (p *Pool) Sessions() []domain.MonitorSession {
	p.mu.Lock()
	out := make([]domain.MonitorSession, 0, len(p.sessions))
	for _, s := range p.sessions {
		out = append(out, s.state)
	}
	p.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].VideoID < out[j].VideoID })
	return out
}

// Shutdown stops every session, waits for the pollers to exit, and writes a
// final snapshot of each session. Cursors keep the last successful read.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("monitor: shutdown: %w", ctx.Err())
	}

	snaps := p.Sessions()
	for _, snap := range snaps {
		if err := p.store.SaveSession(ctx, snap); err != nil {
			p.log.Error().Err(err).Str("video_id", snap.VideoID).Msg("final session snapshot failed")
		}
	}
	p.log.Info().Int("sessions", len(snaps)).Msg("monitor pool stopped")
	return nil
}

func (p *Pool) startLocked(state domain.MonitorSession) *session {
	sctx, cancel := context.WithCancel(p.ctx)
	s := &session{state: state, cancel: cancel}
	p.sessions[state.VideoID] = s
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()
		p.run(sctx, s)
	}()
	return s
}

// update mutates a session under the pool lock and persists the result when
// the status changed.
func (p *Pool) update(s *session, fn func(*domain.MonitorSession)) domain.MonitorSession {
	p.mu.Lock()
	before := s.state.Status
	fn(&s.state)
	s.state.UpdatedAt = time.Now().UTC()
	snap := s.state
	if before != snap.Status {
		p.refreshGaugesLocked()
	}
	p.mu.Unlock()

	if before != snap.Status {
		p.persist(snap)
	}
	return snap
}

func (p *Pool) persist(snap domain.MonitorSession) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.store.SaveSession(ctx, snap); err != nil {
		p.log.Warn().Err(err).Str("video_id", snap.VideoID).Str("status", string(snap.Status)).Msg("session snapshot not saved")
	}
}

func (p *Pool) refreshGaugesLocked() {
	counts := map[domain.SessionStatus]int{}
	for _, s := range p.sessions {
		counts[s.state.Status]++
	}
	for _, st := range []domain.SessionStatus{domain.SessionStarting, domain.SessionRunning, domain.SessionEnded, domain.SessionFailed} {
		observability.MonitorSessions.WithLabelValues(string(st)).Set(float64(counts[st]))
	}
}
