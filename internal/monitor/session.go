package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/tbourn/go-superchat-bridge/internal/chat"
	"github.com/tbourn/go-superchat-bridge/internal/domain"
	"github.com/tbourn/go-superchat-bridge/internal/observability"
)

// run drives one session from starting to a terminal state or cancellation.
func (p *Pool) run(ctx context.Context, s *session) {
	videoID := s.state.VideoID
	lg := p.log.With().Str("video_id", videoID).Logger()

	var liveChatID string
	err := p.retry(ctx, func() error {
		id, err := p.provider.ResolveLiveChatID(ctx, videoID)
		liveChatID = id
		return err
	})
	if err != nil {
		p.finish(ctx, s, err)
		return
	}

	p.mu.Lock()
	cursor := s.state.Cursor
	p.mu.Unlock()

	var wait time.Duration
	if cursor == "" {
		// Prime the cursor; whatever is already in chat is not ours to observe.
		var page chat.Page
		err = p.retry(ctx, func() error {
			var err error
			page, err = p.provider.ListMessages(ctx, liveChatID, "")
			return err
		})
		if err != nil {
			p.finish(ctx, s, err)
			return
		}
		cursor, wait = page.NextCursor, page.PollAfter
	}

	now := time.Now().UTC()
	p.update(s, func(st *domain.MonitorSession) {
		st.LiveChatID = liveChatID
		st.Cursor = cursor
		st.Status = domain.SessionRunning
		st.LastPollAt = &now
		st.LastError = ""
	})
	lg.Debug().Str("live_chat_id", liveChatID).Msg("monitor session running")

	for {
		if wait < p.interval {
			wait = p.interval
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}

		var page chat.Page
		err := p.retry(ctx, func() error {
			var err error
			page, err = p.provider.ListMessages(ctx, liveChatID, cursor)
			return err
		})
		if err != nil {
			p.finish(ctx, s, err)
			return
		}

		observability.MonitorPolls.WithLabelValues("ok").Inc()
		if page.NextCursor != "" {
			cursor = page.NextCursor
		}
		wait = page.PollAfter
		polled := time.Now().UTC()
		p.update(s, func(st *domain.MonitorSession) {
			st.Cursor = cursor
			st.LastPollAt = &polled
		})
		if len(page.Messages) > 0 && p.observer != nil {
			p.observer(videoID, page.Messages)
		}
	}
}

// retry calls fn until it succeeds, fails permanently, or exhausts the
// transient budget. Every attempt waits for the shared provider limiter.
func (p *Pool) retry(ctx context.Context, fn func() error) error {
	for attempt := 0; ; attempt++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
		err := fn()
		if err == nil || !chat.IsTransient(err) {
			return err
		}
		observability.MonitorPolls.WithLabelValues("transient").Inc()
		if attempt >= p.maxRetries {
			return err
		}
		d := p.backoff << attempt
		p.log.Warn().Err(err).Int("attempt", attempt+1).Dur("backoff", d).Msg("transient provider error")
		t := time.NewTimer(d)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// finish records the terminal state for err. Cancellation leaves the state
// untouched so Shutdown can persist it as it was.
func (p *Pool) finish(ctx context.Context, s *session, err error) {
	if ctx.Err() != nil {
		return
	}
	status := domain.SessionFailed
	if errors.Is(err, chat.ErrChatEnded) || errors.Is(err, chat.ErrNotLive) {
		status = domain.SessionEnded
		observability.MonitorPolls.WithLabelValues("ended").Inc()
	} else {
		observability.MonitorPolls.WithLabelValues("error").Inc()
	}
	snap := p.update(s, func(st *domain.MonitorSession) {
		st.Status = status
		st.LastError = err.Error()
	})
	ev := p.log.Info()
	if status == domain.SessionFailed {
		ev = p.log.Error()
	}
	ev.Err(err).Str("video_id", snap.VideoID).Str("status", string(status)).Msg("monitor session stopped")
}
