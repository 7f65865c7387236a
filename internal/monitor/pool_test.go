package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tbourn/go-superchat-bridge/internal/chat"
	"github.com/tbourn/go-superchat-bridge/internal/domain"
)

type memStore struct {
	mu    sync.Mutex
	snaps map[string]domain.MonitorSession
}

func newMemStore(seed ...domain.MonitorSession) *memStore {
	s := &memStore{snaps: map[string]domain.MonitorSession{}}
	for _, snap := range seed {
		s.snaps[snap.VideoID] = snap
	}
	return s
}

func (s *memStore) SaveSession(_ context.Context, snap domain.MonitorSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[snap.VideoID] = snap
	return nil
}

func (s *memStore) LoadSessions(context.Context) ([]domain.MonitorSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.MonitorSession, 0, len(s.snaps))
	for _, snap := range s.snaps {
		out = append(out, snap)
	}
	return out, nil
}

func (s *memStore) get(videoID string) domain.MonitorSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snaps[videoID]
}

type lineRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *lineRecorder) observe(_ string, msgs []chat.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.lines = append(r.lines, m.Text)
	}
}

func (r *lineRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func newTestPool(t *testing.T, provider chat.Provider, opts ...Option) *Pool {
	t.Helper()
	base := []Option{WithPollInterval(5 * time.Millisecond), WithRetries(2, time.Millisecond)}
	p := NewPool(provider, append(base, opts...)...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = p.Shutdown(ctx)
	})
	return p
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func statusIs(p *Pool, videoID string, want domain.SessionStatus) func() bool {
	return func() bool {
		s, ok := p.Session(videoID)
		return ok && s.Status == want
	}
}

func TestEnsureSession_InvalidVideoID(t *testing.T) {
	p := newTestPool(t, chat.NewMemory())
	if _, err := p.EnsureSession(context.Background(), "  "); !errors.Is(err, ErrInvalidVideoID) {
		t.Fatalf("expected ErrInvalidVideoID, got %v", err)
	}
}

func TestEnsureSession_ConcurrentCallsCreateOne(t *testing.T) {
	mem := chat.NewMemory()
	mem.GoLive("abc123")
	p := newTestPool(t, mem)

	const n = 32
	var (
		wg      sync.WaitGroup
		created atomic.Int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := p.EnsureSession(context.Background(), "abc123")
			if err != nil {
				t.Errorf("EnsureSession: %v", err)
			}
			if ok {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	if created.Load() != 1 {
		t.Fatalf("expected exactly one session to be created, got %d", created.Load())
	}
	waitFor(t, "running", statusIs(p, "abc123", domain.SessionRunning))
	if len(p.Sessions()) != 1 {
		t.Fatalf("expected one session, got %d", len(p.Sessions()))
	}

	// A running session is a no-op.
	if ok, _ := p.EnsureSession(context.Background(), "abc123"); ok {
		t.Fatalf("EnsureSession on a running session must not create another")
	}
}

func TestSession_SkipsBacklogAndObservesNewLines(t *testing.T) {
	mem := chat.NewMemory()
	mem.GoLive("abc123")
	_ = mem.Inject("abc123", "alice", "old line")

	rec := &lineRecorder{}
	p := newTestPool(t, mem, WithObserver(rec.observe))
	if _, err := p.EnsureSession(context.Background(), "abc123"); err != nil {
		t.Fatalf("EnsureSession: %v", err)
	}
	waitFor(t, "running", statusIs(p, "abc123", domain.SessionRunning))

	_ = mem.Inject("abc123", "bob", "new line")
	waitFor(t, "observed line", func() bool { return len(rec.snapshot()) == 1 })

	if got := rec.snapshot(); got[0] != "new line" {
		t.Fatalf("observer got %v; backlog must be skipped", got)
	}
	s, _ := p.Session("abc123")
	if s.Cursor != "2" || s.LiveChatID == "" || s.LastPollAt == nil {
		t.Fatalf("unexpected session after poll: %+v", s)
	}
}

func TestSession_NotLiveEndsAndCanBeRearmed(t *testing.T) {
	mem := chat.NewMemory()
	p := newTestPool(t, mem)

	if ok, err := p.EnsureSession(context.Background(), "v1"); !ok || err != nil {
		t.Fatalf("EnsureSession: %v %v", ok, err)
	}
	waitFor(t, "ended", statusIs(p, "v1", domain.SessionEnded))
	if s, _ := p.Session("v1"); s.LastError == "" {
		t.Fatalf("ended session should keep the reason")
	}

	mem.GoLive("v1")
	if ok, err := p.EnsureSession(context.Background(), "v1"); !ok || err != nil {
		t.Fatalf("re-arm: %v %v", ok, err)
	}
	waitFor(t, "running after re-arm", statusIs(p, "v1", domain.SessionRunning))
}

func TestSession_ChatEndedWhileRunning(t *testing.T) {
	mem := chat.NewMemory()
	mem.GoLive("v1")
	p := newTestPool(t, mem)

	_, _ = p.EnsureSession(context.Background(), "v1")
	waitFor(t, "running", statusIs(p, "v1", domain.SessionRunning))
	mem.End("v1")
	waitFor(t, "ended", statusIs(p, "v1", domain.SessionEnded))
}

func TestSession_TransientErrors(t *testing.T) {
	t.Run("recovers within budget", func(t *testing.T) {
		mem := chat.NewMemory()
		mem.GoLive("v1")
		boom := chat.Transient(errors.New("503"))
		mem.FailLists(boom, boom)
		p := newTestPool(t, mem)

		_, _ = p.EnsureSession(context.Background(), "v1")
		waitFor(t, "running", statusIs(p, "v1", domain.SessionRunning))
	})

	t.Run("fails after budget", func(t *testing.T) {
		mem := chat.NewMemory()
		mem.GoLive("v1")
		boom := chat.Transient(errors.New("503"))
		mem.FailLists(boom, boom, boom)
		p := newTestPool(t, mem)

		_, _ = p.EnsureSession(context.Background(), "v1")
		waitFor(t, "failed", statusIs(p, "v1", domain.SessionFailed))

		// Failed sessions are eligible for restart.
		if ok, _ := p.EnsureSession(context.Background(), "v1"); !ok {
			t.Fatalf("failed session should be re-armable")
		}
		waitFor(t, "running", statusIs(p, "v1", domain.SessionRunning))
	})

	t.Run("permanent error fails at once", func(t *testing.T) {
		mem := chat.NewMemory()
		mem.GoLive("v1")
		mem.FailLists(errors.New("forbidden"))
		p := newTestPool(t, mem)

		_, _ = p.EnsureSession(context.Background(), "v1")
		waitFor(t, "failed", statusIs(p, "v1", domain.SessionFailed))
	})
}

func TestShutdown_PersistsLastCursor(t *testing.T) {
	mem := chat.NewMemory()
	mem.GoLive("v1")
	store := newMemStore()
	p := NewPool(mem, WithPollInterval(5*time.Millisecond), WithStore(store))

	_, _ = p.EnsureSession(context.Background(), "v1")
	waitFor(t, "running", statusIs(p, "v1", domain.SessionRunning))
	_ = mem.Inject("v1", "alice", "hi")
	waitFor(t, "cursor advanced", func() bool {
		s, _ := p.Session("v1")
		return s.Cursor == "1"
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	snap := store.get("v1")
	if snap.Cursor != "1" || snap.Status != domain.SessionRunning {
		t.Fatalf("final snapshot lost state: %+v", snap)
	}
	if _, err := p.EnsureSession(context.Background(), "v2"); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown should be a no-op: %v", err)
	}
}

func TestRestore_ResumesActiveSessions(t *testing.T) {
	mem := chat.NewMemory()
	mem.GoLive("live")
	_ = mem.Inject("live", "alice", "seen before restart")

	now := time.Now().UTC()
	store := newMemStore(
		domain.MonitorSession{VideoID: "live", Status: domain.SessionRunning, Cursor: "1", StartedAt: now, UpdatedAt: now},
		domain.MonitorSession{VideoID: "gone", Status: domain.SessionEnded, LastError: "chat ended", StartedAt: now, UpdatedAt: now},
	)
	rec := &lineRecorder{}
	p := newTestPool(t, mem, WithStore(store), WithObserver(rec.observe))

	resumed, err := p.Restore(context.Background())
	if err != nil || resumed != 1 {
		t.Fatalf("Restore = %d, %v; want 1", resumed, err)
	}
	waitFor(t, "running", statusIs(p, "live", domain.SessionRunning))
	if s, ok := p.Session("gone"); !ok || s.Status != domain.SessionEnded {
		t.Fatalf("ended snapshot should be kept for inspection: %+v %v", s, ok)
	}

	_ = mem.Inject("live", "bob", "after restart")
	waitFor(t, "observed", func() bool { return len(rec.snapshot()) == 1 })
	if got := rec.snapshot(); got[0] != "after restart" {
		t.Fatalf("resumed session replayed old lines: %v", got)
	}
}
