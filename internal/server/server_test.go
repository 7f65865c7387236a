package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/go-superchat-bridge/internal/chat"
	"github.com/tbourn/go-superchat-bridge/internal/config"
	"github.com/tbourn/go-superchat-bridge/internal/domain"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       5 * time.Second,
		MaxHeaderBytes:    1 << 20,
		GinMode:           "test",
		ShutdownTimeout:   5 * time.Second,
		APIBasePath:       "/",
		DBPath:            filepath.Join(t.TempDir(), "bridge.db"),
		ChatProvider:      "memory",
		Monitor: config.MonitorConfig{
			PollInterval:  10 * time.Millisecond,
			MaxRetries:    2,
			RetryBackoff:  time.Millisecond,
			ProviderRPS:   1000,
			ProviderBurst: 100,
		},
		Currency:           "ETH",
		MaxMessageRunes:    200,
		LedgerWriteRetries: 1,
		LedgerFlushEvery:   50 * time.Millisecond,
		Links:              config.LinkConfig{CodeLength: 8, CodeAttempts: 5, FrontendBaseURL: "http://localhost:5173"},
		SSEKeepAlive:       time.Second,
		SSEClientBuffer:    4,
		IdempotencyTTL:     time.Hour,
		OTEL:               config.OTELConfig{ServiceName: "bridge-test"},
	}
}

// serve runs s on a loopback port and returns its base URL and a stop func
// that blocks until Serve returned.
func serve(t *testing.T, s *Server) (string, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()
	return "http://" + ln.Addr().String(), func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("serve: %v", err)
			}
		case <-time.After(10 * time.Second):
			t.Fatalf("server did not stop")
		}
	}
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	raw, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestServer_SubmitSurvivesRestart(t *testing.T) {
	cfg := testConfig(t)
	mem := chat.NewMemory()
	mem.GoLive("abc123")

	s, err := New(context.Background(), cfg, WithProvider(mem))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	base, stop := serve(t, s)

	pay := map[string]string{"paymentId": "pay_1", "videoId": "abc123", "payerAddress": "0xBB", "amount": "0.01", "message": "gg"}
	resp, body := postJSON(t, base+"/payments", pay)
	if resp.StatusCode != http.StatusOK || body["status"] != "posted" {
		t.Fatalf("first submit: %d %v", resp.StatusCode, body)
	}
	resp, _ = postJSON(t, base+"/monitors/abc123/start", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start monitor: %d", resp.StatusCode)
	}
	stop()

	// Same database, same provider: the ledger must still know pay_1 and the
	// monitor must come back on its own.
	s2, err := New(context.Background(), cfg, WithProvider(mem))
	if err != nil {
		t.Fatalf("New after restart: %v", err)
	}
	if !s2.Ledger().Contains("pay_1") {
		t.Fatalf("ledger lost pay_1 across restart")
	}
	base, stop = serve(t, s2)
	defer stop()

	resp, body = postJSON(t, base+"/payments", pay)
	if resp.StatusCode != http.StatusOK || body["status"] != "duplicate" {
		t.Fatalf("resubmit after restart: %d %v", resp.StatusCode, body)
	}
	if mem.Posts() != 1 {
		t.Fatalf("posts=%d; want 1", mem.Posts())
	}

	r, err := http.Get(base + "/monitors/abc123")
	if err != nil {
		t.Fatalf("GET monitor: %v", err)
	}
	defer r.Body.Close()
	var sess domain.MonitorSession
	_ = json.NewDecoder(r.Body).Decode(&sess)
	if r.StatusCode != http.StatusOK || !sess.Status.Active() {
		t.Fatalf("monitor not resumed: %d %+v", r.StatusCode, sess)
	}
}

func TestServer_ShutdownEndsEventStreams(t *testing.T) {
	s, err := New(context.Background(), testConfig(t), WithProvider(chat.NewMemory()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	base, stop := serve(t, s)

	resp, err := http.Get(base + "/events")
	if err != nil {
		t.Fatalf("GET /events: %v", err)
	}
	defer resp.Body.Close()
	buf := make([]byte, 64)
	n, _ := resp.Body.Read(buf)
	if !strings.HasPrefix(string(buf[:n]), ": subscribed") {
		t.Fatalf("unexpected stream start %q", buf[:n])
	}

	// stop blocks until Serve returned; an open stream must not hold it.
	stop()
}

func TestServer_SweepPurgesExpired(t *testing.T) {
	s, err := New(context.Background(), testConfig(t), WithProvider(chat.NewMemory()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close(context.Background())

	past := time.Now().UTC().Add(-time.Minute)
	if err := s.db.Create(&domain.ShortLink{Code: "OLDCODE1", VideoID: "abc123", PayeeAddress: "0xAA", InvoiceRef: "inv", CreatedAt: past.Add(-time.Hour), ExpiresAt: &past}).Error; err != nil {
		t.Fatalf("seed link: %v", err)
	}
	if err := s.db.Create(&domain.Idempotency{ID: "i1", Scope: "POST /links", Key: "k", Code: "OLDCODE1", Status: 201, CreatedAt: past, ExpiresAt: past}).Error; err != nil {
		t.Fatalf("seed idem: %v", err)
	}

	s.sweep(context.Background())

	var links, idem int64
	s.db.Model(&domain.ShortLink{}).Count(&links)
	s.db.Model(&domain.Idempotency{}).Count(&idem)
	if links != 0 || idem != 0 {
		t.Fatalf("expected purge, got links=%d idem=%d", links, idem)
	}
}

func TestNew_BadDBPath(t *testing.T) {
	cfg := testConfig(t)
	cfg.DBPath = filepath.Join(t.TempDir(), "missing", "dir", "bridge.db")
	if _, err := New(context.Background(), cfg, WithProvider(chat.NewMemory())); err == nil {
		t.Fatalf("expected error for missing parent dir")
	}
}
