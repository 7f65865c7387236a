package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/rid", func(c *gin.Context) {
		c.String(http.StatusOK, RequestIDFrom(c))
	})

	cases := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated when absent", "", false},
		{"propagated when printable", "abc-123", true},
		{"replaced when it has spaces", "has space", false},
		{"replaced when it has control bytes", "tab\tbed", false},
		{"replaced when too long", strings.Repeat("x", maxRequestIDLength+1), false},
		{"kept at the length limit", strings.Repeat("y", maxRequestIDLength), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/rid", nil)
			if tc.incoming != "" {
				req.Header.Set(requestIDHeader, tc.incoming)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get(requestIDHeader)
			if got == "" || w.Body.String() != got {
				t.Fatalf("header %q and context id %q should match", got, w.Body.String())
			}
			if (got == tc.incoming) != tc.keep {
				t.Fatalf("incoming %q -> %q, keep=%v", tc.incoming, got, tc.keep)
			}
		})
	}
}

func TestRequestIDFrom_OutsideMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if RequestIDFrom(c) != "" {
		t.Fatalf("expected empty id without RequestID middleware")
	}
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)
	before := testutil.ToFloat64(panicsRecovered)

	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{}), Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })
	r.GET("/late", func(c *gin.Context) {
		c.String(http.StatusOK, "data: partial\n\n")
		panic("stream broke")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set(requestIDHeader, "rid-panic")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json body: %v", err)
	}
	if body["code"] != "internal_error" || body["error"] != "Internal" || body["request_id"] != "rid-panic" {
		t.Fatalf("unexpected body: %v", body)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/late", nil))
	if strings.Contains(w.Body.String(), "internal_error") {
		t.Fatalf("no envelope after a partial write, got %q", w.Body.String())
	}

	if got := testutil.ToFloat64(panicsRecovered) - before; got != 2 {
		t.Fatalf("expected 2 recovered panics, got %v", got)
	}
	if n := strings.Count(buf.String(), "panic recovered"); n != 2 {
		t.Fatalf("expected 2 panic logs, got %d:\n%s", n, buf.String())
	}
}

func TestLoggerFrom(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{SkipPaths: []string{"/health"}}))
	handler := func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("from " + c.FullPath())
		c.Status(http.StatusOK)
	}
	r.GET("/health", handler)
	r.GET("/links", handler)

	for _, p := range []string{"/health", "/links"} {
		req := httptest.NewRequest(http.MethodGet, p, nil)
		req.Header.Set(requestIDHeader, "rid"+strings.ReplaceAll(p, "/", "-"))
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	var health, links map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		switch m["message"] {
		case "from /health":
			health = m
		case "from /links":
			links = m
		}
	}
	if health == nil || health["request_id"] != nil {
		t.Fatalf("skipped path should use the global logger: %v", health)
	}
	if links == nil || links["request_id"] != "rid-links" || links["path"] != "/links" {
		t.Fatalf("request-scoped logger should carry request fields: %v", links)
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"abcdefgh", 5, "abcde…"},
		{"abc", 0, "abc"},
		{"abc", -1, "abc"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.max); got != tc.want {
			t.Fatalf("truncate(%q,%d) = %q; want %q", tc.in, tc.max, got, tc.want)
		}
	}
}
