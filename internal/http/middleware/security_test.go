package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// secureEngine mounts SecurityHeaders behind an optional pre-middleware that
// stamps headers the way RequestID and CORS would.
func secureEngine(opt SecurityOptions, pre map[string]string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		for k, v := range pre {
			c.Header(k, v)
		}
		c.Next()
	})
	r.Use(SecurityHeaders(opt))
	for _, p := range []string{"/payments", "/payments/x", "/links", "/health"} {
		r.GET(p, func(c *gin.Context) { c.Status(http.StatusOK) })
	}
	return r
}

func get(r http.Handler, path string, mut func(*http.Request)) http.Header {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if mut != nil {
		mut(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Header()
}

func TestSecurityHeaders_AlwaysOnBaseline(t *testing.T) {
	h := get(secureEngine(SecurityOptions{}, nil), "/health", nil)

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
	}
	for k, v := range want {
		if h.Get(k) != v {
			t.Fatalf("%s = %q; want %q", k, h.Get(k), v)
		}
	}
	for _, k := range []string{"Permissions-Policy", "Cache-Control", "Strict-Transport-Security", "Access-Control-Expose-Headers"} {
		if h.Get(k) != "" {
			t.Fatalf("%s should be unset, got %q", k, h.Get(k))
		}
	}
}

func TestSecurityHeaders_PolicyAndGlobalNoStore(t *testing.T) {
	h := get(secureEngine(SecurityOptions{NoStore: true, EnablePolicy: true}, nil), "/health", nil)

	if h.Get("Permissions-Policy") != "geolocation=(), microphone=(), camera=(), payment=()" {
		t.Fatalf("unexpected Permissions-Policy %q", h.Get("Permissions-Policy"))
	}
	if h.Get("X-Permitted-Cross-Domain-Policies") != "none" {
		t.Fatalf("missing cross-domain policy")
	}
	if h.Get("Cache-Control") != "no-store" || h.Get("Pragma") != "no-cache" || h.Get("Expires") != "0" {
		t.Fatalf("missing cache headers: %#v", h)
	}
}

func TestSecurityHeaders_NoStorePrefixes(t *testing.T) {
	r := secureEngine(SecurityOptions{NoStorePrefixes: []string{"", "/payments", "/links"}}, nil)

	cases := map[string]string{
		"/payments":   "no-store",
		"/payments/x": "no-store",
		"/links":      "no-store",
		"/health":     "",
	}
	for path, want := range cases {
		if got := get(r, path, nil).Get("Cache-Control"); got != want {
			t.Fatalf("%s: Cache-Control=%q; want %q", path, got, want)
		}
	}
}

func TestSecurityHeaders_HSTS(t *testing.T) {
	viaTLS := func(r *http.Request) { r.TLS = &tls.ConnectionState{} }
	viaProxy := func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "HTTPS") }

	cases := []struct {
		name string
		opt  SecurityOptions
		mut  func(*http.Request)
		want string
	}{
		{"disabled", SecurityOptions{HSTSMaxAge: time.Hour}, viaTLS, ""},
		{"plain http", SecurityOptions{EnableHSTS: true}, nil, ""},
		{"tls custom age", SecurityOptions{EnableHSTS: true, HSTSMaxAge: 24 * time.Hour}, viaTLS, "max-age=86400; includeSubDomains; preload"},
		{"proxy default age", SecurityOptions{EnableHSTS: true}, viaProxy, "max-age=15552000; includeSubDomains; preload"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := get(secureEngine(tc.opt, nil), "/health", tc.mut).Get("Strict-Transport-Security")
			if got != tc.want {
				t.Fatalf("HSTS = %q; want %q", got, tc.want)
			}
		})
	}
}

func TestSecurityHeaders_ExposeHeaders(t *testing.T) {
	cases := []struct {
		name   string
		pre    map[string]string
		expose []string
		want   string
	}{
		{"request id only", map[string]string{"X-Request-ID": "rid-1"}, nil, "X-Request-ID"},
		{"no request id", nil, nil, ""},
		{"no request id keeps extras", nil, []string{"ETag"}, "ETag"},
		{"extras deduped case-insensitively", map[string]string{"X-Request-ID": "rid-1"}, []string{"ETag", "Idempotency-Replayed", "etag"}, "X-Request-ID, ETag, Idempotency-Replayed"},
		{"appends to cors value", map[string]string{"X-Request-ID": "rid-2", "Access-Control-Expose-Headers": "Foo"}, nil, "Foo, X-Request-ID"},
		{"existing entry kept once", map[string]string{"X-Request-ID": "rid-3", "Access-Control-Expose-Headers": "x-request-id, ETag"}, []string{"ETag"}, "x-request-id, ETag"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := get(secureEngine(SecurityOptions{Expose: tc.expose}, tc.pre), "/health", nil).Get("Access-Control-Expose-Headers")
			if got != tc.want {
				t.Fatalf("expose = %q; want %q", got, tc.want)
			}
		})
	}
}
