package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRedact(t *testing.T) {
	cases := map[string]string{
		"payee=0xAbCdEf0123456789aBcDeF0123456789AbCdEf01": "payee=[REDACTED:wallet]",
		"lnaddr=satoshi@ln.example.com":                   "lnaddr=[REDACTED:address]",
		"id=123e4567-e89b-12d3-a456-426614174000":         "id=[REDACTED:id]",
		"addr=bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq":  "addr=[REDACTED:wallet]",
		"vid=abc123&page=2":                               "vid=abc123&page=2",
		"":                                                "",
	}
	for in, want := range cases {
		if got := Redact(in); got != want {
			t.Errorf("Redact(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestRedactingLogger_InfoAndRedactions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(RedactingLogger(RedactOptions{MaskHeaders: []string{"X-Api-Key"}}))
	r.GET("/links/:code", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	q := "lnaddr=a.b+tag@example.com&payee=0x00000000000000000000000000000000000000aa"
	req := httptest.NewRequest(http.MethodGet, "/links/Q7K2M1AB?"+q, nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("Cookie", "sid=topsecret")
	req.Header.Set("X-Api-Key", "shhh")
	req.Header.Set("X-Custom", "to a@b.com id=123e4567-e89b-12d3-a456-426614174000")
	req.Header.Set(requestIDHeader, "rid-1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	logs := buf.String()
	for _, want := range []string{
		`"level":"info"`,
		`"path":"/links/:code"`,
		`"request_id":"rid-1"`,
		`[REDACTED:address]`,
		`[REDACTED:wallet]`,
		`"Authorization":"[REDACTED]"`,
		`"Cookie":"[REDACTED]"`,
		`"X-Api-Key":"[REDACTED]"`,
		`"X-Custom":"to [REDACTED:address] id=[REDACTED:id]"`,
	} {
		if !strings.Contains(logs, want) {
			t.Fatalf("expected %s in logs: %s", want, logs)
		}
	}
	if strings.Contains(logs, "topsecret") || strings.Contains(logs, "tag@example.com") {
		t.Fatalf("secret leaked into logs: %s", logs)
	}
}

func TestRedactingLogger_LevelsAndSkipPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(RedactingLogger(RedactOptions{SkipPaths: []string{"/metrics"}}))
	r.GET("/warn", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/error", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, p := range []string{"/warn", "/error", "/metrics"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	logs := buf.String()
	if !strings.Contains(logs, `"level":"warn"`) || !strings.Contains(logs, `"level":"error"`) {
		t.Fatalf("expected warn and error logs: %s", logs)
	}
	if strings.Contains(logs, `"path":"/metrics"`) {
		t.Fatalf("skipped path was logged: %s", logs)
	}
}
