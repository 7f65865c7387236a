package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-superchat-bridge/internal/domain"
	"github.com/tbourn/go-superchat-bridge/internal/events"
	"github.com/tbourn/go-superchat-bridge/internal/http/middleware"
	"github.com/tbourn/go-superchat-bridge/internal/repo"
)

type fixture struct {
	r        *gin.Engine
	links    *fakeLinks
	bridge   *fakeBridge
	monitors *fakeMonitors
	hub      *events.Broadcaster
	db       *gorm.DB
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// newFixture mounts every handler the way the router does, minus the
// cross-cutting middleware that has its own tests.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		r:        gin.New(),
		links:    newFakeLinks(),
		bridge:   newFakeBridge(),
		monitors: newFakeMonitors(),
		hub:      events.NewBroadcaster(8),
		db:       newTestDB(t),
	}
	t.Cleanup(f.hub.Close)

	h := New(f.links, f.bridge, f.monitors, f.hub, Options{
		DB:        f.db,
		KeepAlive: 20 * time.Millisecond,
	})

	f.r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, idempotencyLookup(f.db)))

	f.r.POST("/links", h.CreateLink)
	f.r.GET("/links", h.CountLinks)
	f.r.GET("/links/:code", h.GetLink)
	f.r.GET("/links/:code/url", h.GetLinkURL)
	f.r.POST("/payments", h.SubmitPayment)
	f.r.GET("/payments", h.ListPayments)
	f.r.GET("/events", h.StreamEvents)
	f.r.POST("/monitors/:videoId/start", h.StartMonitor)
	f.r.GET("/monitors/:videoId", h.GetMonitor)
	f.r.GET("/monitors", h.ListMonitors)
	f.r.GET("/videos/:videoId/live-chat", h.GetLiveChat)
	return f
}

func idempotencyLookup(db *gorm.DB) middleware.IdempotencyLookup {
	return func(ctx context.Context, scope, key string, now time.Time) (bool, error) {
		rec, err := repo.GetIdempotency(ctx, db, scope, key, now)
		return rec != nil, err
	}
}

func (f *fixture) do(method, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	var rdr *bytes.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rdr = bytes.NewReader([]byte(b))
		default:
			raw, _ := json.Marshal(b)
			rdr = bytes.NewReader(raw)
		}
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v (body=%s)", v, err, w.Body.String())
	}
	return v
}
