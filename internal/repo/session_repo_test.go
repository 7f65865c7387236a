package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-superchat-bridge/internal/domain"
)

func TestMonitorSessions_UpsertAndList(t *testing.T) {
	db := newTestDB(t, &domain.MonitorSession{})
	ctx := context.Background()
	now := time.Now().UTC()

	s := &domain.MonitorSession{VideoID: "v2", Status: domain.SessionStarting, StartedAt: now, UpdatedAt: now}
	if err := SaveMonitorSession(ctx, db, s); err != nil {
		t.Fatalf("save starting: %v", err)
	}

	s.Status = domain.SessionRunning
	s.LiveChatID = "chat-2"
	s.Cursor = "tok-1"
	if err := SaveMonitorSession(ctx, db, s); err != nil {
		t.Fatalf("save running: %v", err)
	}

	other := &domain.MonitorSession{VideoID: "v1", Status: domain.SessionEnded, StartedAt: now, UpdatedAt: now}
	if err := SaveMonitorSession(ctx, db, other); err != nil {
		t.Fatalf("save other: %v", err)
	}

	got, err := GetMonitorSession(ctx, db, "v2")
	if err != nil {
		t.Fatalf("GetMonitorSession: %v", err)
	}
	if got.Status != domain.SessionRunning || got.Cursor != "tok-1" || got.LiveChatID != "chat-2" {
		t.Fatalf("upsert did not overwrite: %+v", got)
	}

	all, err := ListMonitorSessions(ctx, db)
	if err != nil || len(all) != 2 || all[0].VideoID != "v1" || all[1].VideoID != "v2" {
		t.Fatalf("ListMonitorSessions: %+v err=%v", all, err)
	}

	if _, err := GetMonitorSession(ctx, db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
