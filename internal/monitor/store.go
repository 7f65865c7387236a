package monitor

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-superchat-bridge/internal/domain"
	"github.com/tbourn/go-superchat-bridge/internal/repo"
)

// SessionStore persists session snapshots.
type SessionStore interface {
	SaveSession(ctx context.Context, s domain.MonitorSession) error
	LoadSessions(ctx context.Context) ([]domain.MonitorSession, error)
}

// GormSessionStore keeps snapshots in the monitor_sessions table.
type GormSessionStore struct {
	DB *gorm.DB
}

// SaveSession implements SessionStore.
func (s GormSessionStore) SaveSession(ctx context.Context, snap domain.MonitorSession) error {
	return repo.SaveMonitorSession(ctx, s.DB, &snap)
}

// LoadSessions implements SessionStore.
func (s GormSessionStore) LoadSessions(ctx context.Context) ([]domain.MonitorSession, error) {
	return repo.ListMonitorSessions(ctx, s.DB)
}

type nopStore struct{}

func (nopStore) SaveSession(context.Context, domain.MonitorSession) error { return nil }
func (nopStore) LoadSessions(context.Context) ([]domain.MonitorSession, error) {
	return nil, nil
}
