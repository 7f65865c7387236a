// Package handlers exposes the bridge over HTTP.
//
// Handlers are transport-thin: they bind and validate input, call application
// services, and translate results into HTTP responses (including conditional
// and replayed responses).
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-superchat-bridge/internal/domain"
	"github.com/tbourn/go-superchat-bridge/internal/events"
	"github.com/tbourn/go-superchat-bridge/internal/services"
	"github.com/tbourn/go-superchat-bridge/internal/utils"
)

//
// Service contracts (context-aware)
//

// LinkService issues and resolves short links.
type LinkService interface {
	Create(ctx context.Context, videoID, payeeAddress, invoiceRef string) (*domain.ShortLink, error)
	Resolve(ctx context.Context, code string) (*domain.ShortLink, error)
	TargetURL(link *domain.ShortLink, kind services.LinkKind) string
	Count(ctx context.Context) (int64, error)
}

// BridgeService posts payments and lists recorded superchats.
type BridgeService interface {
	Submit(ctx context.Context, in domain.PaymentConfirmation) (services.SubmitResult, error)
	List(ctx context.Context, videoID string, page, pageSize int) (services.ListPage, error)
	Stats(ctx context.Context, videoID string) (int64, uint64, error)
	LiveChatID(ctx context.Context, videoID string) (string, error)
}

// MonitorService starts and inspects chat monitor sessions.
type MonitorService interface {
	EnsureSession(ctx context.Context, videoID string) (bool, error)
	Session(videoID string) (domain.MonitorSession, bool)
	Sessions() []domain.MonitorSession
}

// EventSource hands out live event subscriptions.
type EventSource interface {
	Subscribe() *events.Subscription
}

//
// Handler wiring
//

// Options carries transport settings that are not services.
type Options struct {
	// DB stores Idempotency-Key replays for link creation; nil disables them.
	DB             *gorm.DB
	IdempotencyTTL time.Duration
	// KeepAlive is the interval between event-stream comments.
	KeepAlive time.Duration
}

// Handlers groups the HTTP endpoints of the bridge.
type Handlers struct {
	links    LinkService
	bridge   BridgeService
	monitors MonitorService
	events   EventSource
	opts     Options
}

// New constructs and returns a Handlers instance bound to the given services.
func New(links LinkService, bridge BridgeService, monitors MonitorService, events EventSource, opts Options) *Handlers {
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 24 * time.Hour
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = 15 * time.Second
	}
	return &Handlers{links: links, bridge: bridge, monitors: monitors, events: events, opts: opts}
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	return utils.ClampPage(
		utils.AtoiDefault(c.Query("page"), defaultPage),
		utils.AtoiDefault(c.Query("page_size"), defaultPageSize),
		defaultPageSize, maxPageSize,
	)
}
