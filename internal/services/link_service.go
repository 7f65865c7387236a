// Package services – LinkService
//
// LinkService issues and resolves short links. Creating a link also asks the
// monitor pool, in the background, to make sure the video's live chat is
// being watched; that request never fails link creation.
package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-superchat-bridge/internal/domain"
	"github.com/tbourn/go-superchat-bridge/internal/repo"
)

const codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// LinkRepo defines the repository contract required by LinkService.
type LinkRepo interface {
	// CreateShortLink inserts a link; a taken code returns repo.ErrDuplicate.
	CreateShortLink(ctx context.Context, db *gorm.DB, link *domain.ShortLink) error
	// GetShortLink fetches a link by code or returns repo.ErrNotFound.
	GetShortLink(ctx context.Context, db *gorm.DB, code string) (*domain.ShortLink, error)
	// CountShortLinks returns the number of stored links.
	CountShortLinks(ctx context.Context, db *gorm.DB) (int64, error)
}

// SessionStarter is the part of the monitor pool LinkService needs.
type SessionStarter interface {
	EnsureSession(ctx context.Context, videoID string) (bool, error)
}

// LinkKind selects the front-end page a short link opens.
type LinkKind string

const (
	LinkPayment LinkKind = "payment"
	LinkClaim   LinkKind = "claim"
	LinkAccess  LinkKind = "access"
)

// ParseLinkKind maps a query value to a LinkKind; empty means payment.
func ParseLinkKind(s string) (LinkKind, error) {
	switch LinkKind(strings.ToLower(strings.TrimSpace(s))) {
	case "", LinkPayment:
		return LinkPayment, nil
	case LinkClaim:
		return LinkClaim, nil
	case LinkAccess:
		return LinkAccess, nil
	}
	return "", invalid("kind must be one of payment, claim, access")
}

// LinkService creates and resolves short links.
type LinkService struct {
	DB       *gorm.DB
	Repo     LinkRepo
	Monitors SessionStarter

	CodeLength      int
	CodeAttempts    int
	TTL             time.Duration // 0 disables expiry
	FrontendBaseURL string

	// EnsureTimeout bounds the background monitor request.
	EnsureTimeout time.Duration

	now    func() time.Time
	random func(n int) (string, error)
}

// NewLinkService constructs a LinkService with default code policy.
func NewLinkService(db *gorm.DB, r LinkRepo, monitors SessionStarter) *LinkService {
	return &LinkService{
		DB:            db,
		Repo:          r,
		Monitors:      monitors,
		CodeLength:    8,
		CodeAttempts:  5,
		EnsureTimeout: 30 * time.Second,
	}
}

// Create validates the tuple, stores it under a fresh code, and kicks off
// monitoring for the video.
func (s *LinkService) Create(ctx context.Context, videoID, payeeAddress, invoiceRef string) (*domain.ShortLink, error) {
	ctx, span := otel.Tracer("services/LinkService").Start(ctx, "Create",
		trace.WithAttributes(attribute.String("video.id", videoID)),
	)
	defer span.End()

	videoID = strings.TrimSpace(videoID)
	payeeAddress = strings.TrimSpace(payeeAddress)
	invoiceRef = strings.TrimSpace(invoiceRef)
	if err := validVideoID(videoID); err != nil {
		return nil, err
	}
	if err := validToken("payeeAddress", payeeAddress, maxAddressRunes); err != nil {
		return nil, err
	}
	if err := validToken("invoiceRef", invoiceRef, maxInvoiceRunes); err != nil {
		return nil, err
	}

	now := s.clock().UTC()
	link := &domain.ShortLink{
		VideoID:      videoID,
		PayeeAddress: payeeAddress,
		InvoiceRef:   invoiceRef,
		CreatedAt:    now,
	}
	if s.TTL > 0 {
		exp := now.Add(s.TTL)
		link.ExpiresAt = &exp
	}

	attempts := s.CodeAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		link.Code, err = s.newCode()
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
		err = s.Repo.CreateShortLink(ctx, s.DB, link)
		if err == nil {
			break
		}
		if !errors.Is(err, repo.ErrDuplicate) {
			span.RecordError(err)
			return nil, err
		}
		log.Warn().Str("code", link.Code).Int("attempt", i+1).Msg("short link code collision")
	}
	if err != nil {
		return nil, ErrCodeSpaceExhausted
	}
	span.SetAttributes(attribute.String("link.code", link.Code))

	s.ensureMonitor(ctx, videoID)
	return link, nil
}

// Resolve returns the link for code, or ErrLinkNotFound when it is unknown
// or expired.
func (s *LinkService) Resolve(ctx context.Context, code string) (*domain.ShortLink, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrLinkNotFound
	}
	link, err := s.Repo.GetShortLink(ctx, s.DB, code)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, err
	}
	if link.Expired(s.clock()) {
		return nil, ErrLinkNotFound
	}
	return link, nil
}

// TargetURL builds the front-end URL for link.
func (s *LinkService) TargetURL(link *domain.ShortLink, kind LinkKind) string {
	q := url.Values{}
	q.Set("vid", link.VideoID)
	q.Set("lnaddr", link.PayeeAddress)
	q.Set("invoice", link.InvoiceRef)
	return fmt.Sprintf("%s/%s?%s", strings.TrimRight(s.FrontendBaseURL, "/"), kind, q.Encode())
}

// Count returns the number of stored links.
func (s *LinkService) Count(ctx context.Context) (int64, error) {
	return s.Repo.CountShortLinks(ctx, s.DB)
}

// ensureMonitor asks for a monitor session without blocking the caller.
// The request outlives ctx but keeps its trace.
func (s *LinkService) ensureMonitor(ctx context.Context, videoID string) {
	if s.Monitors == nil {
		return
	}
	timeout := s.EnsureTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	go func() {
		defer cancel()
		started, err := s.Monitors.EnsureSession(bg, videoID)
		if err != nil {
			log.Error().Err(err).Str("video_id", videoID).Msg("could not start chat monitor for new link")
			return
		}
		if started {
			log.Info().Str("video_id", videoID).Msg("chat monitor started for new link")
		}
	}()
}

func (s *LinkService) newCode() (string, error) {
	n := s.CodeLength
	if n <= 0 {
		n = 8
	}
	if s.random != nil {
		return s.random(n)
	}
	return randomCode(n)
}

func (s *LinkService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// randomCode draws n characters uniformly from codeAlphabet.
func randomCode(n int) (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, n)
	for i := range b {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[v.Int64()]
	}
	return string(b), nil
}
