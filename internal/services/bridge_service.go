// Package services – BridgeService
//
// BridgeService turns a settled payment into exactly one chat post. Submit
// runs the dedup check, the post, and the ledger write inside a critical
// region keyed by payment id, so concurrent submissions of the same payment
// post once and the rest observe a duplicate. Different payments proceed in
// parallel.
//
// Observability: Submit is traced; outcomes are counted in
// superchat_submissions_total.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-superchat-bridge/internal/chat"
	"github.com/tbourn/go-superchat-bridge/internal/domain"
	"github.com/tbourn/go-superchat-bridge/internal/ledger"
	"github.com/tbourn/go-superchat-bridge/internal/observability"
	"github.com/tbourn/go-superchat-bridge/internal/repo"
	"github.com/tbourn/go-superchat-bridge/internal/utils"
)

// Submit outcomes.
const (
	StatusPosted    = "posted"
	StatusDuplicate = "duplicate"
)

// SubmitResult is the definitive answer to a submission.
type SubmitResult struct {
	Status    string           `json:"status"`
	Superchat domain.Superchat `json:"superchat"`
}

// Ledger is the dedup ledger contract used by BridgeService.
type Ledger interface {
	Get(paymentID string) (domain.Superchat, bool)
	Append(ctx context.Context, rec domain.Superchat) (domain.Superchat, error)
	Defer(rec domain.Superchat, cause error)
	RecognizesText(text string) bool
}

// Publisher receives every newly recorded superchat.
type Publisher interface {
	Publish(ev domain.Superchat) int
}

// BridgeService validates, posts, records, and announces payments.
type BridgeService struct {
	DB       *gorm.DB
	Provider chat.Provider
	Ledger   Ledger
	Events   Publisher

	Currency     string
	MaxLineRunes int

	// LedgerRetries is how many extra durable-write attempts follow a
	// failed Append before the record is deferred.
	LedgerRetries int
	RetryBackoff  time.Duration

	locks keyedMutex
	now   func() time.Time

	inflightMu sync.Mutex
	inflight   map[string]int // display texts posted but not yet in the ledger
}

// NewBridgeService constructs a BridgeService with default formatting.
func NewBridgeService(db *gorm.DB, provider chat.Provider, l Ledger, events Publisher) *BridgeService {
	return &BridgeService{
		DB:            db,
		Provider:      provider,
		Ledger:        l,
		Events:        events,
		Currency:      "ETH",
		MaxLineRunes:  DefaultMaxLineRunes,
		LedgerRetries: 3,
		RetryBackoff:  100 * time.Millisecond,
	}
}

// Submit posts the payment to the video's live chat once. A payment that was
// already posted returns StatusDuplicate with the original record. Errors are
// ErrInvalidInput, ErrChatUnavailable, ErrPostFailed, or ctx.Err() when ctx
// ends while another submission of the same payment is in progress; after
// any of them nothing was recorded and the caller may retry.
func (s *BridgeService) Submit(ctx context.Context, in domain.PaymentConfirmation) (SubmitResult, error) {
	ctx, span := otel.Tracer("services/BridgeService").Start(ctx, "Submit",
		trace.WithAttributes(
			attribute.String("payment.id", in.PaymentID),
			attribute.String("video.id", in.VideoID),
		),
	)
	defer span.End()

	res, outcome, err := s.submit(ctx, in)
	observability.SuperchatsTotal.WithLabelValues(outcome).Inc()
	span.SetAttributes(attribute.String("submit.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	return res, err
}

func (s *BridgeService) submit(ctx context.Context, in domain.PaymentConfirmation) (SubmitResult, string, error) {
	in.PaymentID = strings.TrimSpace(in.PaymentID)
	in.VideoID = strings.TrimSpace(in.VideoID)
	in.PayerAddress = strings.TrimSpace(in.PayerAddress)

	if !rePaymentID.MatchString(in.PaymentID) {
		return SubmitResult{}, "invalid", invalid("paymentId must be 1-128 characters of [A-Za-z0-9._:-]")
	}
	if err := validVideoID(in.VideoID); err != nil {
		return SubmitResult{}, "invalid", err
	}
	if err := validToken("payerAddress", in.PayerAddress, maxAddressRunes); err != nil {
		return SubmitResult{}, "invalid", err
	}
	amount, err := parseAmount(in.Amount)
	if err != nil {
		return SubmitResult{}, "invalid", err
	}
	if utf8.RuneCountInString(in.Message) > maxMessageRawRune {
		return SubmitResult{}, "invalid", invalid("message is longer than %d characters", maxMessageRawRune)
	}
	message := SanitizeMessage(in.Message)
	if message == "" {
		return SubmitResult{}, "invalid", invalid("message is required")
	}

	unlock, err := s.locks.Lock(ctx, in.PaymentID)
	if err != nil {
		// Gave up waiting behind another submission of the same payment.
		return SubmitResult{}, "canceled", err
	}
	defer unlock()

	if prev, ok := s.Ledger.Get(in.PaymentID); ok {
		return SubmitResult{Status: StatusDuplicate, Superchat: prev}, StatusDuplicate, nil
	}

	lg := log.With().Str("payment_id", in.PaymentID).Str("video_id", in.VideoID).Logger()

	liveChatID, err := s.Provider.ResolveLiveChatID(ctx, in.VideoID)
	if err != nil {
		lg.Warn().Err(err).Msg("live chat not available for payment")
		return SubmitResult{}, "chat_unavailable", fmt.Errorf("%w: %v", ErrChatUnavailable, err)
	}

	text := FormatSuperchat(amount, s.currency(), message, s.MaxLineRunes)

	// The monitor may read the line back before record indexes it.
	done := s.expectLine(text)
	defer done()

	start := time.Now()
	chatMsgID, err := s.Provider.PostMessage(ctx, liveChatID, text)
	observability.PostDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		lg.Warn().Err(err).Msg("superchat post failed")
		return SubmitResult{}, "post_failed", fmt.Errorf("%w: %v", ErrPostFailed, err)
	}

	rec := domain.Superchat{
		PaymentID:     in.PaymentID,
		VideoID:       in.VideoID,
		PayerAddress:  in.PayerAddress,
		Amount:        amount.String(),
		Message:       message,
		DisplayText:   text,
		ChatMessageID: chatMsgID,
		PostedAt:      s.clock().UTC(),
	}
	rec = s.record(ctx, rec)

	if s.Events != nil {
		s.Events.Publish(rec)
	}
	lg.Info().Str("amount", rec.Amount).Msg("superchat posted")
	return SubmitResult{Status: StatusPosted, Superchat: rec}, StatusPosted, nil
}

// record writes rec to the ledger after a successful post. The post cannot
// be undone, so a ledger that keeps failing gets the record deferred rather
// than the caller an error.
func (s *BridgeService) record(ctx context.Context, rec domain.Superchat) domain.Superchat {
	// The post happened; finish recording even if the caller went away.
	ctx = context.WithoutCancel(ctx)

	var err error
	for attempt := 0; attempt <= s.LedgerRetries; attempt++ {
		if attempt > 0 && s.RetryBackoff > 0 {
			time.Sleep(s.RetryBackoff << (attempt - 1))
		}
		var saved domain.Superchat
		saved, err = s.Ledger.Append(ctx, rec)
		if err == nil {
			return saved
		}
		if errors.Is(err, ledger.ErrDuplicateKey) {
			if prev, ok := s.Ledger.Get(rec.PaymentID); ok {
				return prev
			}
			return rec
		}
		log.Warn().Err(err).Str("payment_id", rec.PaymentID).Int("attempt", attempt+1).Msg("ledger append failed")
	}
	s.Ledger.Defer(rec, err)
	return rec
}

// ListPage is one page of recorded superchats.
type ListPage struct {
	Items []domain.Superchat
	Total int64
}

// List returns recorded superchats newest first, optionally for one video.
func (s *BridgeService) List(ctx context.Context, videoID string, page, pageSize int) (ListPage, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID != "" {
		if err := validVideoID(videoID); err != nil {
			return ListPage{}, err
		}
	}
	page, pageSize = utils.ClampPage(page, pageSize, 20, 100)
	total, err := repo.CountSuperchats(ctx, s.DB, videoID)
	if err != nil {
		return ListPage{}, err
	}
	items, err := repo.ListSuperchatsPage(ctx, s.DB, videoID, utils.Offset(page, pageSize), pageSize)
	if err != nil {
		return ListPage{}, err
	}
	return ListPage{Items: items, Total: total}, nil
}

// Stats returns (count, max seq) for conditional listing responses.
func (s *BridgeService) Stats(ctx context.Context, videoID string) (int64, uint64, error) {
	return repo.SuperchatsStats(ctx, s.DB, strings.TrimSpace(videoID))
}

// LiveChatID resolves the live chat of videoID through the provider.
func (s *BridgeService) LiveChatID(ctx context.Context, videoID string) (string, error) {
	videoID = strings.TrimSpace(videoID)
	if err := validVideoID(videoID); err != nil {
		return "", err
	}
	id, err := s.Provider.ResolveLiveChatID(ctx, videoID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrChatUnavailable, err)
	}
	return id, nil
}

// ObserveChat checks lines read by the monitor. A line wearing the superchat
// badge that the ledger never recorded was typed by someone else and is
// reported.
func (s *BridgeService) ObserveChat(videoID string, msgs []chat.Message) {
	for _, m := range msgs {
		if !HasSuperchatBadge(m.Text) {
			continue
		}
		if s.Ledger.RecognizesText(m.Text) || s.lineInFlight(m.Text) {
			continue
		}
		observability.ForgedLines.Inc()
		log.Warn().
			Str("video_id", videoID).
			Str("chat_message_id", m.ID).
			Str("author_id", m.AuthorID).
			Msg("unrecognized superchat line in live chat")
	}
}

// expectLine marks text as our own until the returned func runs.
func (s *BridgeService) expectLine(text string) (done func()) {
	s.inflightMu.Lock()
	if s.inflight == nil {
		s.inflight = make(map[string]int)
	}
	s.inflight[text]++
	s.inflightMu.Unlock()

	return func() {
		s.inflightMu.Lock()
		defer s.inflightMu.Unlock()
		if s.inflight[text]--; s.inflight[text] <= 0 {
			delete(s.inflight, text)
		}
	}
}

func (s *BridgeService) lineInFlight(text string) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	return s.inflight[text] > 0
}

func (s *BridgeService) currency() string {
	if s.Currency == "" {
		return "ETH"
	}
	return s.Currency
}

func (s *BridgeService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}
