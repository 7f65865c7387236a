// Package ledger is the dedup ledger: the durable, append-only record of every
// payment that produced a chat post, fronted by an in-memory index for fast
// idempotence checks.
//
// The durable store is the source of truth. The index is rebuilt from it by
// Open and is only written after the store accepted a record, except for
// records handed to Defer, which are indexed immediately so the payment can
// never be posted twice while the store is unavailable.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-superchat-bridge/internal/domain"
	"github.com/tbourn/go-superchat-bridge/internal/observability"
)

// ErrDuplicateKey is returned by Append when the payment is already recorded.
var ErrDuplicateKey = errors.New("ledger: duplicate payment id")

// Ledger is safe for concurrent use.
type Ledger struct {
	store Store
	log   zerolog.Logger

	mu        sync.RWMutex
	byPayment map[string]domain.Superchat
	texts     map[string]int
	inflight  map[string]struct{}
	pending   []domain.Superchat
}

// Open loads every durable record and builds the index.
func Open(ctx context.Context, store Store) (*Ledger, error) {
	l := &Ledger{
		store:     store,
		log:       log.With().Str("component", "ledger").Logger(),
		byPayment: make(map[string]domain.Superchat),
		texts:     make(map[string]int),
		inflight:  make(map[string]struct{}),
	}
	recs, err := l.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger: load: %w", err)
	}
	for _, r := range recs {
		l.indexLocked(r)
	}
	observability.LedgerRecords.Set(float64(len(l.byPayment)))
	l.log.Info().Int("records", len(recs)).Msg("ledger index rebuilt")
	return l, nil
}

// Contains reports whether paymentID has been recorded.
func (l *Ledger) Contains(paymentID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.byPayment[paymentID]
	return ok
}

// Get returns the recorded superchat for paymentID.
func (l *Ledger) Get(paymentID string) (domain.Superchat, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.byPayment[paymentID]
	return rec, ok
}

// Len returns the number of indexed records, deferred ones included.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byPayment)
}

// RecognizesText reports whether text is the display text of a recorded
// superchat.
func (l *Ledger) RecognizesText(text string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.texts[text] > 0
}

// Append durably records rec and then indexes it. It fails with
// ErrDuplicateKey if the payment is already recorded or another Append for
// the same payment is in flight.
func (l *Ledger) Append(ctx context.Context, rec domain.Superchat) (domain.Superchat, error) {
	ctx, span := otel.Tracer("ledger").Start(ctx, "Append",
		trace.WithAttributes(attribute.String("payment.id", rec.PaymentID)),
	)
	defer span.End()

	l.mu.Lock()
	if _, ok := l.byPayment[rec.PaymentID]; ok {
		l.mu.Unlock()
		return domain.Superchat{}, ErrDuplicateKey
	}
	if _, ok := l.inflight[rec.PaymentID]; ok {
		l.mu.Unlock()
		return domain.Superchat{}, ErrDuplicateKey
	}
	l.inflight[rec.PaymentID] = struct{}{}
	l.mu.Unlock()

	err := l.store.Append(ctx, &rec)

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inflight, rec.PaymentID)
	if err != nil {
		span.RecordError(err)
		return domain.Superchat{}, err
	}
	l.indexLocked(rec)
	observability.LedgerRecords.Set(float64(len(l.byPayment)))
	return rec, nil
}

// LoadAll returns the durable records in append order.
func (l *Ledger) LoadAll(ctx context.Context) ([]domain.Superchat, error) {
	return l.store.LoadAll(ctx)
}

// Defer indexes rec without a durable write and queues it for the flusher.
// It is the last resort after Append kept failing for a payment that was
// already posted: the payment must still be treated as recorded.
func (l *Ledger) Defer(rec domain.Superchat, cause error) {
	l.mu.Lock()
	if _, ok := l.byPayment[rec.PaymentID]; ok {
		l.mu.Unlock()
		return
	}
	l.indexLocked(rec)
	l.pending = append(l.pending, rec)
	n := len(l.pending)
	observability.LedgerRecords.Set(float64(len(l.byPayment)))
	l.mu.Unlock()

	observability.LedgerUnpersisted.Set(float64(n))
	l.log.Error().
		Err(cause).
		Str("alarm", "ledger_write_failure").
		Str("payment_id", rec.PaymentID).
		Str("video_id", rec.VideoID).
		Int("unpersisted", n).
		Msg("posted superchat not durably recorded; queued for retry")
}

// Pending returns how many deferred records still await a durable write.
func (l *Ledger) Pending() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.pending)
}

// Flush tries to persist every deferred record once and returns how many
// were written. Records the store already holds count as written.
func (l *Ledger) Flush(ctx context.Context) (int, error) {
	l.mu.Lock()
	batch := l.pending
	l.pending = nil
	l.mu.Unlock()

	var (
		written int
		retry   []domain.Superchat
		lastErr error
	)
	for i, rec := range batch {
		if ctx.Err() != nil {
			retry = append(retry, batch[i:]...)
			lastErr = ctx.Err()
			break
		}
		err := l.store.Append(ctx, &rec)
		switch {
		case err == nil:
			written++
			l.mu.Lock()
			l.byPayment[rec.PaymentID] = rec
			l.mu.Unlock()
		case errors.Is(err, ErrDuplicateKey):
			written++
		default:
			retry = append(retry, rec)
			lastErr = err
		}
	}

	l.mu.Lock()
	l.pending = append(retry, l.pending...)
	n := len(l.pending)
	l.mu.Unlock()
	observability.LedgerUnpersisted.Set(float64(n))

	if written > 0 {
		l.log.Warn().Int("written", written).Int("unpersisted", n).Msg("deferred superchats persisted")
	}
	if n > 0 && lastErr != nil {
		l.log.Error().Err(lastErr).Str("alarm", "ledger_write_failure").Int("unpersisted", n).Msg("ledger flush incomplete")
	}
	return written, lastErr
}

// RunFlusher calls Flush every interval while records are pending, and once
// more on cancellation, until ctx is done.
func (l *Ledger) RunFlusher(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			if l.Pending() > 0 {
				fctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				_, _ = l.Flush(fctx)
				cancel()
			}
			return
		case <-t.C:
			if l.Pending() > 0 {
				_, _ = l.Flush(ctx)
			}
		}
	}
}

func (l *Ledger) indexLocked(rec domain.Superchat) {
	l.byPayment[rec.PaymentID] = rec
	if rec.DisplayText != "" {
		l.texts[rec.DisplayText]++
	}
}
