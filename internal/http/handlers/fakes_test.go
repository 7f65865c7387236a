package handlers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tbourn/go-superchat-bridge/internal/domain"
	"github.com/tbourn/go-superchat-bridge/internal/services"
)

type fakeLinks struct {
	mu      sync.Mutex
	links   map[string]*domain.ShortLink
	next    int
	created int
	err     error
}

func newFakeLinks() *fakeLinks { return &fakeLinks{links: map[string]*domain.ShortLink{}} }

func (f *fakeLinks) Create(_ context.Context, videoID, payee, invoice string) (*domain.ShortLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if videoID == "" {
		return nil, fmt.Errorf("%w: videoId is required", services.ErrInvalidInput)
	}
	f.next++
	f.created++
	l := &domain.ShortLink{
		Code:         fmt.Sprintf("CODE%04d", f.next),
		VideoID:      videoID,
		PayeeAddress: payee,
		InvoiceRef:   invoice,
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	f.links[l.Code] = l
	return l, nil
}

func (f *fakeLinks) Resolve(_ context.Context, code string) (*domain.ShortLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.links[code]
	if !ok {
		return nil, services.ErrLinkNotFound
	}
	return l, nil
}

func (f *fakeLinks) TargetURL(l *domain.ShortLink, kind services.LinkKind) string {
	return "https://pay.example.com/" + string(kind) + "?invoice=" + l.InvoiceRef
}

func (f *fakeLinks) Count(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.links)), nil
}

type fakeBridge struct {
	mu        sync.Mutex
	seen      map[string]domain.Superchat
	submitErr error
	liveErr   error
	items     []domain.Superchat
	statsErr  error
	maxSeq    uint64
}

func newFakeBridge() *fakeBridge { return &fakeBridge{seen: map[string]domain.Superchat{}} }

func (f *fakeBridge) Submit(_ context.Context, in domain.PaymentConfirmation) (services.SubmitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return services.SubmitResult{}, f.submitErr
	}
	if in.PaymentID == "" {
		return services.SubmitResult{}, fmt.Errorf("%w: paymentId is required", services.ErrInvalidInput)
	}
	if rec, ok := f.seen[in.PaymentID]; ok {
		return services.SubmitResult{Status: services.StatusDuplicate, Superchat: rec}, nil
	}
	f.maxSeq++
	rec := domain.Superchat{
		Seq:         f.maxSeq,
		PaymentID:   in.PaymentID,
		VideoID:     in.VideoID,
		Amount:      in.Amount,
		Message:     in.Message,
		DisplayText: "⚡⚡ 𝗦𝗨𝗣𝗘𝗥𝗖𝗛𝗔𝗧 [" + in.Amount + " ETH]: " + strings.ToUpper(in.Message),
	}
	f.seen[in.PaymentID] = rec
	f.items = append([]domain.Superchat{rec}, f.items...)
	return services.SubmitResult{Status: services.StatusPosted, Superchat: rec}, nil
}

func (f *fakeBridge) List(_ context.Context, videoID string, page, pageSize int) (services.ListPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []domain.Superchat
	for _, it := range f.items {
		if videoID == "" || it.VideoID == videoID {
			all = append(all, it)
		}
	}
	start := (page - 1) * pageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return services.ListPage{Items: all[start:end], Total: int64(len(all))}, nil
}

func (f *fakeBridge) Stats(_ context.Context, videoID string) (int64, uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statsErr != nil {
		return 0, 0, f.statsErr
	}
	var n int64
	for _, it := range f.items {
		if videoID == "" || it.VideoID == videoID {
			n++
		}
	}
	return n, f.maxSeq, nil
}

func (f *fakeBridge) LiveChatID(_ context.Context, videoID string) (string, error) {
	if f.liveErr != nil {
		return "", f.liveErr
	}
	return "chat-" + videoID, nil
}

type fakeMonitors struct {
	mu       sync.Mutex
	sessions map[string]domain.MonitorSession
	err      error
}

func newFakeMonitors() *fakeMonitors {
	return &fakeMonitors{sessions: map[string]domain.MonitorSession{}}
}

func (f *fakeMonitors) EnsureSession(_ context.Context, videoID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.sessions[videoID]; ok {
		return false, nil
	}
	f.sessions[videoID] = domain.MonitorSession{VideoID: videoID, Status: domain.SessionRunning}
	return true, nil
}

func (f *fakeMonitors) Session(videoID string) (domain.MonitorSession, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[videoID]
	return s, ok
}

func (f *fakeMonitors) Sessions() []domain.MonitorSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.MonitorSession
	for _, s := range f.sessions {
		out = append(out, s)
	}
	return out
}
