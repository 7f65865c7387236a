package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/tbourn/go-superchat-bridge/internal/services"
)

func submit(id, video string) SubmitPaymentRequest {
	return SubmitPaymentRequest{PaymentID: id, VideoID: video, PayerAddress: "0xBB", Amount: "0.01", Message: "gg"}
}

func TestSubmitPayment_PostedThenDuplicate(t *testing.T) {
	f := newFixture(t)
	body := submit("pay_1", "abc123")

	w := f.do(http.MethodPost, "/payments", body, nil)
	first := decode[SubmitPaymentResponse](t, w)
	if w.Code != http.StatusOK || first.Status != "posted" || first.Superchat.PaymentID != "pay_1" {
		t.Fatalf("first: %d %+v", w.Code, first)
	}

	w = f.do(http.MethodPost, "/payments", body, nil)
	second := decode[SubmitPaymentResponse](t, w)
	if w.Code != http.StatusOK || second.Status != "duplicate" || second.Superchat.Seq != first.Superchat.Seq {
		t.Fatalf("second: %d %+v", w.Code, second)
	}
}

func TestSubmitPayment_Errors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		body   any
		status int
		kind   string
	}{
		{"bad json", nil, "{", http.StatusBadRequest, KindInvalidInput},
		{"invalid", nil, SubmitPaymentRequest{VideoID: "abc123"}, http.StatusBadRequest, KindInvalidInput},
		{"not live", fmt.Errorf("%w: ended", services.ErrChatUnavailable), SubmitPaymentRequest{PaymentID: "p"}, http.StatusBadGateway, KindChatUnavailable},
		{"rejected", services.ErrPostFailed, SubmitPaymentRequest{PaymentID: "p"}, http.StatusBadGateway, KindPostFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.bridge.submitErr = tc.err
			w := f.do(http.MethodPost, "/payments", tc.body, nil)
			if w.Code != tc.status {
				t.Fatalf("status=%d want %d (%s)", w.Code, tc.status, w.Body.String())
			}
			if got := decode[ErrorResponse](t, w).Error; got != tc.kind {
				t.Fatalf("kind=%q want %q", got, tc.kind)
			}
		})
	}
}

func TestListPayments_PaginationFilterAndETag(t *testing.T) {
	f := newFixture(t)
	for i := 1; i <= 3; i++ {
		f.do(http.MethodPost, "/payments", submit(fmt.Sprintf("pay_%d", i), "abc123"), nil)
	}
	f.do(http.MethodPost, "/payments", submit("pay_x", "other1"), nil)

	w := f.do(http.MethodGet, "/payments?videoId=abc123&page=1&page_size=2", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d", w.Code)
	}
	res := decode[ListPaymentsResponse](t, w)
	if len(res.Superchats) != 2 || res.Pagination.Total != 3 || !res.Pagination.HasNext || res.Pagination.TotalPages != 2 {
		t.Fatalf("unexpected page: %+v", res)
	}
	if res.Superchats[0].PaymentID != "pay_3" {
		t.Fatalf("newest first expected, got %s", res.Superchats[0].PaymentID)
	}

	etag := w.Header().Get("ETag")
	if etag != `W/"superchats:abc123:3:4"` {
		t.Fatalf("etag=%q", etag)
	}
	w = f.do(http.MethodGet, "/payments?videoId=abc123", nil, map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", w.Code)
	}

	f.do(http.MethodPost, "/payments", submit("pay_4", "abc123"), nil)
	w = f.do(http.MethodGet, "/payments?videoId=abc123", nil, map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusOK {
		t.Fatalf("stale etag must miss, got %d", w.Code)
	}
}

func TestListPayments_EmptyIsArray(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/payments", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if want := `"superchats":[]`; !contains(w.Body.String(), want) {
		t.Fatalf("body %s missing %s", w.Body.String(), want)
	}
}
