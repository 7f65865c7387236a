// Payment HTTP handlers.
//
//   - POST /payments   (submit a settled payment; posts once per paymentId)
//   - GET  /payments   (recorded superchats, newest first, ETag support)
//
// A submission always ends in a definitive answer: posted, duplicate, or an
// error after which nothing was recorded and retrying is safe.
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-superchat-bridge/internal/domain"
)

// SubmitPaymentRequest is a settled payment confirmation.
type SubmitPaymentRequest struct {
	PaymentID    string `json:"paymentId" example:"pay_1"`
	VideoID      string `json:"videoId" example:"abc123"`
	PayerAddress string `json:"payerAddress" example:"0xBB00000000000000000000000000000000000000"`
	// Amount is a positive decimal string.
	Amount  string `json:"amount" example:"0.01"`
	Message string `json:"message" example:"gg"`
}

// SubmitPaymentResponse reports whether this call posted the superchat.
type SubmitPaymentResponse struct {
	Status    string           `json:"status" example:"posted" enums:"posted,duplicate"`
	Superchat domain.Superchat `json:"superchat"`
}

// ListPaymentsResponse wraps a page of recorded superchats.
type ListPaymentsResponse struct {
	Superchats []domain.Superchat `json:"superchats"`
	Pagination Pagination         `json:"pagination"`
}

// SubmitPayment godoc
// @ID          submitPayment
// @Summary     Submit a settled payment
// @Description Posts the superchat to the video's live chat exactly once per paymentId. Repeats answer "duplicate" with the original record.
// @Tags        Payments
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.SubmitPaymentRequest  true  "Payment confirmation"
// @Success     200  {object}  handlers.SubmitPaymentResponse
// @Failure     400  {object}  handlers.ErrorResponse  "InvalidInput"
// @Failure     502  {object}  handlers.ErrorResponse  "ChatUnavailable or PostFailed; safe to retry"
// @Router      /payments [post]
func (h *Handlers) SubmitPayment(c *gin.Context) {
	var req SubmitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	res, err := h.bridge.Submit(c.Request.Context(), domain.PaymentConfirmation{
		PaymentID:    req.PaymentID,
		VideoID:      req.VideoID,
		PayerAddress: req.PayerAddress,
		Amount:       req.Amount,
		Message:      req.Message,
	})
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, SubmitPaymentResponse{Status: res.Status, Superchat: res.Superchat})
}

// ListPayments godoc
// @ID          listPayments
// @Summary     List recorded superchats (paginated)
// @Description Newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Payments
// @Produce     json
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       videoId        query   string  false "Only this video"  example(abc123)
// @Param       page           query   int     false "Page number"      minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"   minimum(1) maximum(100) default(20)
// @Success     200  {object} handlers.ListPaymentsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad video id"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /payments [get]
func (h *Handlers) ListPayments(c *gin.Context) {
	ctx := c.Request.Context()
	videoID := strings.TrimSpace(c.Query("videoId"))
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if count, maxSeq, err := h.bridge.Stats(ctx, videoID); err == nil {
		etag := fmt.Sprintf(`W/"superchats:%s:%d:%d"`, videoID, count, maxSeq)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	res, err := h.bridge.List(ctx, videoID, page, pageSize)
	if err != nil {
		failFromErr(c, err)
		return
	}
	items := res.Items
	if items == nil {
		items = []domain.Superchat{}
	}
	ok(c, http.StatusOK, ListPaymentsResponse{
		Superchats: items,
		Pagination: newPagination(page, pageSize, res.Total),
	})
}
