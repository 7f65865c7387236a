// Short-link HTTP handlers.
//
//   - POST /links               (create; Idempotency-Key aware)
//   - GET  /links/{code}        (resolve)
//   - GET  /links/{code}/url    (front-end target for payment|claim|access)
//   - GET  /links               (debug count)
//
// Idempotency:
// A POST carrying an Idempotency-Key that was already used for link creation
// returns the originally issued code with `Idempotency-Replayed: true`
// instead of issuing a new one.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-superchat-bridge/internal/http/middleware"
	"github.com/tbourn/go-superchat-bridge/internal/repo"
	"github.com/tbourn/go-superchat-bridge/internal/services"
)

// CreateLinkRequest is the JSON payload for creating a short link.
type CreateLinkRequest struct {
	VideoID      string `json:"videoId" example:"abc123"`
	PayeeAddress string `json:"payeeAddress" example:"0xAA00000000000000000000000000000000000000"`
	InvoiceRef   string `json:"invoiceRef" example:"inv-2026-0001"`
}

// CreateLinkResponse carries the issued code.
type CreateLinkResponse struct {
	Code string `json:"code" example:"Q7K2M1AB"`
}

// LinkResponse is the resolved tuple behind a code.
type LinkResponse struct {
	Code         string     `json:"code" example:"Q7K2M1AB"`
	VideoID      string     `json:"videoId" example:"abc123"`
	PayeeAddress string     `json:"payeeAddress" example:"0xAA00000000000000000000000000000000000000"`
	InvoiceRef   string     `json:"invoiceRef" example:"inv-2026-0001"`
	CreatedAt    time.Time  `json:"createdAt"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
}

// LinkURLResponse is the front-end URL a code opens.
type LinkURLResponse struct {
	Kind string `json:"kind" example:"payment"`
	URL  string `json:"url" example:"https://pay.example.com/payment?invoice=inv-2026-0001&lnaddr=0xAA&vid=abc123"`
}

// LinkCountResponse reports how many links exist.
type LinkCountResponse struct {
	Count int64 `json:"count" example:"42"`
}

// CreateLink godoc
// @ID          createLink
// @Summary     Create a short link
// @Description Binds a video, payee, and invoice to a fresh opaque code and starts watching the video's live chat.
// @Tags        Links
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.CreateLinkRequest  true  "Link tuple"
//
// @Success     201  {object}  handlers.CreateLinkResponse
// @Header      201  {string}  Idempotency-Replayed "true when served from a previous request"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid input"
// @Failure     503  {object}  handlers.ErrorResponse  "No free code"
// @Router      /links [post]
func (h *Handlers) CreateLink(c *gin.Context) {
	ctx := c.Request.Context()
	idemKey, hasKey := middleware.GetIdempotencyKey(c)
	useIdem := hasKey && h.opts.DB != nil
	scope := middleware.Scope(c)

	if useIdem && middleware.IsReplay(c) {
		if rec, err := repo.GetIdempotency(ctx, h.opts.DB, scope, idemKey, time.Now().UTC()); err == nil && rec != nil {
			c.Header("Idempotency-Replayed", "true")
			ok(c, rec.Status, CreateLinkResponse{Code: rec.Code})
			return
		}
	}

	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	link, err := h.links.Create(ctx, req.VideoID, req.PayeeAddress, req.InvoiceRef)
	if err != nil {
		failFromErr(c, err)
		return
	}

	if useIdem {
		_, err := repo.CreateIdempotency(ctx, h.opts.DB, scope, idemKey, link.Code, http.StatusCreated, h.opts.IdempotencyTTL)
		if errors.Is(err, repo.ErrDuplicate) {
			// A concurrent request with the same key won; answer with its code.
			if rec, gerr := repo.GetIdempotency(ctx, h.opts.DB, scope, idemKey, time.Now().UTC()); gerr == nil {
				c.Header("Idempotency-Replayed", "true")
				ok(c, rec.Status, CreateLinkResponse{Code: rec.Code})
				return
			}
		} else if err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency record not stored")
		}
	}

	ok(c, http.StatusCreated, CreateLinkResponse{Code: link.Code})
}

// GetLink godoc
// @ID          getLink
// @Summary     Resolve a short link
// @Tags        Links
// @Produce     json
// @Param       code  path  string  true  "Short code"  example(Q7K2M1AB)
// @Success     200  {object}  handlers.LinkResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown or expired code"
// @Router      /links/{code} [get]
func (h *Handlers) GetLink(c *gin.Context) {
	link, err := h.links.Resolve(c.Request.Context(), c.Param("code"))
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, LinkResponse{
		Code:         link.Code,
		VideoID:      link.VideoID,
		PayeeAddress: link.PayeeAddress,
		InvoiceRef:   link.InvoiceRef,
		CreatedAt:    link.CreatedAt,
		ExpiresAt:    link.ExpiresAt,
	})
}

// GetLinkURL godoc
// @ID          getLinkURL
// @Summary     Front-end URL for a short link
// @Tags        Links
// @Produce     json
// @Param       code  path   string  true   "Short code"  example(Q7K2M1AB)
// @Param       kind  query  string  false  "Target page"  Enums(payment, claim, access) default(payment)
// @Param       redirect  query  bool  false  "Answer with 302 instead of JSON"
// @Success     200  {object}  handlers.LinkURLResponse
// @Success     302  {string}  string  "Redirect"
// @Failure     400  {object}  handlers.ErrorResponse  "Unknown kind"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown or expired code"
// @Router      /links/{code}/url [get]
func (h *Handlers) GetLinkURL(c *gin.Context) {
	kind, err := services.ParseLinkKind(c.Query("kind"))
	if err != nil {
		failFromErr(c, err)
		return
	}
	link, err := h.links.Resolve(c.Request.Context(), c.Param("code"))
	if err != nil {
		failFromErr(c, err)
		return
	}
	target := h.links.TargetURL(link, kind)
	if c.Query("redirect") == "true" {
		c.Redirect(http.StatusFound, target)
		return
	}
	ok(c, http.StatusOK, LinkURLResponse{Kind: string(kind), URL: target})
}

// CountLinks godoc
// @ID          countLinks
// @Summary     Count short links (debug)
// @Tags        Links
// @Produce     json
// @Success     200  {object}  handlers.LinkCountResponse
// @Router      /links [get]
func (h *Handlers) CountLinks(c *gin.Context) {
	n, err := h.links.Count(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, LinkCountResponse{Count: n})
}
