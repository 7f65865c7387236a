// Event stream handler.
//
// GET /events is a text/event-stream. Every superchat recorded after the
// client connected arrives as
//
//	event: newSuperchat
//	data: {"paymentId":"pay_1",...}
//
// and comment lines keep idle connections open through proxies. The
// subscription is released when the client disconnects.
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-superchat-bridge/internal/http/middleware"
)

// EventNewSuperchat is the SSE event name for recorded superchats.
const EventNewSuperchat = "newSuperchat"

// StreamEvents godoc
// @ID          streamEvents
// @Summary     Live superchat stream
// @Description Server-Sent Events; no backlog, only superchats recorded after subscribing.
// @Tags        Events
// @Produce     text/event-stream
// @Success     200  {object}  domain.Superchat  "event: newSuperchat"
// @Router      /events [get]
func (h *Handlers) StreamEvents(c *gin.Context) {
	sub := h.events.Subscribe()
	defer sub.Close()

	w := c.Writer
	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	// The opening comment tells the client the subscription is live.
	if _, err := fmt.Fprintf(w, ": subscribed %s\n\n", sub.ID); err != nil {
		return
	}
	w.Flush()

	lg := middleware.LoggerFrom(c)
	lg.Debug().Str("subscription", sub.ID).Msg("event stream opened")

	keepAlive := time.NewTicker(h.opts.KeepAlive)
	defer keepAlive.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			lg.Debug().Str("subscription", sub.ID).Msg("event stream closed by client")
			return
		case ev, open := <-sub.C:
			if !open {
				return
			}
			c.SSEvent(EventNewSuperchat, ev)
			w.Flush()
		case <-keepAlive.C:
			if _, err := w.WriteString(": keepalive\n\n"); err != nil {
				return
			}
			w.Flush()
		}
	}
}
