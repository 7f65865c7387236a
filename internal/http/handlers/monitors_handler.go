// Monitor and live-chat HTTP handlers.
//
//   - POST /monitors/{videoId}/start
//   - GET  /monitors/{videoId}
//   - GET  /monitors
//   - GET  /videos/{videoId}/live-chat
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-superchat-bridge/internal/domain"
)

// StartMonitorResponse reports whether a new session was created.
type StartMonitorResponse struct {
	Started bool `json:"started" example:"true"`
}

// ListMonitorsResponse lists every known session.
type ListMonitorsResponse struct {
	Sessions []domain.MonitorSession `json:"sessions"`
}

// LiveChatResponse is the provider's live chat id for a video.
type LiveChatResponse struct {
	VideoID    string `json:"videoId" example:"abc123"`
	LiveChatID string `json:"liveChatId" example:"Cg0KC2FiYzEyMw"`
}

// StartMonitor godoc
// @ID          startMonitor
// @Summary     Ensure a chat monitor runs for a video
// @Description Idempotent. "started" is true only when this call created the session.
// @Tags        Monitors
// @Produce     json
// @Param       videoId  path  string  true  "Video id"  example(abc123)
// @Success     200  {object}  handlers.StartMonitorResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad video id"
// @Failure     503  {object}  handlers.ErrorResponse  "Shutting down"
// @Router      /monitors/{videoId}/start [post]
func (h *Handlers) StartMonitor(c *gin.Context) {
	started, err := h.monitors.EnsureSession(c.Request.Context(), c.Param("videoId"))
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, StartMonitorResponse{Started: started})
}

// GetMonitor godoc
// @ID          getMonitor
// @Summary     Inspect a chat monitor session
// @Tags        Monitors
// @Produce     json
// @Param       videoId  path  string  true  "Video id"  example(abc123)
// @Success     200  {object}  domain.MonitorSession
// @Failure     404  {object}  handlers.ErrorResponse  "No session for this video"
// @Router      /monitors/{videoId} [get]
func (h *Handlers) GetMonitor(c *gin.Context) {
	s, found := h.monitors.Session(c.Param("videoId"))
	if !found {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "no monitor session for this video")
		return
	}
	ok(c, http.StatusOK, s)
}

// ListMonitors godoc
// @ID          listMonitors
// @Summary     List chat monitor sessions
// @Tags        Monitors
// @Produce     json
// @Success     200  {object}  handlers.ListMonitorsResponse
// @Router      /monitors [get]
func (h *Handlers) ListMonitors(c *gin.Context) {
	sessions := h.monitors.Sessions()
	if sessions == nil {
		sessions = []domain.MonitorSession{}
	}
	ok(c, http.StatusOK, ListMonitorsResponse{Sessions: sessions})
}

// GetLiveChat godoc
// @ID          getLiveChat
// @Summary     Resolve a video's live chat id
// @Description Checks provider credentials and whether the video is live.
// @Tags        Videos
// @Produce     json
// @Param       videoId  path  string  true  "Video id"  example(abc123)
// @Success     200  {object}  handlers.LiveChatResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad video id"
// @Failure     502  {object}  handlers.ErrorResponse  "ChatUnavailable"
// @Router      /videos/{videoId}/live-chat [get]
func (h *Handlers) GetLiveChat(c *gin.Context) {
	videoID := c.Param("videoId")
	id, err := h.bridge.LiveChatID(c.Request.Context(), videoID)
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, LiveChatResponse{VideoID: videoID, LiveChatID: id})
}
